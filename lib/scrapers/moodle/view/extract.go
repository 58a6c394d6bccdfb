package view

import (
	"github.com/PuerkitoBio/goquery"

	"nile-backend/lib/scrapers/moodle/core"
)

// resourceAttrs lists the element/attribute pairs whose URLs must be
// rewritten before HTML leaves the proxy: the client has no idea what
// origin the LMS lives at.
var resourceAttrs = []struct {
	selector string
	attr     string
}{
	{"img[src]", "src"},
	{"a[href]", "href"},
	{"source[src]", "src"},
	{"audio[src]", "src"},
	{"video[src]", "src"},
}

// ExtractContent returns the inner HTML of the first element matching
// selector, with every embedded resource URL rewritten to absolute form.
// Only the selected subtree is touched; rewriting the whole document
// would corrupt navigation chrome never meant for the client. A selector
// with no match yields "".
func ExtractContent(doc *goquery.Document, selector, origin string) string {
	target := doc.Find(selector).First()
	if target.Length() == 0 {
		return ""
	}

	for _, ra := range resourceAttrs {
		target.Find(ra.selector).Each(func(_ int, s *goquery.Selection) {
			raw := s.AttrOr(ra.attr, "")
			s.SetAttr(ra.attr, core.AbsoluteURL(origin, raw))
		})
	}

	html, err := target.Html()
	if err != nil {
		return ""
	}
	return html
}

// collectAttr gathers the given attribute, absolutized, from every match
// within the first element matching root.
func collectAttr(doc *goquery.Document, root, selector, attr, origin string) []string {
	var out []string
	doc.Find(root).First().Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v := s.AttrOr(attr, ""); v != "" {
			out = append(out, core.AbsoluteURL(origin, v))
		}
	})
	return out
}
