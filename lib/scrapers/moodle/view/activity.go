package view

import (
	"regexp"
	"strings"

	"nile-backend/lib/htmlutil"
	"nile-backend/lib/scrapers/moodle/core"

	"github.com/PuerkitoBio/goquery"
)

// moduleIdPrefix is what moodle prepends to an activity <li>'s id
// attribute, e.g. id="module-1234".
const moduleIdPrefix = "module-"

var modUrlRegex = regexp.MustCompile(`/mod/([a-z0-9]+)/`)

// ParseActivity reads one li.activity node into an Activity. It returns
// nil for nodes that carry no navigable content: empty names and `label`
// modules (moodle's section dividers).
func ParseActivity(sel *goquery.Selection, origin string) *Activity {
	instname := sel.Find("span.instancename").First()

	name := htmlutil.CleanText(instname.Text())
	// moodle duplicates the module-type label invisibly for screen
	// readers inside the instance name; strip it or names come out like
	// "Lesson 1Page". The hidden text is assumed to be a suffix of the
	// visible name; when moodle renders it differently the polluted name
	// passes through unchanged.
	hidden := htmlutil.CleanText(instname.Find("span.accesshide").Text())
	if hidden != "" && strings.HasSuffix(name, hidden) {
		name = strings.TrimSpace(strings.TrimSuffix(name, hidden))
	}

	link := sel.Find("a").First()
	if name == "" {
		name = htmlutil.CleanText(link.Text())
	}
	if name == "" {
		return nil
	}

	modType := htmlutil.ClassWithPrefix(sel, "modtype_")
	if modType == "" {
		modType = "resource"
	}
	if modType == "label" {
		return nil
	}

	id := strings.TrimPrefix(sel.AttrOr("id", ""), moduleIdPrefix)

	return &Activity{
		Id:      id,
		Name:    name,
		ModType: modType,
		Url:     core.AbsoluteURL(origin, link.AttrOr("href", "")),
		Icon:    core.AbsoluteURL(origin, sel.Find("img.activityicon").First().AttrOr("src", "")),
	}
}

// modTypeFromUrl infers an activity's module type from the /mod/<type>/
// segment of its link; used for stub activities recovered from anchor
// scans, which are not li.activity nodes.
func modTypeFromUrl(href string) string {
	groups := modUrlRegex.FindStringSubmatch(href)
	if len(groups) < 2 {
		return "resource"
	}
	return groups[1]
}
