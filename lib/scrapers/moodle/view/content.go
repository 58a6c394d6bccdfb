package view

import (
	"context"
	"net/url"
	"path"
	"strings"

	"nile-backend/lib/htmlutil"
	"nile-backend/lib/scrapers/moodle/core"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// contentParsers dispatches on moodle's module type. Each parser applies
// selector heuristics tuned to that module's known page structure; a
// selector that does not match leaves fields empty rather than failing.
var contentParsers = map[string]func(doc *goquery.Document, origin string) ActivityContent{
	"page":        parsePageContent,
	"book":        parseBookContent,
	"quiz":        parseQuizContent,
	"assign":      parseAssignContent,
	"forum":       parseForumContent,
	"url":         parseUrlContent,
	"resource":    parseResourceContent,
	"video":       parseVideoContent,
	"videofile":   parseVideoContent,
	"h5pactivity": parseInteractiveContent,
	"hvp":         parseInteractiveContent,
	"lti":         parseInteractiveContent,
	"attendance":  parseAttendanceContent,
	"feedback":    parseFeedbackContent,
}

// ActivityContent fetches the activity page once and extracts whatever
// its declared module type is known to render. The result is computed
// fresh per call; caching is the client's responsibility.
func (c Client) ActivityContent(ctx context.Context, activityUrl, modType string) (ActivityContent, error) {
	ctx, span := tracer.Start(ctx, "client:ActivityContent")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", activityUrl),
		attribute.String("mod_type", modType),
	)

	html, err := c.Core.FetchPage(ctx, activityUrl, c.Cookie)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch activity page")
		return ActivityContent{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse activity page")
		return ActivityContent{}, err
	}

	origin := c.Core.Origin()
	parse, known := contentParsers[modType]
	if !known {
		content := parseGenericContent(doc, origin)
		content.Type = modType
		return content, nil
	}
	return parse(doc, origin), nil
}

func pageTitle(doc *goquery.Document) string {
	return htmlutil.CleanText(doc.Find("#region-main h2").First().Text())
}

func parsePageContent(doc *goquery.Document, origin string) ActivityContent {
	content := ExtractContent(doc, "#region-main .generalbox", origin)
	if content == "" {
		content = ExtractContent(doc, "#region-main .box", origin)
	}
	return ActivityContent{
		Type:    "page",
		Title:   pageTitle(doc),
		Content: content,
		// audio/images/iframes are extracted separately so the client
		// can special-case playback.
		AudioUrls:  collectAttr(doc, "#region-main", "audio source[src], audio[src]", "src", origin),
		ImageUrls:  collectAttr(doc, "#region-main", "img[src]", "src", origin),
		IframeSrcs: collectAttr(doc, "#region-main", "iframe[src]", "src", origin),
	}
}

func parseBookContent(doc *goquery.Document, origin string) ActivityContent {
	var chapters []BookChapter
	for _, a := range htmlutil.GetAnchors(doc.Find("div.columnleft li a")) {
		if a.Name == "" || a.Href == "" {
			continue
		}
		chapters = append(chapters, BookChapter{
			Title: a.Name,
			Url:   core.AbsoluteURL(origin, a.Href),
		})
	}

	content := ExtractContent(doc, "div[role=main] div.box", origin)
	if content == "" {
		content = ExtractContent(doc, "#region-main .book_content", origin)
	}
	return ActivityContent{
		Type:     "book",
		Title:    pageTitle(doc),
		Content:  content,
		Chapters: chapters,
	}
}

// parseQuizContent deliberately extracts no question content: quiz-taking
// is not scraped, only the quiz's face page.
func parseQuizContent(doc *goquery.Document, origin string) ActivityContent {
	summary := htmlutil.CleanText(doc.Find("table.quizattemptsummary").Text())
	if summary == "" {
		summary = htmlutil.CleanText(doc.Find(".quizinfo").Text())
	}
	return ActivityContent{
		Type:           "quiz",
		Title:          pageTitle(doc),
		Description:    ExtractContent(doc, "#intro", origin),
		AttemptSummary: summary,
	}
}

func parseAssignContent(doc *goquery.Document, origin string) ActivityContent {
	content := ActivityContent{
		Type:        "assign",
		Title:       pageTitle(doc),
		Description: ExtractContent(doc, "#intro", origin),
		SubmissionStatus: htmlutil.CleanText(
			doc.Find(".submissionstatustable .submissionstatus").First().Text(),
		),
	}
	doc.Find("table.generaltable tr").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		header := htmlutil.CleanText(s.Find("th").First().Text())
		if strings.Contains(strings.ToLower(header), "due date") {
			content.DueDate = htmlutil.CleanText(s.Find("td").First().Text())
			return false
		}
		return true
	})
	return content
}

func parseForumContent(doc *goquery.Document, origin string) ActivityContent {
	var posts []ForumPost

	doc.Find(".forumpost").Each(func(_ int, s *goquery.Selection) {
		posts = append(posts, ForumPost{
			Subject: htmlutil.CleanText(s.Find(".subject").First().Text()),
			Author:  htmlutil.CleanText(s.Find(".author a").First().Text()),
			Date:    htmlutil.CleanText(s.Find(".author time, .modified").First().Text()),
			Content: htmlutil.CleanText(s.Find(".posting").First().Text()),
		})
	})
	if len(posts) == 0 {
		// discussion list page rather than a thread
		doc.Find("tr.discussion").Each(func(_ int, s *goquery.Selection) {
			posts = append(posts, ForumPost{
				Subject: htmlutil.CleanText(s.Find(".topic a").First().Text()),
				Author:  htmlutil.CleanText(s.Find(".author a").First().Text()),
				Date:    htmlutil.CleanText(s.Find(".lastpost time, .lastpost").First().Text()),
			})
		})
	}

	return ActivityContent{
		Type:        "forum",
		Title:       pageTitle(doc),
		Description: ExtractContent(doc, "#intro", origin),
		Posts:       posts,
	}
}

func parseUrlContent(doc *goquery.Document, origin string) ActivityContent {
	external := doc.Find(".urlworkaround a").First().AttrOr("href", "")
	if external == "" {
		doc.Find("#region-main a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href := s.AttrOr("href", "")
			if strings.HasPrefix(href, "http") && !strings.HasPrefix(href, origin) {
				external = href
				return false
			}
			return true
		})
	}
	return ActivityContent{
		Type:        "url",
		Title:       pageTitle(doc),
		Description: ExtractContent(doc, "#intro", origin),
		ExternalUrl: core.AbsoluteURL(origin, external),
	}
}

func parseResourceContent(doc *goquery.Document, origin string) ActivityContent {
	fileUrl := doc.Find(".resourceworkaround a").First().AttrOr("href", "")
	if fileUrl == "" {
		fileUrl = doc.Find(".resourcecontent a").First().AttrOr("href", "")
	}
	if fileUrl == "" {
		fileUrl = doc.Find("object#resourceobject").First().AttrOr("data", "")
	}
	fileUrl = core.AbsoluteURL(origin, fileUrl)

	fileType := ""
	if parsed, err := url.Parse(fileUrl); err == nil {
		fileType = strings.TrimPrefix(path.Ext(parsed.Path), ".")
	}

	return ActivityContent{
		Type:     "resource",
		Title:    pageTitle(doc),
		FileUrl:  fileUrl,
		FileType: fileType,
	}
}

func parseVideoContent(doc *goquery.Document, origin string) ActivityContent {
	videoUrl := doc.Find("#region-main video source[src]").First().AttrOr("src", "")
	if videoUrl == "" {
		videoUrl = doc.Find("#region-main video[src]").First().AttrOr("src", "")
	}

	iframeSrc := doc.Find("#region-main iframe[src]").First().AttrOr("src", "")
	vimeoUrl := ""
	doc.Find("#region-main iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.AttrOr("src", "")
		if strings.Contains(src, "vimeo") {
			vimeoUrl = core.AbsoluteURL(origin, src)
			return false
		}
		return true
	})

	return ActivityContent{
		Type:      "video",
		Title:     pageTitle(doc),
		VideoUrl:  core.AbsoluteURL(origin, videoUrl),
		IframeSrc: core.AbsoluteURL(origin, iframeSrc),
		VimeoUrl:  vimeoUrl,
	}
}

func parseInteractiveContent(doc *goquery.Document, origin string) ActivityContent {
	iframeSrc := doc.Find("iframe.h5p-iframe, iframe#contentframe").First().AttrOr("src", "")
	if iframeSrc == "" {
		iframeSrc = doc.Find("#region-main iframe[src]").First().AttrOr("src", "")
	}
	return ActivityContent{
		Type:      "interactive",
		Title:     pageTitle(doc),
		IframeSrc: core.AbsoluteURL(origin, iframeSrc),
		Content:   ExtractContent(doc, "#region-main .generalbox", origin),
	}
}

func parseAttendanceContent(doc *goquery.Document, origin string) ActivityContent {
	var records []AttendanceRecord
	doc.Find("table.generaltable tr").Each(func(_ int, s *goquery.Selection) {
		cells := s.Find("td")
		if cells.Length() < 2 {
			return
		}
		record := AttendanceRecord{
			Date:        htmlutil.CleanText(cells.Eq(0).Text()),
			Description: htmlutil.CleanText(cells.Eq(1).Text()),
		}
		if cells.Length() > 2 {
			record.Status = htmlutil.CleanText(cells.Eq(2).Text())
		}
		records = append(records, record)
	})
	return ActivityContent{
		Type:    "attendance",
		Title:   pageTitle(doc),
		Records: records,
	}
}

func parseFeedbackContent(doc *goquery.Document, origin string) ActivityContent {
	return ActivityContent{
		Type:        "feedback",
		Title:       pageTitle(doc),
		Description: ExtractContent(doc, "#intro", origin),
		Content:     ExtractContent(doc, "#region-main .generalbox", origin),
	}
}

func parseGenericContent(doc *goquery.Document, origin string) ActivityContent {
	return ActivityContent{
		Title:   pageTitle(doc),
		Content: ExtractContent(doc, "#region-main", origin),
	}
}
