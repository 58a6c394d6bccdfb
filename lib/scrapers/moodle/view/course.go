package view

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"nile-backend/lib/htmlutil"
	"nile-backend/lib/scrapers/moodle/core"
	"nile-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/moodle/view")

// lessonsTabMatchers are the normalized labels the course's "Lessons" tab
// is known to carry. The school's theme hides lesson content behind this
// tab; the default course view omits it entirely.
var lessonsTabMatchers = []string{"lessons", "الدروس", "دروس"}

var leadingNumeralRegex = regexp.MustCompile(`^\d+\s*[-–.)]`)

// Courses scrapes the dashboard's course links. Identity is the numeric
// course id; duplicates within one scrape are dropped by a seen-id set.
func (c Client) Courses(ctx context.Context) ([]Course, error) {
	ctx, span := tracer.Start(ctx, "client:Courses")
	defer span.End()

	html, err := c.Core.FetchPage(ctx, "/my/", c.Cookie)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch dashboard")
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse dashboard")
		return nil, err
	}

	origin := c.Core.Origin()
	seen := map[int]bool{}
	var courses []Course

	doc.Find(`a[href*="course/view.php?id="]`).Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		id, ok := courseIdFromUrl(href)
		if !ok || seen[id] {
			return
		}

		fullname := htmlutil.CleanText(s.Find(".coursename, .multiline").First().Text())
		if fullname == "" {
			fullname = htmlutil.CleanText(s.Text())
		}
		if fullname == "" {
			return
		}
		shortname := htmlutil.CleanText(s.AttrOr("title", ""))
		if shortname == "" {
			shortname = fullname
		}

		seen[id] = true
		courses = append(courses, Course{
			Id:        id,
			Fullname:  fullname,
			Shortname: shortname,
			Url:       core.AbsoluteURL(origin, href),
		})
	})

	span.SetAttributes(attribute.Int("count", len(courses)))
	return courses, nil
}

func courseIdFromUrl(href string) (int, bool) {
	parsed, err := url.Parse(href)
	if err != nil {
		return 0, false
	}
	id, err := strconv.Atoi(parsed.Query().Get("id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

// CourseFull reconstructs a course's full section/activity tree. Moodle
// renders course pages differently per theme/plugin (topics view,
// flexsections, JS accordion), so strategies run from most structured to
// most heuristic, accepting the first non-degenerate result.
func (c Client) CourseFull(ctx context.Context, courseId int) (CourseFull, error) {
	ctx, span := tracer.Start(ctx, "client:CourseFull")
	defer span.End()
	span.SetAttributes(attribute.Int("course_id", courseId))

	origin := c.Core.Origin()
	courseUrl := fmt.Sprintf("%s/course/view.php?id=%d", origin, courseId)

	doc, err := c.fetchDoc(ctx, courseUrl)
	if err != nil {
		return CourseFull{}, err
	}

	tabs := parseTabs(doc)

	// strategy 1: the default view omits lesson content unless the
	// Lessons tab's own section is requested explicitly.
	if lessonsUrl := findLessonsTab(doc, origin); lessonsUrl != "" {
		span.AddEvent("lessons tab", trace.WithAttributes(
			attribute.String("url", lessonsUrl),
		))
		tabDoc, err := c.fetchDoc(ctx, lessonsUrl)
		if err == nil {
			doc = tabDoc
		}
	}

	// strategy 2: server-rendered section list.
	intro, sections := parseSectionList(doc, origin)

	// strategy 3/3a: a single usable section means the site renders
	// lessons as a client-side accordion; recover section stubs from
	// anchor collections instead.
	if countUsable(sections) <= 1 {
		seen := map[string]bool{}
		stubs := parseNumberedSectionAnchors(doc, origin, seen)
		stubs = append(stubs, parseNavSidebarSections(doc, origin, seen)...)
		if len(stubs) > 0 {
			sections = stubs
		}
	}

	// strategy 4: stub-list parsing only recovers links; fetch each
	// empty section's own page for full activity metadata.
	for i := range sections {
		if len(sections[i].Activities) > 0 || sections[i].url == "" {
			continue
		}
		secDoc, err := c.fetchDoc(ctx, sections[i].url)
		if err != nil {
			span.AddEvent("section fetch failed", trace.WithAttributes(
				attribute.String("url", sections[i].url),
			))
			continue
		}
		secDoc.Find("li.activity").Each(func(_ int, s *goquery.Selection) {
			if a := ParseActivity(s, origin); a != nil {
				sections[i].Activities = append(sections[i].Activities, *a)
			}
		})
	}

	// strategy 5: everything empty, retry once against the expand-all
	// variant and reparse wholesale. Replaces all collected sections.
	if countActivities(sections) == 0 {
		expandedDoc, err := c.fetchDoc(ctx, courseUrl+"&expandall=1")
		if err == nil {
			expandedIntro, expanded := parseSectionList(expandedDoc, origin)
			sections = expanded
			if len(expandedIntro.Activities) > 0 || expandedIntro.Name != "" {
				intro = expandedIntro
			}
		}
	}

	full := CourseFull{
		CourseId:        courseId,
		Tabs:            tabs,
		Intro:           intro,
		Sections:        sections,
		TotalSections:   len(sections),
		TotalActivities: countActivities(sections),
	}
	span.SetAttributes(
		attribute.Int("sections", full.TotalSections),
		attribute.Int("activities", full.TotalActivities),
	)
	return full, nil
}

func (c Client) fetchDoc(ctx context.Context, pageUrl string) (*goquery.Document, error) {
	html, err := c.Core.FetchPage(ctx, pageUrl, c.Cookie)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func countUsable(sections []Section) int {
	n := 0
	for _, s := range sections {
		if len(s.Activities) > 0 {
			n++
		}
	}
	return n
}

func countActivities(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Activities)
	}
	return n
}

func parseTabs(doc *goquery.Document) []string {
	var tabs []string
	seen := map[string]bool{}
	for _, a := range htmlutil.GetAnchors(doc.Find("ul.nav-tabs a, .nav.nav-tabs a")) {
		if a.Name == "" || seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		tabs = append(tabs, a.Name)
	}
	return tabs
}

// findLessonsTab returns the URL of a navigation tab whose label reads as
// "Lessons" (fuzzily, in either language), or "".
func findLessonsTab(doc *goquery.Document, origin string) string {
	found := ""
	doc.Find("ul.nav-tabs a, .nav.nav-tabs a, .nav a.nav-link").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := htmlutil.CleanText(s.Text())
		href := s.AttrOr("href", "")
		if href == "" || name == "" {
			return true
		}
		if textutil.FuzzyMatchName(name, lessonsTabMatchers, 1) {
			found = core.AbsoluteURL(origin, href)
			return false
		}
		return true
	})
	return found
}

// parseSectionList reads li.section nodes directly (topics/flexsections
// layouts). The general #section-0 block becomes the intro and is kept
// out of the section list proper.
func parseSectionList(doc *goquery.Document, origin string) (Section, []Section) {
	var intro Section
	var sections []Section

	doc.Find("li.section").Each(func(i int, s *goquery.Selection) {
		name := htmlutil.CleanText(s.Find(".sectionname").First().Text())
		if name == "" {
			name = htmlutil.CleanText(s.AttrOr("aria-label", ""))
		}

		sec := Section{
			Name: name,
			url:  core.AbsoluteURL(origin, s.Find(".sectionname a").First().AttrOr("href", "")),
		}
		s.Find("li.activity").Each(func(_ int, act *goquery.Selection) {
			if a := ParseActivity(act, origin); a != nil {
				sec.Activities = append(sec.Activities, *a)
			}
		})

		if s.AttrOr("id", "") == "section-0" {
			if sec.Name == "" {
				sec.Name = "General"
			}
			intro = sec
			return
		}
		if sec.Name == "" {
			sec.Name = fmt.Sprintf("Section %d", i)
		}
		sections = append(sections, sec)
	})

	return intro, sections
}

// parseNumberedSectionAnchors recovers section stubs from anchors whose
// label leads with a numeral ("3 - Lesson Name") and whose link targets a
// course view scoped to a section. Stub activities come from any <ul>
// nested under the anchor's list item; those are bare links, not
// li.activity nodes, so their type is inferred from the /mod/<type>/ URL
// segment. Scanning stays inside the main content region; sidebar
// anchors belong to the supplementary scan so the same section is not
// collected twice.
func parseNumberedSectionAnchors(doc *goquery.Document, origin string, seen map[string]bool) []Section {
	var sections []Section

	root := doc.Find("#region-main")
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Find("a").Each(func(_ int, s *goquery.Selection) {
		name := htmlutil.CleanText(s.Text())
		href := s.AttrOr("href", "")
		if !leadingNumeralRegex.MatchString(name) {
			return
		}
		if !isSectionLink(href) {
			return
		}
		abs := core.AbsoluteURL(origin, href)
		if seen[abs] {
			return
		}
		seen[abs] = true

		sec := Section{
			Name: name,
			url:  abs,
		}
		s.Parent().ChildrenFiltered("ul").Find("a").Each(func(_ int, act *goquery.Selection) {
			actHref := act.AttrOr("href", "")
			actName := htmlutil.CleanText(act.Text())
			if actName == "" || !strings.Contains(actHref, "/mod/") {
				return
			}
			modType := modTypeFromUrl(actHref)
			if modType == "label" {
				return
			}
			parsed, _ := url.Parse(actHref)
			id := ""
			if parsed != nil {
				id = parsed.Query().Get("id")
			}
			sec.Activities = append(sec.Activities, Activity{
				Id:      id,
				Name:    actName,
				ModType: modType,
				Url:     core.AbsoluteURL(origin, actHref),
			})
		})

		sections = append(sections, sec)
	})

	return sections
}

// parseNavSidebarSections scans navigation-sidebar anchors for section
// links the numbered-anchor scan missed.
func parseNavSidebarSections(doc *goquery.Document, origin string, seen map[string]bool) []Section {
	var sections []Section

	doc.Find(".block_navigation a, nav[role=navigation] a, #nav-drawer a").Each(func(_ int, s *goquery.Selection) {
		name := htmlutil.CleanText(s.Text())
		href := s.AttrOr("href", "")
		if name == "" || !isSectionLink(href) {
			return
		}
		abs := core.AbsoluteURL(origin, href)
		if seen[abs] {
			return
		}
		seen[abs] = true
		sections = append(sections, Section{Name: name, url: abs})
	})

	return sections
}

func isSectionLink(href string) bool {
	if !strings.Contains(href, "course/view.php") {
		return false
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}
	return parsed.Query().Get("section") != "" || parsed.Query().Get("sectionid") != ""
}
