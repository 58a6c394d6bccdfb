package view

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"nile-backend/lib/scrapers/moodle/core"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	coreClient, err := core.NewClient(core.ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return NewClient(coreClient, "cookie"), server
}

func TestCoursesDedupedById(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/my/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/course/view.php?id=4" title="ARB101">Arabic Grammar 1</a>
			<a href="/course/view.php?id=4">Arabic Grammar 1</a>
			<a href="/course/view.php?id=9" title="QUR201">Quran Studies</a>
			<a href="/mod/page/view.php?id=33">not a course</a>
		</body></html>`)
	})
	client, server := newTestClient(t, mux)

	courses, err := client.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.Equal(t, Course{
		Id:        4,
		Fullname:  "Arabic Grammar 1",
		Shortname: "ARB101",
		Url:       server.URL + "/course/view.php?id=4",
	}, courses[0])
	require.Equal(t, 9, courses[1].Id)
}

// coursePage renders a server-side topics layout: sections and their
// activities all on one page.
const topicsCoursePage = `<html><body><div id="region-main"><ul class="topics">
	<li class="section" id="section-0">
		<h3 class="sectionname">General</h3>
		<ul><li class="activity modtype_forum" id="module-1">
			<a href="/mod/forum/view.php?id=1"><span class="instancename">Announcements</span></a>
		</li></ul>
	</li>
	<li class="section" id="section-1">
		<h3 class="sectionname">Week 1</h3>
		<ul>
			<li class="activity modtype_page" id="module-2">
				<a href="/mod/page/view.php?id=2"><span class="instancename">Lesson One<span class="accesshide"> Page</span></span></a>
			</li>
			<li class="activity modtype_label" id="module-3">
				<span class="instancename">divider</span>
			</li>
			<li class="activity modtype_quiz" id="module-4">
				<a href="/mod/quiz/view.php?id=4"><span class="instancename">Checkpoint</span></a>
			</li>
		</ul>
	</li>
	<li class="section" id="section-2">
		<h3 class="sectionname">Week 2</h3>
		<ul><li class="activity modtype_page" id="module-5">
			<a href="/mod/page/view.php?id=5"><span class="instancename">Lesson Two</span></a>
		</li></ul>
	</li>
</ul></div></body></html>`

func TestCourseFullTopicsLayout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/course/view.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, topicsCoursePage)
	})
	client, _ := newTestClient(t, mux)

	full, err := client.CourseFull(context.Background(), 7)
	require.NoError(t, err)

	require.Equal(t, 7, full.CourseId)
	require.Equal(t, "General", full.Intro.Name)
	require.Len(t, full.Intro.Activities, 1)

	wantNames := []string{"Week 1", "Week 2"}
	var gotNames []string
	for _, s := range full.Sections {
		gotNames = append(gotNames, s.Name)
	}
	if diff := cmp.Diff(wantNames, gotNames); diff != "" {
		t.Fatalf("section names mismatch (-want +got):\n%s", diff)
	}

	// the label divider is filtered; the accesshide suffix is stripped
	require.Len(t, full.Sections[0].Activities, 2)
	require.Equal(t, "Lesson One", full.Sections[0].Activities[0].Name)
	require.Equal(t, "Checkpoint", full.Sections[0].Activities[1].Name)

	require.Equal(t, 2, full.TotalSections)
	require.Equal(t, 3, full.TotalActivities)
	require.Equal(t, countActivities(full.Sections), full.TotalActivities)
}

// accordionCoursePage yields a single empty li.section: the theme renders
// lessons as a client-side accordion, so section structure only exists as
// numbered anchors with nested activity links.
const accordionCoursePage = `<html><body>
	<ul class="nav nav-tabs">
		<a class="nav-link" href="/course/view.php?id=8">Course</a>
		<a class="nav-link" href="/course/view.php?id=8&sectionid=30">Lessons</a>
	</ul>
	<div id="region-main">
		<li class="section" id="section-0"><h3 class="sectionname">General</h3></li>
	</div>
</body></html>`

const accordionLessonsTab = `<html><body>
	<div id="region-main">
		<li class="section" id="section-0"><h3 class="sectionname">General</h3></li>
		<ul class="accordion">
			<li>
				<a href="/course/view.php?id=8&section=1">1 - Letters</a>
				<ul>
					<li><a href="/mod/page/view.php?id=51">Alif and Baa</a></li>
					<li><a href="/mod/quiz/view.php?id=52">Letters Quiz</a></li>
				</ul>
			</li>
			<li>
				<a href="/course/view.php?id=8&section=2">2 - Words</a>
			</li>
		</ul>
	</div>
	<div class="block_navigation">
		<a href="/course/view.php?id=8&section=3">Revision</a>
		<a href="/course/view.php?id=8&section=1">1 - Letters</a>
	</div>
</body></html>`

const sectionTwoPage = `<html><body><div id="region-main">
	<li class="activity modtype_page" id="module-61">
		<a href="/mod/page/view.php?id=61"><span class="instancename">First Words</span></a>
	</li>
</div></body></html>`

func TestCourseFullAccordionFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/course/view.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("sectionid") == "30":
			fmt.Fprint(w, accordionLessonsTab)
		case q.Get("section") == "2":
			fmt.Fprint(w, sectionTwoPage)
		case q.Get("section") != "":
			fmt.Fprint(w, `<html><body><div id="region-main"></div></body></html>`)
		default:
			fmt.Fprint(w, accordionCoursePage)
		}
	})
	client, _ := newTestClient(t, mux)

	full, err := client.CourseFull(context.Background(), 8)
	require.NoError(t, err)

	require.Contains(t, full.Tabs, "Lessons")

	// strategy 3 recovered the numbered anchors, 3a added the sidebar
	// link not found by 3 (the duplicate "1 - Letters" url is skipped)
	require.Len(t, full.Sections, 3)
	require.Equal(t, "1 - Letters", full.Sections[0].Name)
	require.Equal(t, "2 - Words", full.Sections[1].Name)
	require.Equal(t, "Revision", full.Sections[2].Name)

	// stub activities parsed from nested <ul> anchors, typed by URL
	require.Len(t, full.Sections[0].Activities, 2)
	require.Equal(t, "page", full.Sections[0].Activities[0].ModType)
	require.Equal(t, "51", full.Sections[0].Activities[0].Id)

	// strategy 4 fetched the empty stub's own page
	require.Len(t, full.Sections[1].Activities, 1)
	require.Equal(t, "First Words", full.Sections[1].Activities[0].Name)

	require.Equal(t, full.TotalActivities, countActivities(full.Sections))
}

func TestCourseFullExpandAllRetry(t *testing.T) {
	emptyPage := `<html><body><div id="region-main">
		<li class="section" id="section-1"><h3 class="sectionname">Hidden Week</h3></li>
	</div></body></html>`
	expandedPage := `<html><body><div id="region-main">
		<li class="section" id="section-1">
			<h3 class="sectionname">Hidden Week</h3>
			<ul><li class="activity modtype_page" id="module-71">
				<a href="/mod/page/view.php?id=71"><span class="instancename">Revealed</span></a>
			</li></ul>
		</li>
	</div></body></html>`

	mux := http.NewServeMux()
	mux.HandleFunc("/course/view.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("expandall") == "1" {
			fmt.Fprint(w, expandedPage)
			return
		}
		fmt.Fprint(w, emptyPage)
	})
	client, _ := newTestClient(t, mux)

	full, err := client.CourseFull(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, full.Sections, 1)
	require.Len(t, full.Sections[0].Activities, 1)
	require.Equal(t, "Revealed", full.Sections[0].Activities[0].Name)
	require.Equal(t, 1, full.TotalActivities)
}

func TestLeadingNumeralPattern(t *testing.T) {
	require.True(t, leadingNumeralRegex.MatchString("3 - Lesson Name"))
	require.True(t, leadingNumeralRegex.MatchString("12- Review"))
	require.False(t, leadingNumeralRegex.MatchString("Lesson 3"))
	require.False(t, leadingNumeralRegex.MatchString("2024 schedule overview"))
}
