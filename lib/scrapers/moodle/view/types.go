// Package view reconstructs structured course data out of moodle's
// server-rendered HTML. Every selector in here is provisional: moodle
// renders the same course differently depending on theme and plugin
// configuration, so parsing degrades through fallback strategies instead
// of trusting any single layout.
package view

import "nile-backend/lib/scrapers/moodle/core"

// Client pairs the core client with the session cookie it scrapes under.
type Client struct {
	Core   *core.Client
	Cookie string
}

func NewClient(coreClient *core.Client, cookie string) Client {
	return Client{Core: coreClient, Cookie: cookie}
}

type Course struct {
	Id        int    `json:"id"`
	Fullname  string `json:"fullname"`
	Shortname string `json:"shortname"`
	Url       string `json:"url"`
}

// Activity is a single piece of course content a learner can open.
// Id may be an empty string when the DOM node carries no usable id
// attribute; callers must tolerate that.
type Activity struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	ModType string `json:"modType"`
	Url     string `json:"url"`
	Icon    string `json:"icon,omitempty"`
}

type Section struct {
	Name       string     `json:"name"`
	Activities []Activity `json:"activities"`

	// url is the section's own page, when one is known; used to fetch
	// activities for stub sections recovered from anchor scans.
	url string
}

// CourseFull is the reconstructed section/activity tree of one course.
// TotalActivities is always the sum of the final sections' activity
// counts, regardless of which fallback strategy produced them.
type CourseFull struct {
	CourseId        int       `json:"courseId"`
	Tabs            []string  `json:"tabs"`
	Intro           Section   `json:"intro"`
	Sections        []Section `json:"sections"`
	TotalSections   int       `json:"totalSections"`
	TotalActivities int       `json:"totalActivities"`
}

type BookChapter struct {
	Title string `json:"title"`
	Url   string `json:"url"`
}

type ForumPost struct {
	Subject string `json:"subject"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

type AttendanceRecord struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// ActivityContent is the per-type scrape result, discriminated by Type.
// Which fields are populated depends entirely on the type; a selector
// that did not match leaves its field empty, which clients must treat as
// "nothing to show", never as an error.
type ActivityContent struct {
	Type string `json:"type"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`

	AudioUrls  []string `json:"audioUrls,omitempty"`
	ImageUrls  []string `json:"imageUrls,omitempty"`
	IframeSrcs []string `json:"iframeSrcs,omitempty"`

	VideoUrl  string `json:"videoUrl,omitempty"`
	IframeSrc string `json:"iframeSrc,omitempty"`
	VimeoUrl  string `json:"vimeoUrl,omitempty"`

	ExternalUrl string `json:"externalUrl,omitempty"`
	FileUrl     string `json:"fileUrl,omitempty"`
	FileType    string `json:"fileType,omitempty"`

	Chapters []BookChapter      `json:"chapters,omitempty"`
	Posts    []ForumPost        `json:"posts,omitempty"`
	Records  []AttendanceRecord `json:"records,omitempty"`

	AttemptSummary   string `json:"attemptSummary,omitempty"`
	DueDate          string `json:"dueDate,omitempty"`
	SubmissionStatus string `json:"submissionStatus,omitempty"`
}
