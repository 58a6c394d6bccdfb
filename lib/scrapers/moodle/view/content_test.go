package view

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func serveActivity(t *testing.T, html string) Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/mod/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, html)
	})
	client, _ := newTestClient(t, mux)
	return client
}

func TestPageContent(t *testing.T) {
	client := serveActivity(t, `<html><body><div id="region-main">
		<h2>Lesson One</h2>
		<div class="generalbox">
			<p>text body</p>
			<img src="/pluginfile.php/1/pic.png">
			<audio src="/pluginfile.php/1/clip.mp3"></audio>
			<iframe src="//player.example.com/embed/1"></iframe>
		</div>
	</div></body></html>`)

	content, err := client.ActivityContent(context.Background(), "/mod/page/view.php?id=2", "page")
	require.NoError(t, err)
	require.Equal(t, "page", content.Type)
	require.Equal(t, "Lesson One", content.Title)
	require.Contains(t, content.Content, "text body")
	require.Len(t, content.AudioUrls, 1)
	require.Len(t, content.ImageUrls, 1)
	require.Len(t, content.IframeSrcs, 1)
	require.Contains(t, content.AudioUrls[0], "http")
}

func TestQuizContentNeverIncludesQuestions(t *testing.T) {
	client := serveActivity(t, `<html><body><div id="region-main">
		<h2>Checkpoint Quiz</h2>
		<div id="intro"><p>Answer all questions.</p></div>
		<table class="quizattemptsummary"><tr><td>Attempt 1</td><td>Finished</td></tr></table>
		<div class="que multichoice">
			<div class="qtext">What is the plural of kitab?</div>
			<div class="answer">kutub</div>
		</div>
	</div></body></html>`)

	content, err := client.ActivityContent(context.Background(), "/mod/quiz/view.php?id=4", "quiz")
	require.NoError(t, err)
	require.Equal(t, "quiz", content.Type)
	require.Equal(t, "Checkpoint Quiz", content.Title)
	require.Contains(t, content.Description, "Answer all questions")
	require.Contains(t, content.AttemptSummary, "Attempt 1")

	for _, field := range []string{
		content.Title, content.Description, content.Content, content.AttemptSummary,
	} {
		require.NotContains(t, field, "plural of kitab")
		require.NotContains(t, field, "kutub")
	}
}

func TestUrlContentResolvesExternalLink(t *testing.T) {
	client := serveActivity(t, `<html><body><div id="region-main">
		<h2>Reading</h2>
		<div class="urlworkaround">
			Click <a href="https://example.org/article">here</a>
		</div>
	</div></body></html>`)

	content, err := client.ActivityContent(context.Background(), "/mod/url/view.php?id=6", "url")
	require.NoError(t, err)
	require.Equal(t, "https://example.org/article", content.ExternalUrl)
}

func TestBookContentChapters(t *testing.T) {
	client := serveActivity(t, `<html><body>
		<div class="columnleft"><ul>
			<li><a href="/mod/book/view.php?id=9&chapterid=1">Intro</a></li>
			<li><a href="/mod/book/view.php?id=9&chapterid=2">Part Two</a></li>
		</ul></div>
		<div role="main"><div class="box"><p>chapter text</p></div></div>
	</body></html>`)

	content, err := client.ActivityContent(context.Background(), "/mod/book/view.php?id=9", "book")
	require.NoError(t, err)
	require.Len(t, content.Chapters, 2)
	require.Equal(t, "Intro", content.Chapters[0].Title)
	require.Contains(t, content.Chapters[0].Url, "chapterid=1")
	require.Contains(t, content.Content, "chapter text")
}

func TestVideoContent(t *testing.T) {
	client := serveActivity(t, `<html><body><div id="region-main">
		<h2>Unit Video</h2>
		<video><source src="/media/unit1.mp4"></video>
		<iframe src="https://player.vimeo.com/video/123"></iframe>
	</div></body></html>`)

	content, err := client.ActivityContent(context.Background(), "/mod/video/view.php?id=8", "video")
	require.NoError(t, err)
	require.Contains(t, content.VideoUrl, "/media/unit1.mp4")
	require.Equal(t, "https://player.vimeo.com/video/123", content.VimeoUrl)
}

func TestForumContentPosts(t *testing.T) {
	client := serveActivity(t, `<html><body><div id="region-main">
		<div class="forumpost">
			<div class="subject">Welcome</div>
			<div class="author"><a href="/user/view.php?id=3">Instructor A</a> - <span class="modified">1 Sep</span></div>
			<div class="posting">First post body</div>
		</div>
	</div></body></html>`)

	content, err := client.ActivityContent(context.Background(), "/mod/forum/view.php?id=5", "forum")
	require.NoError(t, err)
	require.Len(t, content.Posts, 1)
	require.Equal(t, "Welcome", content.Posts[0].Subject)
	require.Equal(t, "Instructor A", content.Posts[0].Author)
	require.Contains(t, content.Posts[0].Content, "First post body")
}

func TestUnknownModTypeFallsBackToGeneric(t *testing.T) {
	client := serveActivity(t, `<html><body><div id="region-main">
		<h2>Mystery</h2><p>fallback dump</p>
	</div></body></html>`)

	content, err := client.ActivityContent(context.Background(), "/mod/glossary/view.php?id=7", "glossary")
	require.NoError(t, err)
	require.Equal(t, "glossary", content.Type)
	require.Contains(t, content.Content, "fallback dump")
}

func TestMissingSelectorsYieldEmptyFieldsNotErrors(t *testing.T) {
	client := serveActivity(t, `<html><body><p>bare page</p></body></html>`)

	content, err := client.ActivityContent(context.Background(), "/mod/page/view.php?id=1", "page")
	require.NoError(t, err)
	require.Equal(t, "page", content.Type)
	require.Equal(t, "", content.Content)
	require.Empty(t, content.AudioUrls)
}
