// Package core logs into a moodle instance through its HTML login form and
// fetches raw pages on behalf of an authenticated browser session. It knows
// nothing about how course content is laid out; that lives in the view
// package.
package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nile-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapers/moodle/core")

var ErrLoginFailed = fmt.Errorf("Failed to login to your account.")

// SessionCookieName is the browser cookie moodle keys its HTTP sessions by.
const SessionCookieName = "MoodleSession"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	// auth never follows redirects so login cookie renewals stay visible.
	auth *resty.Client
}

type ClientOptions struct {
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	// moodle rotates session cookies between requests, so concurrent
	// fetches against one session can interleave badly; keep it slow.
	limiter := rate.NewLimiter(2, 2)
	withLimiter := func(c *resty.Client) {
		c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	withLimiter(httpClient)
	telemetry.InstrumentResty(httpClient, "scrapers/moodle/http")

	authClient := resty.New()
	authClient.SetBaseURL(opts.BaseUrl)
	authClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(authClient.GetClient().Transport)
	authClient.SetHeader("user-agent", userAgent)
	authClient.SetRedirectPolicy(resty.RedirectPolicyFunc(
		func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	))
	withLimiter(authClient)
	telemetry.InstrumentResty(authClient, "scrapers/moodle/auth")

	c := &Client{
		BaseUrl: baseUrl,
		Http:    httpClient,
		auth:    authClient,
	}
	return c, nil
}

// Origin is the scheme://host prefix relative links on scraped pages
// resolve against.
func (c *Client) Origin() string {
	return c.BaseUrl.Scheme + "://" + c.BaseUrl.Host
}

// AbsoluteURL rewrites a scraped src/href into an externally fetchable URL.
// Rule order matters: already-absolute first, then protocol-relative, then
// site-relative, then page-relative.
func AbsoluteURL(origin, raw string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return origin + raw
	default:
		return origin + "/" + raw
	}
}

func (c *Client) AbsoluteURL(raw string) string {
	return AbsoluteURL(c.Origin(), raw)
}

func sessionCookie(cookies []*http.Cookie) string {
	for _, cookie := range cookies {
		if cookie.Name == SessionCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// Login performs the HTML-form login flow and returns the session cookie
// moodle settles on. Moodle issues a fresh session id after authenticating,
// so the cookie is re-captured after the form POST and again after the one
// redirect that follows it; the pre-auth cookie is not accepted afterwards.
//
// Login does not verify the credentials were accepted: a rejected login
// still yields a (anonymous) session cookie. Use UserInfo for that.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.auth.R().
		SetContext(ctx).
		Get("/login/index.php")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page")
		return "", err
	}

	logintoken := doc.Find("input[name=logintoken]").AttrOr("value", "")
	cookie := sessionCookie(res.Cookies())

	req := c.auth.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"logintoken": logintoken,
			"username":   username,
			"password":   password,
		})
	if cookie != "" {
		req.SetHeader("Cookie", SessionCookieName+"="+cookie)
	}
	res, err = req.Post("/login/index.php")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return "", err
	}
	if renewed := sessionCookie(res.Cookies()); renewed != "" {
		cookie = renewed
	}

	if location := res.Header().Get("Location"); location != "" {
		res, err = c.auth.R().
			SetContext(ctx).
			SetHeader("Cookie", SessionCookieName+"="+cookie).
			Get(c.AbsoluteURL(location))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to follow login redirect")
			return "", err
		}
		if renewed := sessionCookie(res.Cookies()); renewed != "" {
			cookie = renewed
		}
	}

	if cookie == "" {
		span.SetStatus(codes.Error, "no session cookie issued")
		return "", fmt.Errorf("moodle did not issue a session cookie")
	}
	return cookie, nil
}

// FetchPage makes a single cookie-authenticated GET and returns the body
// regardless of status: moodle serves recoverable partial content (guest
// stub pages and the like) on non-200 responses too.
func (c *Client) FetchPage(ctx context.Context, pageUrl, cookie string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:FetchPage")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("Cookie", SessionCookieName+"="+cookie).
		Get(c.AbsoluteURL(pageUrl))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return "", err
	}
	return res.String(), nil
}

// FetchMedia fetches a binary resource without buffering it, returning the
// full response so the caller can pass headers through and stream the body.
// The caller owns res.RawBody() and must close it.
func (c *Client) FetchMedia(ctx context.Context, mediaUrl, cookie string) (*resty.Response, error) {
	req := c.Http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if cookie != "" {
		req.SetHeader("Cookie", SessionCookieName+"="+cookie)
	}
	return req.Get(c.AbsoluteURL(mediaUrl))
}

// UserInfo fetches the dashboard with the given session and scrapes the
// logged-in user's display name. A dashboard that still renders a login
// form means the credentials behind the session were rejected.
func (c *Client) UserInfo(ctx context.Context, cookie string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:UserInfo")
	defer span.End()

	html, err := c.FetchPage(ctx, "/my/", cookie)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse dashboard")
		return "", err
	}

	if doc.Find("input[name=logintoken]").Length() > 0 ||
		doc.Find("form#login").Length() > 0 {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return "", ErrLoginFailed
	}

	fullName := strings.TrimSpace(doc.Find(".usertext").First().Text())
	return fullName, nil
}
