// Package moodleproxy exposes the moodle scraping pipeline as a small
// JSON API for the mobile client. All responses are computed projections
// of the LMS's current HTML; nothing but session cookies is kept
// server-side.
package moodleproxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"nile-backend/lib/scrapers/moodle/core"
	"nile-backend/lib/scrapers/moodle/view"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service struct {
	client   *core.Client
	sessions *SessionCache
}

func NewService(client *core.Client) *Service {
	return &Service{
		client:   client,
		sessions: NewSessionCache(client),
	}
}

// Router mounts the five proxy endpoints.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/moodle", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/courses", s.handleCourses)
		r.Post("/course-full", s.handleCourseFull)
		r.Post("/activity-content", s.handleActivityContent)
		r.Get("/proxy-media", s.handleProxyMedia)
	})
	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondScrapeError maps any scrape/network failure to a generic 500.
// The specific failure reason is logged server-side only; leaking it
// verbatim would expose LMS internals to the client.
func respondScrapeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.ErrorContext(r.Context(), "scrape failed", "op", op, "err", err)
	respondJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "failed to reach the learning platform",
	})
}

func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var body T
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return body, false
	}
	return body, true
}

func requireFields(w http.ResponseWriter, fields map[string]string) bool {
	for name, value := range fields {
		if value == "" {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: name + " is required"})
			return false
		}
	}
	return true
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Service) viewClient(ctx context.Context, creds credentials) (view.Client, error) {
	cookie, err := s.sessions.Get(ctx, creds.Username, creds.Password)
	if err != nil {
		return view.Client{}, err
	}
	return view.NewClient(s.client, cookie), nil
}

type loginResponse struct {
	Success       bool      `json:"success"`
	SessionCookie string    `json:"sessionCookie"`
	User          loginUser `json:"user"`
}

type loginUser struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody[credentials](w, r)
	if !ok {
		return
	}
	if !requireFields(w, map[string]string{
		"username": body.Username,
		"password": body.Password,
	}) {
		return
	}

	cookie, err := s.sessions.Get(r.Context(), body.Username, body.Password)
	if err != nil {
		respondScrapeError(w, r, "login", err)
		return
	}

	fullName, err := s.client.UserInfo(r.Context(), cookie)
	if errors.Is(err, core.ErrLoginFailed) {
		// the session belongs to rejected credentials, don't let the
		// next request reuse it
		s.sessions.Drop(body.Username)
		respondJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "invalid username or password",
		})
		return
	}
	if err != nil {
		respondScrapeError(w, r, "login", err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		Success:       true,
		SessionCookie: cookie,
		User: loginUser{
			Username: body.Username,
			FullName: fullName,
		},
	})
}

type coursesResponse struct {
	Courses []view.Course `json:"courses"`
}

func (s *Service) handleCourses(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody[credentials](w, r)
	if !ok {
		return
	}
	if !requireFields(w, map[string]string{
		"username": body.Username,
		"password": body.Password,
	}) {
		return
	}

	client, err := s.viewClient(r.Context(), body)
	if err != nil {
		respondScrapeError(w, r, "courses", err)
		return
	}
	courses, err := client.Courses(r.Context())
	if err != nil {
		respondScrapeError(w, r, "courses", err)
		return
	}
	if courses == nil {
		courses = []view.Course{}
	}
	respondJSON(w, http.StatusOK, coursesResponse{Courses: courses})
}

type courseFullRequest struct {
	credentials
	CourseId int `json:"courseId"`
}

func (s *Service) handleCourseFull(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody[courseFullRequest](w, r)
	if !ok {
		return
	}
	if !requireFields(w, map[string]string{
		"username": body.Username,
		"password": body.Password,
	}) {
		return
	}
	if body.CourseId == 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "courseId is required"})
		return
	}

	client, err := s.viewClient(r.Context(), body.credentials)
	if err != nil {
		respondScrapeError(w, r, "course-full", err)
		return
	}
	full, err := client.CourseFull(r.Context(), body.CourseId)
	if err != nil {
		respondScrapeError(w, r, "course-full", err)
		return
	}
	respondJSON(w, http.StatusOK, full)
}

type activityContentRequest struct {
	credentials
	ActivityUrl string `json:"activityUrl"`
	ModType     string `json:"modType"`
}

func (s *Service) handleActivityContent(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody[activityContentRequest](w, r)
	if !ok {
		return
	}
	if !requireFields(w, map[string]string{
		"username":    body.Username,
		"password":    body.Password,
		"activityUrl": body.ActivityUrl,
		"modType":     body.ModType,
	}) {
		return
	}

	client, err := s.viewClient(r.Context(), body.credentials)
	if err != nil {
		respondScrapeError(w, r, "activity-content", err)
		return
	}
	content, err := client.ActivityContent(r.Context(), body.ActivityUrl, body.ModType)
	if err != nil {
		respondScrapeError(w, r, "activity-content", err)
		return
	}
	respondJSON(w, http.StatusOK, content)
}

func (s *Service) handleProxyMedia(w http.ResponseWriter, r *http.Request) {
	mediaUrl := r.URL.Query().Get("url")
	if mediaUrl == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}

	cookie := ""
	username := r.URL.Query().Get("username")
	password := r.URL.Query().Get("password")
	if username != "" && password != "" {
		var err error
		cookie, err = s.sessions.Get(r.Context(), username, password)
		if err != nil {
			respondScrapeError(w, r, "proxy-media", err)
			return
		}
	}

	res, err := s.client.FetchMedia(r.Context(), mediaUrl, cookie)
	if err != nil {
		respondScrapeError(w, r, "proxy-media", err)
		return
	}

	defer res.RawBody().Close()

	if contentType := res.Header().Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, res.RawBody()); err != nil {
		slog.ErrorContext(r.Context(), "stream media", "err", err)
	}
}
