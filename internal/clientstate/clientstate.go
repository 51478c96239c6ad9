// Package clientstate keeps per-visitor state (reading progress and liked
// courses) in cookies. Values are JSON objects, URL-encoded so quotes and
// commas survive net/http cookie sanitization.
package clientstate

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/course-portal/internal/models"
)

const (
	// ProgressCookiePrefix is followed by the course id
	ProgressCookiePrefix = "course_progress_"

	// LikedCookie holds the courses this client has liked
	LikedCookie = "liked_courses"

	// DefaultMaxAge is used when a store is built with a zero max age
	DefaultMaxAge = 30 * 24 * time.Hour
)

// ProgressStore reads and writes the per-course progress record of a client
type ProgressStore interface {
	Load(r *http.Request, courseID string) models.Progress
	Save(w http.ResponseWriter, courseID string, progress models.Progress) error
}

// LikedStore reads and writes the set of courses a client has liked
type LikedStore interface {
	Load(r *http.Request) models.LikedCourses
	Save(w http.ResponseWriter, liked models.LikedCourses) error
}

// Options controls the cookies written by the stores
type Options struct {
	MaxAge time.Duration
	Secure bool
}

func (o Options) cookie(name, value string) *http.Cookie {
	maxAge := o.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieProgressStore implements ProgressStore with one cookie per course
type CookieProgressStore struct {
	opts Options
}

// NewProgressStore creates a cookie-backed progress store
func NewProgressStore(opts Options) *CookieProgressStore {
	return &CookieProgressStore{opts: opts}
}

// Load returns the progress for courseID. Missing or malformed cookies yield
// an empty record.
func (s *CookieProgressStore) Load(r *http.Request, courseID string) models.Progress {
	progress := models.Progress{}
	decodeCookie(r, ProgressCookiePrefix+courseID, &progress)
	for k, v := range progress {
		if !v {
			delete(progress, k)
		}
	}
	return progress
}

// Save writes the progress cookie for courseID
func (s *CookieProgressStore) Save(w http.ResponseWriter, courseID string, progress models.Progress) error {
	value, err := encode(progress)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.opts.cookie(ProgressCookiePrefix+courseID, value))
	return nil
}

// CookieLikedStore implements LikedStore with the liked_courses cookie
type CookieLikedStore struct {
	opts Options
}

// NewLikedStore creates a cookie-backed liked-courses store
func NewLikedStore(opts Options) *CookieLikedStore {
	return &CookieLikedStore{opts: opts}
}

// Load returns the liked courses. Missing or malformed cookies yield an empty set.
func (s *CookieLikedStore) Load(r *http.Request) models.LikedCourses {
	liked := models.LikedCourses{}
	decodeCookie(r, LikedCookie, &liked)
	for k, v := range liked {
		if !v {
			delete(liked, k)
		}
	}
	return liked
}

// Save writes the liked_courses cookie
func (s *CookieLikedStore) Save(w http.ResponseWriter, liked models.LikedCourses) error {
	value, err := encode(liked)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.opts.cookie(LikedCookie, value))
	return nil
}

func encode(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(data)), nil
}

// decodeCookie fills v from the named cookie. The URL-encoded form, raw JSON
// and the quoted form written by older Python deployments are all accepted.
// Syntax errors leave v untouched; entries of the wrong type are skipped.
func decodeCookie(r *http.Request, name string, v interface{}) {
	raw := cookieValue(r, name)
	if raw == "" {
		return
	}
	raw = unquote(raw)
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}
	_ = json.Unmarshal([]byte(raw), v)
}

// cookieValue returns the named cookie's value. net/http drops values that
// contain double quotes or backslashes, so those are read from the raw
// Cookie header instead.
func cookieValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil && c.Value != "" {
		return c.Value
	}
	for _, line := range r.Header.Values("Cookie") {
		for _, part := range strings.Split(line, ";") {
			k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
			if ok && k == name {
				return strings.TrimSpace(val)
			}
		}
	}
	return ""
}

// unquote reverses RFC 2109 style quoting: a value wrapped in double quotes
// with backslash escapes and three-digit octal escapes such as \054.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		if i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			if n, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				sb.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		i++
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isOctal(b byte) bool {
	return b >= '0' && b <= '7'
}
