package service

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/markdown"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/repository"
)

// Snippet window around the first match, in characters
const (
	snippetBefore = 50
	snippetAfter  = 200
)

// searchService is the concrete implementation of SearchService
type searchService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newSearchService creates a new SearchService
func newSearchService(repos *repository.Repositories, log zerolog.Logger) *searchService {
	return &searchService{
		repos: repos,
		log:   log.With().Str("service", "search").Logger(),
	}
}

// Search scans the raw markdown of every document for a case-insensitive
// literal match. Results follow directory order; there is no ranking.
func (s *searchService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	results := []models.SearchResult{}
	if strings.TrimSpace(query) == "" {
		return results, nil
	}

	pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	courseTitles := make(map[string]string)

	err := s.repos.Document.Walk(ctx, func(courseID, filename string, content []byte) error {
		text := string(content)
		loc := pattern.FindStringIndex(text)
		if loc == nil {
			return nil
		}

		title, ok := courseTitles[courseID]
		if !ok {
			title = s.courseTitle(ctx, courseID)
			courseTitles[courseID] = title
		}

		results = append(results, models.SearchResult{
			CourseID:    courseID,
			Filename:    filename,
			Title:       markdown.Title(text, filename),
			CourseTitle: title,
			Snippet:     Snippet(text, loc[0]),
		})
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("Search failed")
		return nil, apperr.IO("search failed", err)
	}

	s.log.Debug().Str("query", query).Int("results", len(results)).Msg("Search completed")
	return results, nil
}

func (s *searchService) courseTitle(ctx context.Context, courseID string) string {
	course, err := s.repos.Course.Get(ctx, courseID)
	if err != nil {
		return markdown.Humanize(courseID)
	}
	return course.Title
}

// Snippet cuts the text around the byte offset of a match: 50 characters
// before and 200 after, with "..." marking each truncated edge.
func Snippet(text string, offset int) string {
	runes := []rune(text)
	at := utf8.RuneCountInString(text[:offset])

	start := at - snippetBefore
	if start < 0 {
		start = 0
	}
	end := at + snippetAfter
	if end > len(runes) {
		end = len(runes)
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}
