package service

import (
	"context"

	"github.com/course-portal/internal/models"
)

// progressService is the concrete implementation of ProgressService
type progressService struct {
	courses CourseService
}

// newProgressService creates a new ProgressService
func newProgressService(courses CourseService) *progressService {
	return &progressService{courses: courses}
}

// RecordVisit returns a copy of progress with filename marked as visited.
// Recording the same visit twice yields the same record.
func (s *progressService) RecordVisit(progress models.Progress, filename string) models.Progress {
	out := progress.Clone()
	out[filename] = true
	return out
}

// Completed counts the visited documents that still exist
func (s *progressService) Completed(progress models.Progress, docs []models.DocumentSummary) int {
	n := 0
	for _, d := range docs {
		if progress[d.Filename] {
			n++
		}
	}
	return n
}

// Summary reports completed/total/percentage for every course. Visits to
// documents that were since deleted still count as completed, so the
// percentage is clamped.
func (s *progressService) Summary(ctx context.Context, lookup func(courseID string) models.Progress) (map[string]models.ProgressSummary, error) {
	courses, err := s.courses.ListCourses(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.ProgressSummary, len(courses))
	for _, c := range courses {
		completed := len(lookup(c.ID))
		out[c.ID] = models.ProgressSummary{
			Completed:  completed,
			Total:      c.DocsCount,
			Percentage: Percentage(completed, c.DocsCount),
		}
	}
	return out, nil
}

// Percentage returns completed/total as an integer in [0, 100]; 0 when total is 0
func Percentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	p := completed * 100 / total
	if p > 100 {
		return 100
	}
	return p
}
