package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/repository"
)

// likeService is the concrete implementation of LikeService
type likeService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newLikeService creates a new LikeService
func newLikeService(repos *repository.Repositories, log zerolog.Logger) *likeService {
	return &likeService{
		repos: repos,
		log:   log.With().Str("service", "like").Logger(),
	}
}

// Count returns the shared like count of a course
func (s *likeService) Count(ctx context.Context, courseID string) (int, error) {
	n, err := s.repos.Like.Get(ctx, courseID)
	if err != nil {
		s.log.Error().Err(err).Str("course_id", courseID).Msg("Failed to read likes")
		return 0, apperr.IO("failed to read likes", err)
	}
	return n, nil
}

// All returns the like count of every course that has one
func (s *likeService) All(ctx context.Context) (map[string]int, error) {
	counts, err := s.repos.Like.All(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read likes")
		return nil, apperr.IO("failed to read likes", err)
	}
	return counts, nil
}

// Like increments the count unless the client already liked the course, and
// returns the count with the updated liked set.
func (s *likeService) Like(ctx context.Context, courseID string, liked models.LikedCourses) (int, models.LikedCourses, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return 0, nil, err
	}

	out := copyLiked(liked)
	if out[courseID] {
		n, err := s.Count(ctx, courseID)
		return n, out, err
	}

	n, err := s.repos.Like.Increment(ctx, courseID)
	if err != nil {
		s.log.Error().Err(err).Str("course_id", courseID).Msg("Failed to add like")
		return 0, nil, apperr.IO("failed to save like", err)
	}
	out[courseID] = true

	s.log.Debug().Str("course_id", courseID).Int("likes", n).Msg("Course liked")
	return n, out, nil
}

// Unlike decrements the count if the client had liked the course. The count
// never drops below zero.
func (s *likeService) Unlike(ctx context.Context, courseID string, liked models.LikedCourses) (int, models.LikedCourses, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return 0, nil, err
	}

	out := copyLiked(liked)
	if !out[courseID] {
		n, err := s.Count(ctx, courseID)
		return n, out, err
	}

	n, err := s.repos.Like.Decrement(ctx, courseID)
	if err != nil {
		s.log.Error().Err(err).Str("course_id", courseID).Msg("Failed to remove like")
		return 0, nil, apperr.IO("failed to save like", err)
	}
	delete(out, courseID)

	s.log.Debug().Str("course_id", courseID).Int("likes", n).Msg("Course unliked")
	return n, out, nil
}

func (s *likeService) requireCourse(ctx context.Context, courseID string) error {
	ok, err := s.repos.Course.Exists(ctx, courseID)
	if err != nil {
		return apperr.IO("failed to load course", err)
	}
	if !ok {
		return apperr.NotFound("course %q not found", courseID)
	}
	return nil
}

func copyLiked(liked models.LikedCourses) models.LikedCourses {
	out := make(models.LikedCourses, len(liked)+1)
	for k, v := range liked {
		if v {
			out[k] = true
		}
	}
	return out
}
