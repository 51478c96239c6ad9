package mocks

import (
	"context"
	"sync"

	"github.com/course-portal/internal/repository"
)

// MockLikeRepository is a mock implementation of LikeRepository
type MockLikeRepository struct {
	mu             sync.Mutex
	Counts         map[string]int
	GetError       error
	UpdateError    error
	IncrementCalls int
	DecrementCalls int
}

// Verify interface compliance
var _ repository.LikeRepository = (*MockLikeRepository)(nil)

func NewMockLikeRepository() *MockLikeRepository {
	return &MockLikeRepository{
		Counts: make(map[string]int),
	}
}

func (m *MockLikeRepository) Get(ctx context.Context, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return 0, m.GetError
	}
	return m.Counts[courseID], nil
}

func (m *MockLikeRepository) Increment(ctx context.Context, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IncrementCalls++
	if m.UpdateError != nil {
		return 0, m.UpdateError
	}
	m.Counts[courseID]++
	return m.Counts[courseID], nil
}

func (m *MockLikeRepository) Decrement(ctx context.Context, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecrementCalls++
	if m.UpdateError != nil {
		return 0, m.UpdateError
	}
	if m.Counts[courseID] > 0 {
		m.Counts[courseID]--
	}
	return m.Counts[courseID], nil
}

func (m *MockLikeRepository) All(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	out := make(map[string]int, len(m.Counts))
	for k, v := range m.Counts {
		out[k] = v
	}
	return out, nil
}
