package mocks

import (
	"context"

	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/service"
)

// MockSearchService is a mock implementation of SearchService
type MockSearchService struct {
	SearchFunc func(ctx context.Context, query string) ([]models.SearchResult, error)
	Queries    []string
}

// Verify interface compliance
var _ service.SearchService = (*MockSearchService)(nil)

func NewMockSearchService() *MockSearchService {
	return &MockSearchService{
		Queries: make([]string, 0),
	}
}

func (m *MockSearchService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	m.Queries = append(m.Queries, query)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return []models.SearchResult{}, nil
}

// MockAuthService is a mock implementation of AuthService. The only valid
// token is Token.
type MockAuthService struct {
	Username string
	Password string
	Token    string
}

// Verify interface compliance
var _ service.AuthService = (*MockAuthService)(nil)

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		Username: "admin",
		Password: "password",
		Token:    "test-session-token",
	}
}

func (m *MockAuthService) Authenticate(username, password string) bool {
	return username == m.Username && password == m.Password
}

func (m *MockAuthService) IssueToken() (string, error) {
	return m.Token, nil
}

func (m *MockAuthService) ValidateToken(token string) bool {
	return token != "" && token == m.Token
}
