package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/course-portal/internal/config"
)

const adminSubject = "admin"

// authService is the concrete implementation of AuthService
type authService struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// newAuthService creates a new AuthService. A plain ADMIN_PASSWORD is hashed
// once at startup so every check goes through bcrypt.
func newAuthService(cfg *config.AuthConfig, log zerolog.Logger) (*authService, error) {
	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		hashed, err := HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		hash = []byte(hashed)
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid ADMIN_PASSWORD_HASH: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &authService{
		username: cfg.AdminUsername,
		hash:     hash,
		secret:   []byte(cfg.SessionSecret),
		ttl:      ttl,
		now:      time.Now,
		log:      log.With().Str("service", "auth").Logger(),
	}, nil
}

// Authenticate checks the admin credential pair
func (s *authService) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	if !userOK || !passOK {
		s.log.Warn().Str("username", username).Msg("Admin login failed")
		return false
	}
	s.log.Info().Msg("Admin logged in")
	return true
}

// IssueToken signs a session token for the admin
func (s *authService) IssueToken() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return token, nil
}

// ValidateToken reports whether token is an unexpired admin session
func (s *authService) ValidateToken(token string) bool {
	if token == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.log.Debug().Msg("Admin session expired")
		}
		return false
	}
	return parsed.Valid && claims.Subject == adminSubject
}

// HashPassword returns the bcrypt hash accepted by ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin password: %w", err)
	}
	return string(hash), nil
}
