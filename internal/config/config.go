package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage and like backends
const (
	StorageLocal = "local"
	StorageS3    = "s3"

	LikesFile     = "file"
	LikesPostgres = "postgres"
)

// DefaultAllowedExtensions is the upload allow-list used when ALLOWED_EXTENSIONS is unset
var DefaultAllowedExtensions = []string{
	"txt", "pdf", "png", "jpg", "jpeg", "gif", "doc", "docx",
	"xls", "xlsx", "ppt", "pptx", "zip", "rar", "mp4", "avi",
	"mov", "wmv", "flv", "mkv", "webm", "mp3", "wav", "py",
	"js", "html", "css", "java", "cpp", "c", "php", "rb",
	"swift", "go", "sql", "json", "xml", "yml", "yaml", "md", "csv",
}

// Config holds all application configuration
type Config struct {
	// Environment name, "development" enables relaxed checks
	Env string

	// Server configuration
	Server ServerConfig

	// Content root and caching
	Content ContentConfig

	// Uploaded file storage
	Storage StorageConfig

	// Like counter backend
	Likes LikesConfig

	// Database configuration, used by the postgres like backend
	Database DatabaseConfig

	// Admin authentication
	Auth AuthConfig

	// Client cookies
	Cookie CookieConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ContentConfig holds the content root settings
type ContentConfig struct {
	Root     string
	CacheTTL time.Duration
}

// StorageConfig holds file storage settings
type StorageConfig struct {
	Backend           string
	MaxFileSize       int64 // in bytes
	AllowedExtensions []string
	S3Endpoint        string
	S3AccessKey       string
	S3SecretKey       string
	S3Bucket          string
	S3Region          string
	S3UseSSL          bool
}

// LikesConfig selects where like counts are kept
type LikesConfig struct {
	Backend        string
	MigrationsPath string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// AuthConfig holds the admin credential and session settings
type AuthConfig struct {
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration
}

// CookieConfig holds settings for progress, like and session cookies
type CookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Content: ContentConfig{
			Root:     getEnv("CONTENT_ROOT", "."),
			CacheTTL: getDurationEnv("CACHE_TTL", 5*time.Minute),
		},
		Storage: StorageConfig{
			Backend:           getEnv("STORAGE_BACKEND", StorageLocal),
			MaxFileSize:       getInt64Env("MAX_FILE_SIZE", 50*1024*1024), // 50MB
			AllowedExtensions: getListEnv("ALLOWED_EXTENSIONS", DefaultAllowedExtensions),
			S3Endpoint:        getEnv("S3_ENDPOINT", ""),
			S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
			S3Bucket:          getEnv("S3_BUCKET", "course-portal-files"),
			S3Region:          getEnv("S3_REGION", "us-east-1"),
			S3UseSSL:          getBoolEnv("S3_USE_SSL", false),
		},
		Likes: LikesConfig{
			Backend:        getEnv("LIKES_BACKEND", LikesFile),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "course_portal"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			SessionSecret:     getEnv("SESSION_SECRET", ""),
			SessionTTL:        getDurationEnv("SESSION_TTL", 12*time.Hour),
		},
		Cookie: CookieConfig{
			MaxAge: getDurationEnv("COOKIE_MAX_AGE", 30*24*time.Hour),
			Secure: getBoolEnv("COOKIE_SECURE", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.IsDevelopment() {
		if cfg.Auth.AdminPassword == "" && cfg.Auth.AdminPasswordHash == "" {
			cfg.Auth.AdminPassword = "password"
		}
		if cfg.Auth.SessionSecret == "" {
			cfg.Auth.SessionSecret = "development-session-secret"
		}
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDevelopment reports whether ENV=development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Content.Root == "" {
		return fmt.Errorf("CONTENT_ROOT is required")
	}

	switch c.Storage.Backend {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3Endpoint == "" || c.Storage.S3AccessKey == "" || c.Storage.S3SecretKey == "" {
			return fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 storage backend")
		}
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: %s, %s", StorageLocal, StorageS3)
	}

	switch c.Likes.Backend {
	case LikesFile:
	case LikesPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	default:
		return fmt.Errorf("LIKES_BACKEND must be one of: %s, %s", LikesFile, LikesPostgres)
	}

	if c.Auth.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required")
	}
	if c.Auth.AdminPassword == "" && c.Auth.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(item), ".")))
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
