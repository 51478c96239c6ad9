// Package app wires configuration into storage backends, repositories and
// services. It is shared by the HTTP server and the portalctl CLI.
package app

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/blob"
	"github.com/course-portal/internal/cache"
	"github.com/course-portal/internal/config"
	"github.com/course-portal/internal/database"
	"github.com/course-portal/internal/repository"
	"github.com/course-portal/internal/service"
	"github.com/course-portal/internal/storage"
)

// App holds the wired components
type App struct {
	FS       billy.Filesystem
	Files    blob.Store
	DB       *database.DB // nil unless LIKES_BACKEND=postgres
	Repos    *repository.Repositories
	Services *service.Services
}

// New opens the content root, selects the file and like backends and builds
// the services. Close releases the database connection.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	fs, err := storage.OpenOS(cfg.Content.Root, log)
	if err != nil {
		return nil, fmt.Errorf("open content root: %w", err)
	}

	files, err := newBlobStore(ctx, fs, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{FS: fs, Files: files}

	var likes repository.LikeRepository
	if cfg.Likes.Backend == config.LikesPostgres {
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.RunMigrations(cfg.Likes.MigrationsPath); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.DB = db
		likes = repository.NewPostgresLikeRepo(db)
	}

	a.Repos = repository.New(fs, likes)

	a.Services, err = service.NewServices(a.Repos, files, cache.NewMemory(), cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info().
		Str("content_root", cfg.Content.Root).
		Str("storage_backend", cfg.Storage.Backend).
		Str("likes_backend", cfg.Likes.Backend).
		Msg("Application wired")

	return a, nil
}

// Close releases held resources
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func newBlobStore(ctx context.Context, fs billy.Filesystem, cfg *config.Config, log zerolog.Logger) (blob.Store, error) {
	if cfg.Storage.Backend != config.StorageS3 {
		return blob.NewLocal(fs)
	}

	s3, err := blob.NewS3(&cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return s3, nil
}
