package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/course-portal/internal/database"
	"github.com/course-portal/internal/storage"
)

// LikesFile is the shared like counter file under the content root
var LikesFile = path.Join(storage.DataDir, "likes.json")

// fileLikeRepo keeps all like counts in one JSON object. Every
// read-modify-write holds mu and ends with an atomic rename.
type fileLikeRepo struct {
	fs billy.Filesystem
	mu sync.Mutex
}

// NewFileLikeRepo creates a like repository backed by data/likes.json
func NewFileLikeRepo(fs billy.Filesystem) LikeRepository {
	return &fileLikeRepo{fs: fs}
}

// Get returns the count for a course, 0 when unknown
func (r *fileLikeRepo) Get(ctx context.Context, courseID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()[courseID], nil
}

// Increment adds one like and returns the new count
func (r *fileLikeRepo) Increment(ctx context.Context, courseID string) (int, error) {
	return r.update(courseID, 1)
}

// Decrement removes one like, never going below zero
func (r *fileLikeRepo) Decrement(ctx context.Context, courseID string) (int, error) {
	return r.update(courseID, -1)
}

// All returns a copy of every stored count
func (r *fileLikeRepo) All(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(), nil
}

func (r *fileLikeRepo) update(courseID string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := r.load()
	n := counts[courseID] + delta
	if n < 0 {
		n = 0
	}
	counts[courseID] = n

	data, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode likes: %w", err)
	}
	if err := storage.WriteFileAtomic(r.fs, LikesFile, data); err != nil {
		return 0, fmt.Errorf("save likes: %w", err)
	}
	return n, nil
}

// load reads the counts file. Missing or malformed content yields an empty map.
func (r *fileLikeRepo) load() map[string]int {
	counts := make(map[string]int)
	data, err := storage.ReadFile(r.fs, LikesFile)
	if err != nil {
		return counts
	}
	if err := json.Unmarshal(data, &counts); err != nil {
		return make(map[string]int)
	}
	for id, n := range counts {
		if n < 0 {
			counts[id] = 0
		}
	}
	return counts
}

// pgLikeRepo keeps like counts in the course_likes table
type pgLikeRepo struct {
	db *database.DB
}

// NewPostgresLikeRepo creates a like repository backed by PostgreSQL
func NewPostgresLikeRepo(db *database.DB) LikeRepository {
	return &pgLikeRepo{db: db}
}

// Get returns the count for a course, 0 when there is no row
func (r *pgLikeRepo) Get(ctx context.Context, courseID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT like_count FROM course_likes WHERE course_id = $1), 0)`,
		courseID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("get likes for %q: %w", courseID, err)
	}
	return n, nil
}

// Increment adds one like in a single upsert
func (r *pgLikeRepo) Increment(ctx context.Context, courseID string) (int, error) {
	query := `
		INSERT INTO course_likes (course_id, like_count, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (course_id) DO UPDATE
			SET like_count = course_likes.like_count + 1, updated_at = NOW()
		RETURNING like_count
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, courseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("increment likes for %q: %w", courseID, err)
	}
	return n, nil
}

// Decrement removes one like, clamped at zero by the update itself
func (r *pgLikeRepo) Decrement(ctx context.Context, courseID string) (int, error) {
	query := `
		INSERT INTO course_likes (course_id, like_count, updated_at)
		VALUES ($1, 0, NOW())
		ON CONFLICT (course_id) DO UPDATE
			SET like_count = GREATEST(course_likes.like_count - 1, 0), updated_at = NOW()
		RETURNING like_count
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, courseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("decrement likes for %q: %w", courseID, err)
	}
	return n, nil
}

// All returns every stored count
func (r *pgLikeRepo) All(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT course_id, like_count FROM course_likes`)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan likes: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
