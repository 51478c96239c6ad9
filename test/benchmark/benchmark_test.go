package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/blob"
	"github.com/course-portal/internal/cache"
	"github.com/course-portal/internal/config"
	"github.com/course-portal/internal/markdown"
	"github.com/course-portal/internal/repository"
	"github.com/course-portal/internal/service"
	"github.com/course-portal/internal/storage"
)

func sampleDocument(i int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Lesson %d\n\n", i)
	for s := 0; s < 5; s++ {
		fmt.Fprintf(&sb, "## Section %d\n\n", s)
		sb.WriteString(strings.Repeat("Goroutines and channels compose into pipelines. ", 20))
		sb.WriteString("\n\n```go\nfunc main() {}\n```\n\n")
	}
	return sb.String()
}

func newServices(b *testing.B, courses, docsPerCourse int) *service.Services {
	b.Helper()
	fs := storage.NewMemory()
	for c := 0; c < courses; c++ {
		for d := 0; d < docsPerCourse; d++ {
			name := fmt.Sprintf("courses/course%03d/docs/lesson%03d.md", c, d)
			if err := util.WriteFile(fs, name, []byte(sampleDocument(d)), 0o644); err != nil {
				b.Fatal(err)
			}
		}
	}

	store, err := blob.NewLocal(fs)
	if err != nil {
		b.Fatal(err)
	}
	cfg := &config.Config{
		Content: config.ContentConfig{CacheTTL: time.Minute},
		Storage: config.StorageConfig{MaxFileSize: 1 << 20, AllowedExtensions: config.DefaultAllowedExtensions},
		Auth:    config.AuthConfig{AdminUsername: "admin", AdminPassword: "password", SessionSecret: "bench"},
	}
	svc, err := service.NewServices(repository.New(fs, nil), store, cache.NewMemory(), cfg, zerolog.Nop())
	if err != nil {
		b.Fatal(err)
	}
	return svc
}

// BenchmarkRenderMarkdown benchmarks HTML and TOC rendering of one document
func BenchmarkRenderMarkdown(b *testing.B) {
	doc := []byte(sampleDocument(1))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		markdown.Render(doc)
	}

	b.ReportMetric(float64(len(doc)*b.N)/b.Elapsed().Seconds(), "bytes/sec")
}

// BenchmarkSearch benchmarks a full scan over 20 courses of 25 documents
func BenchmarkSearch(b *testing.B) {
	svc := newServices(b, 20, 25)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := svc.Search.Search(ctx, "pipelines"); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(500*b.N)/b.Elapsed().Seconds(), "docs/sec")
}

// BenchmarkGetDocumentCached benchmarks repeated reads served from the cache
func BenchmarkGetDocumentCached(b *testing.B) {
	svc := newServices(b, 1, 10)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.Course.GetDocument(ctx, "course000", "lesson001.md"); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkLikeIncrementParallel benchmarks contended updates of the file
// like store
func BenchmarkLikeIncrementParallel(b *testing.B) {
	likes := repository.NewFileLikeRepo(storage.NewMemory())
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := likes.Increment(ctx, "course000"); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkLockerParallel benchmarks per-key lock acquire/release
func BenchmarkLockerParallel(b *testing.B) {
	locks := storage.NewLocker()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			unlock := locks.Lock(fmt.Sprintf("course%03d", i%32))
			unlock()
			i++
		}
	})
}
