package service_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/blob"
	"github.com/course-portal/internal/cache"
	"github.com/course-portal/internal/config"
	"github.com/course-portal/internal/mocks"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/repository"
	"github.com/course-portal/internal/service"
	"github.com/course-portal/internal/storage"
)

type fixture struct {
	svc   *service.Services
	fs    billy.Filesystem
	likes *mocks.MockLikeRepository
}

func testConfig() *config.Config {
	return &config.Config{
		Content: config.ContentConfig{Root: ".", CacheTTL: time.Minute},
		Storage: config.StorageConfig{
			Backend:           config.StorageLocal,
			MaxFileSize:       1024,
			AllowedExtensions: config.DefaultAllowedExtensions,
		},
		Auth: config.AuthConfig{
			AdminUsername: "admin",
			AdminPassword: "password",
			SessionSecret: "test-secret",
			SessionTTL:    time.Hour,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := storage.NewMemory()
	likes := mocks.NewMockLikeRepository()
	store, err := blob.NewLocal(fs)
	require.NoError(t, err)

	svc, err := service.NewServices(repository.New(fs, likes), store, cache.NewMemory(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	return &fixture{svc: svc, fs: fs, likes: likes}
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(f.fs, name, []byte(content), 0o644))
}

func TestCourseService_CreateNormalizesID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	course, err := f.svc.Course.CreateCourse(ctx, &models.CourseInput{
		ID:          "  Intro 101 ",
		Title:       " Introduction ",
		Description: "Basics",
	})
	require.NoError(t, err)
	assert.Equal(t, "intro_101", course.ID)
	assert.Equal(t, "Introduction", course.Title)
	assert.Equal(t, "Basics", course.Description)
	assert.Equal(t, models.DefaultInstructor, course.Instructor)

	_, err = f.svc.Course.CreateCourse(ctx, &models.CourseInput{ID: "intro_101", Title: "Again"})
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))

	_, err = f.svc.Course.CreateCourse(ctx, &models.CourseInput{ID: "x"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = f.svc.Course.CreateCourse(ctx, &models.CourseInput{ID: "../x", Title: "Escape"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestCourseService_SaveThenLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Course.CreateCourse(ctx, &models.CourseInput{ID: "go", Title: "Go"})
	require.NoError(t, err)

	in := &models.CourseInput{Title: "Go Deep", Instructor: "Rob", Duration: "4 weeks", Level: "Advanced"}
	updated, err := f.svc.Course.UpdateCourse(ctx, "go", in)
	require.NoError(t, err)

	assert.Equal(t, models.Course{
		ID:          "go",
		Title:       "Go Deep",
		Description: models.DefaultDescription,
		Instructor:  "Rob",
		Duration:    "4 weeks",
		Level:       "Advanced",
	}, *updated)

	_, err = f.svc.Course.UpdateCourse(ctx, "missing", in)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCourseService_DocumentScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "courses/intro_101/docs/1-welcome.md", "# Hello\nBody text")

	doc, err := f.svc.Course.GetDocument(ctx, "intro_101", "1-welcome.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello", doc.Title)
	assert.Contains(t, doc.Content, "<p>Body text</p>")

	_, err = f.svc.Course.GetDocument(ctx, "intro_101", "missing.md")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Course.GetDocument(ctx, "nope", "1-welcome.md")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCourseService_TitleFallsBackToFilename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "courses/c/docs/getting_started-guide.md", "Plain first line\n# Later heading")

	doc, err := f.svc.Course.GetDocument(ctx, "c", "getting_started-guide.md")
	require.NoError(t, err)
	assert.Equal(t, "Getting Started Guide", doc.Title)
}

func TestCourseService_MutationsInvalidateCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Course.CreateCourse(ctx, &models.CourseInput{ID: "c", Title: "C"})
	require.NoError(t, err)

	courses, err := f.svc.Course.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 0, courses[0].DocsCount)

	summary, err := f.svc.Course.CreateDocument(ctx, "c", &models.DocumentInput{Title: "My First_Doc", Content: "# One\n"})
	require.NoError(t, err)
	assert.Equal(t, "my-first-doc.md", summary.Filename)

	courses, err = f.svc.Course.ListCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, courses[0].DocsCount)

	doc, err := f.svc.Course.GetDocument(ctx, "c", "my-first-doc.md")
	require.NoError(t, err)
	assert.Equal(t, "One", doc.Title)

	require.NoError(t, f.svc.Course.UpdateDocument(ctx, "c", "my-first-doc.md", &models.DocumentInput{Title: "x", Content: "# Two"}))
	doc, err = f.svc.Course.GetDocument(ctx, "c", "my-first-doc.md")
	require.NoError(t, err)
	assert.Equal(t, "Two", doc.Title)

	require.NoError(t, f.svc.Course.DeleteDocument(ctx, "c", "my-first-doc.md"))
	docs, err := f.svc.Course.ListDocuments(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, f.svc.Course.DeleteCourse(ctx, "c"))
	_, err = f.svc.Course.GetCourse(ctx, "c")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCourseService_CachedLoadsIgnoreCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.write(t, "courses/c/docs/1-intro.md", "# Intro\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	courses, err := f.svc.Course.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)

	doc, err := f.svc.Course.GetDocument(ctx, "c", "1-intro.md")
	require.NoError(t, err)
	assert.Equal(t, "Intro", doc.Title)

	// The shared result was stored and serves live callers too
	docs, err := f.svc.Course.ListDocuments(context.Background(), "c")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCourseService_DocumentSlugCollisionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Course.CreateCourse(ctx, &models.CourseInput{ID: "c", Title: "C"})
	require.NoError(t, err)

	_, err = f.svc.Course.CreateDocument(ctx, "c", &models.DocumentInput{Title: "Intro Notes", Content: "first"})
	require.NoError(t, err)

	_, err = f.svc.Course.CreateDocument(ctx, "c", &models.DocumentInput{Title: "intro_notes", Content: "second"})
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))

	raw, err := f.svc.Course.GetRawDocument(ctx, "c", "intro-notes.md")
	require.NoError(t, err)
	assert.Equal(t, "first", raw.Content)
}

func TestSearchService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "courses/go/course.json", `{"title": "Go Basics"}`)
	f.write(t, "courses/go/docs/1-intro.md", "# Intro\nGoroutines are cheap (really).")
	f.write(t, "courses/rust/docs/ownership.md", "Borrowing rules")

	results, err := f.svc.Search.Search(ctx, "GOROUTINES")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.SearchResult{
		CourseID:    "go",
		Filename:    "1-intro.md",
		Title:       "Intro",
		CourseTitle: "Go Basics",
		Snippet:     "# Intro\nGoroutines are cheap (really).",
	}, results[0])

	results, err = f.svc.Search.Search(ctx, "(really")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = f.svc.Search.Search(ctx, "borrowing")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Rust", results[0].CourseTitle)
	assert.Equal(t, "Ownership", results[0].Title)

	results, err = f.svc.Search.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = f.svc.Search.Search(ctx, ".*")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSnippet(t *testing.T) {
	text := strings.Repeat("a", 100) + "MATCH" + strings.Repeat("b", 300)
	snippet := service.Snippet(text, 100)

	assert.True(t, strings.HasPrefix(snippet, "..."+strings.Repeat("a", 50)+"MATCH"))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.Equal(t, 3+50+200+3, len(snippet))

	assert.Equal(t, "short MATCH", service.Snippet("short MATCH", 6))

	// Offsets are bytes; the window is counted in characters.
	multi := strings.Repeat("é", 60) + "x"
	assert.Equal(t, "..."+strings.Repeat("é", 50)+"x", service.Snippet(multi, len(multi)-1))
}

func TestLikeService_LikeAndUnlike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "courses/c1/docs/a.md", "a")

	n, liked, err := f.svc.Like.Like(ctx, "c1", models.LikedCourses{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.LikedCourses{"c1": true}, liked)

	// Already liked by this client: no second increment.
	n, liked, err = f.svc.Like.Like(ctx, "c1", liked)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.likes.IncrementCalls)

	n, liked, err = f.svc.Like.Unlike(ctx, "c1", liked)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, liked)

	n, _, err = f.svc.Like.Unlike(ctx, "c1", liked)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, f.likes.DecrementCalls)

	_, _, err = f.svc.Like.Like(ctx, "unknown", nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLikeService_BackendFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "courses/c1/docs/a.md", "a")
	f.likes.UpdateError = errors.New("disk full")

	_, _, err := f.svc.Like.Like(ctx, "c1", nil)
	assert.Equal(t, apperr.CodeIOFailure, apperr.CodeOf(err))
}

func TestProgressService_RecordVisitIdempotent(t *testing.T) {
	f := newFixture(t)

	start := models.Progress{"a.md": true}
	once := f.svc.Progress.RecordVisit(start, "b.md")
	twice := f.svc.Progress.RecordVisit(once, "b.md")

	assert.Equal(t, once, twice)
	assert.Equal(t, models.Progress{"a.md": true, "b.md": true}, twice)
	assert.Equal(t, models.Progress{"a.md": true}, start)
}

func TestProgressService_SummaryClampsPercentage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "courses/a/docs/1.md", "1")
	f.write(t, "courses/a/docs/2.md", "2")
	f.write(t, "courses/empty/course.json", `{"title": "Empty"}`)

	progress := map[string]models.Progress{
		"a":     {"1.md": true, "2.md": true, "deleted.md": true},
		"empty": {"gone.md": true},
	}
	summary, err := f.svc.Progress.Summary(ctx, func(id string) models.Progress { return progress[id] })
	require.NoError(t, err)

	assert.Equal(t, models.ProgressSummary{Completed: 3, Total: 2, Percentage: 100}, summary["a"])
	assert.Equal(t, models.ProgressSummary{Completed: 1, Total: 0, Percentage: 0}, summary["empty"])
}

func TestPercentage(t *testing.T) {
	cases := []struct{ completed, total, want int }{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{5, 3, 100},
		{4, 0, 0},
	}
	for _, c := range cases {
		got := service.Percentage(c.completed, c.total)
		assert.Equal(t, c.want, got, "Percentage(%d, %d)", c.completed, c.total)
		assert.True(t, got >= 0 && got <= 100)
	}
}

// fileHeaders builds multipart file headers as gin would hand them over
func fileHeaders(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range names {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["file"]
}

func TestFileService_UploadCollisionGetsNewName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.File.Upload(ctx, fileHeaders(t, "notes.txt", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, res.Saved, 2)
	assert.Equal(t, "notes.txt", res.Saved[0])
	assert.Regexp(t, regexp.MustCompile(`^notes_[0-9a-f]{8}\.txt$`), res.Saved[1])

	files, err := f.svc.File.List(ctx)
	require.NoError(t, err)
	var names []string
	for _, file := range files {
		names = append(names, file.Filename)
	}
	assert.ElementsMatch(t, res.Saved, names)
}

func TestFileService_UploadRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.File.Upload(ctx, fileHeaders(t, "virus.exe", ".hidden.txt", "noext", "ok.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, []string{"ok.pdf"}, res.Saved)

	_, err = f.svc.File.Save(ctx, "big.txt", strings.NewReader("x"), 4096)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = f.svc.File.Save(ctx, "", strings.NewReader("x"), 1)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	// Client-side directories are stripped from the name.
	name, err := f.svc.File.Save(ctx, `C:\Users\me\report.csv`, strings.NewReader("x"), 1)
	require.NoError(t, err)
	assert.Equal(t, "report.csv", name)
}

func TestFileService_SaveCollisionGetsNewName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.File.Save(ctx, "slides.pdf", strings.NewReader("a"), 1)
	require.NoError(t, err)
	assert.Equal(t, "slides.pdf", first)

	second, err := f.svc.File.Save(ctx, "slides.pdf", strings.NewReader("b"), 1)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^slides_[0-9a-f]{8}\.pdf$`), second)
}

func TestFileService_TogglePublicRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.File.Save(ctx, "slides.pdf", strings.NewReader("pdf"), 3)
	require.NoError(t, err)

	public, err := f.svc.File.TogglePublic(ctx, "slides.pdf")
	require.NoError(t, err)
	assert.True(t, public)

	rc, file, err := f.svc.File.Open(ctx, "slides.pdf")
	require.NoError(t, err)
	rc.Close()
	assert.True(t, file.IsPublic)

	public, err = f.svc.File.TogglePublic(ctx, "slides.pdf")
	require.NoError(t, err)
	assert.False(t, public)

	files, err := f.svc.File.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.False(t, files[0].IsPublic)

	_, err = f.svc.File.TogglePublic(ctx, "missing.pdf")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestFileService_DeleteClearsFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.File.Save(ctx, "a.txt", strings.NewReader("a"), 1)
	require.NoError(t, err)
	_, err = f.svc.File.TogglePublic(ctx, "a.txt")
	require.NoError(t, err)

	require.NoError(t, f.svc.File.Delete(ctx, "a.txt"))
	assert.True(t, errors.Is(f.svc.File.Delete(ctx, "a.txt"), apperr.ErrNotFound))

	// A new upload under the same name starts private.
	_, err = f.svc.File.Save(ctx, "a.txt", strings.NewReader("a"), 1)
	require.NoError(t, err)
	files, err := f.svc.File.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.False(t, files[0].IsPublic)
}

func TestFileService_ImportLegacyFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "file_storage/guide.pdf", "pdf")
	f.write(t, "file_storage/guide.pdf.public", "")
	f.write(t, "file_storage/orphan.txt.public", "")

	n, err := f.svc.File.ImportLegacyFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	files, err := f.svc.File.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "guide.pdf", files[0].Filename)
	assert.True(t, files[0].IsPublic)

	ok, err := storage.Exists(f.fs, "file_storage/guide.pdf.public")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileService_OpenHidesIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.File.Save(ctx, "a.txt", strings.NewReader("a"), 1)
	require.NoError(t, err)
	_, err = f.svc.File.TogglePublic(ctx, "a.txt")
	require.NoError(t, err)

	_, _, err = f.svc.File.Open(ctx, service.IndexName)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAuthService_Credentials(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.svc.Auth.Authenticate("admin", "password"))
	assert.False(t, f.svc.Auth.Authenticate("admin", "wrong"))
	assert.False(t, f.svc.Auth.Authenticate("root", "password"))

	token, err := f.svc.Auth.IssueToken()
	require.NoError(t, err)
	assert.True(t, f.svc.Auth.ValidateToken(token))
	assert.False(t, f.svc.Auth.ValidateToken(token+"x"))
	assert.False(t, f.svc.Auth.ValidateToken(""))
}

func TestAuthService_TokenFromOtherSecretRejected(t *testing.T) {
	f := newFixture(t)

	cfg := testConfig()
	cfg.Auth.SessionSecret = "another-secret"
	other, err := service.NewServices(repository.New(storage.NewMemory(), nil), nil, nil, cfg, zerolog.Nop())
	require.NoError(t, err)

	token, err := other.Auth.IssueToken()
	require.NoError(t, err)
	assert.False(t, f.svc.Auth.ValidateToken(token))
}

func TestAuthService_PasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Auth.AdminPassword = ""
	cfg.Auth.AdminPasswordHash = string(hash)
	svc, err := service.NewServices(repository.New(storage.NewMemory(), nil), nil, nil, cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.True(t, svc.Auth.Authenticate("admin", "hunter2"))
	assert.False(t, svc.Auth.Authenticate("admin", "password"))

	cfg.Auth.AdminPasswordHash = "not-a-hash"
	_, err = service.NewServices(repository.New(storage.NewMemory(), nil), nil, nil, cfg, zerolog.Nop())
	assert.Error(t, err)
}
