package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/blob"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/validation"
)

const (
	// IndexName is the object holding the per-file metadata
	IndexName = ".index.json"

	legacyFlagSuffix = ".public"
)

// fileIndex is the on-disk shape of IndexName
type fileIndex struct {
	Files map[string]fileMeta `json:"files"`
}

type fileMeta struct {
	Public bool `json:"public"`
}

// fileService is the concrete implementation of FileService
type fileService struct {
	store     blob.Store
	validator *validation.Validator
	log       zerolog.Logger

	// mu serializes index updates and name reservation
	mu       sync.Mutex
	reserved map[string]bool
}

// newFileService creates a new FileService
func newFileService(store blob.Store, validator *validation.Validator, log zerolog.Logger) *fileService {
	return &fileService{
		store:     store,
		validator: validator,
		log:       log.With().Str("service", "file").Logger(),
		reserved:  make(map[string]bool),
	}
}

// List returns the stored files, newest first
func (s *fileService) List(ctx context.Context) ([]models.StoredFile, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list files")
		return nil, apperr.IO("failed to list files", err)
	}

	s.mu.Lock()
	idx := s.loadIndex(ctx)
	s.mu.Unlock()

	files := make([]models.StoredFile, 0, len(objects))
	for _, o := range objects {
		if isInternalName(o.Name) {
			continue
		}
		files = append(files, models.StoredFile{
			Filename: o.Name,
			Size:     o.Size,
			Modified: o.Modified,
			IsPublic: idx.Files[o.Name].Public,
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Upload stores every accepted file and counts successes and failures
func (s *fileService) Upload(ctx context.Context, files []*multipart.FileHeader) (*models.UploadResult, error) {
	result := &models.UploadResult{Saved: []string{}}

	for _, fh := range files {
		name, err := s.uploadOne(ctx, fh)
		if err != nil {
			result.Failed++
			s.log.Warn().Err(err).Str("filename", fh.Filename).Msg("Upload rejected")
			continue
		}
		result.Succeeded++
		result.Saved = append(result.Saved, name)
	}

	s.log.Info().
		Int("success_count", result.Succeeded).
		Int("error_count", result.Failed).
		Msg("Upload finished")
	return result, nil
}

func (s *fileService) uploadOne(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if _, errs := s.validator.ValidateUpload(fh.Filename, fh.Size); len(errs) > 0 {
		return "", validation.Err(errs)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	return s.Save(ctx, fh.Filename, f, fh.Size)
}

// Save validates the client-supplied name, resolves collisions and stores r.
// It returns the name the file was stored under.
func (s *fileService) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	name, errs := s.validator.ValidateUpload(name, size)
	if len(errs) > 0 {
		return "", validation.Err(errs)
	}

	name, err := s.reserve(ctx, name)
	if err != nil {
		return "", err
	}
	defer s.release(name)

	if err := s.store.Put(ctx, name, r, size); err != nil {
		return "", apperr.IO("failed to store file", err)
	}
	s.log.Info().Str("filename", name).Int64("size", size).Msg("File stored")
	return name, nil
}

// Delete removes a file and its index entry
func (s *fileService) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return s.wrap(err, "failed to delete file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.loadIndex(ctx)
	if _, ok := idx.Files[name]; ok {
		delete(idx.Files, name)
		if err := s.saveIndex(ctx, idx); err != nil {
			return err
		}
	}

	s.log.Info().Str("filename", name).Msg("File deleted")
	return nil
}

// TogglePublic flips the public flag and returns the new state
func (s *fileService) TogglePublic(ctx context.Context, name string) (bool, error) {
	if _, err := s.store.Stat(ctx, name); err != nil {
		return false, s.wrap(err, "failed to read file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.loadIndex(ctx)
	public := !idx.Files[name].Public
	if public {
		idx.Files[name] = fileMeta{Public: true}
	} else {
		delete(idx.Files, name)
	}
	if err := s.saveIndex(ctx, idx); err != nil {
		return false, err
	}

	s.log.Info().Str("filename", name).Bool("is_public", public).Msg("File visibility changed")
	return public, nil
}

// Open returns the file content and its record. The caller closes the reader.
func (s *fileService) Open(ctx context.Context, name string) (io.ReadCloser, *models.StoredFile, error) {
	if isInternalName(name) {
		return nil, nil, apperr.NotFound("file %q not found", name)
	}
	rc, info, err := s.store.Open(ctx, name)
	if err != nil {
		return nil, nil, s.wrap(err, "failed to open file")
	}

	s.mu.Lock()
	idx := s.loadIndex(ctx)
	s.mu.Unlock()

	return rc, &models.StoredFile{
		Filename: info.Name,
		Size:     info.Size,
		Modified: info.Modified,
		IsPublic: idx.Files[name].Public,
	}, nil
}

// ImportLegacyFlags turns "<name>.public" marker files into index entries
// and removes the markers. Markers without a data file are removed too.
func (s *fileService) ImportLegacyFlags(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, apperr.IO("failed to list files", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.loadIndex(ctx)
	imported := 0
	for _, o := range objects {
		if !strings.HasSuffix(o.Name, legacyFlagSuffix) {
			continue
		}
		target := strings.TrimSuffix(o.Name, legacyFlagSuffix)
		if _, err := s.store.Stat(ctx, target); err == nil {
			idx.Files[target] = fileMeta{Public: true}
			imported++
		}
		if err := s.store.Delete(ctx, o.Name); err != nil {
			s.log.Warn().Err(err).Str("marker", o.Name).Msg("Failed to remove legacy marker")
		}
	}

	if imported > 0 {
		if err := s.saveIndex(ctx, idx); err != nil {
			return 0, err
		}
		s.log.Info().Int("count", imported).Msg("Imported legacy public flags")
	}
	return imported, nil
}

// reserve picks a free name, appending an 8-hex suffix on collision, and holds
// it until release so concurrent uploads cannot pick the same name.
func (s *fileService) reserve(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := name
	for attempt := 0; attempt < 5; attempt++ {
		taken, err := s.taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			s.reserved[candidate] = true
			return candidate, nil
		}
		candidate = UniqueName(name)
	}
	return "", apperr.Exists("could not find a free name for %q", name)
}

func (s *fileService) release(name string) {
	s.mu.Lock()
	delete(s.reserved, name)
	s.mu.Unlock()
}

func (s *fileService) taken(ctx context.Context, name string) (bool, error) {
	if s.reserved[name] {
		return true, nil
	}
	_, err := s.store.Stat(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, apperr.IO("failed to check file", err)
	}
}

// loadIndex must be called with mu held. A missing or malformed index is empty.
func (s *fileService) loadIndex(ctx context.Context) *fileIndex {
	idx := &fileIndex{Files: make(map[string]fileMeta)}

	rc, _, err := s.store.Open(ctx, IndexName)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.log.Warn().Err(err).Msg("Failed to open file index")
		}
		return idx
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(idx); err != nil {
		s.log.Warn().Err(err).Msg("Ignoring malformed file index")
		return &fileIndex{Files: make(map[string]fileMeta)}
	}
	if idx.Files == nil {
		idx.Files = make(map[string]fileMeta)
	}
	return idx
}

// saveIndex must be called with mu held
func (s *fileService) saveIndex(ctx context.Context, idx *fileIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return apperr.IO("failed to encode file index", err)
	}
	if err := s.store.Put(ctx, IndexName, bytes.NewReader(data), int64(len(data))); err != nil {
		s.log.Error().Err(err).Msg("Failed to save file index")
		return apperr.IO("failed to save file index", err)
	}
	return nil
}

func (s *fileService) wrap(err error, message string) error {
	if apperr.CodeOf(err) != apperr.CodeIOFailure {
		return err
	}
	s.log.Error().Err(err).Msg(message)
	return apperr.IO(message, err)
}

// UniqueName inserts "_<8 hex>" before the extension
func UniqueName(name string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return stem + "_" + suffix + ext
}

func isInternalName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, legacyFlagSuffix)
}
