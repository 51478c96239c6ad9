package validation

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/models"
	"github.com/course-portal/internal/pathguard"
)

const (
	maxCourseIDLength = 100
	maxTitleLength    = 200
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator provides validation methods for admin input and uploads
type Validator struct {
	allowedExtensions map[string]bool
	maxFileSize       int64
}

// NewValidator creates a new validator instance. Extensions are matched
// case-insensitively, with or without a leading dot.
func NewValidator(allowedExtensions []string, maxFileSize int64) *Validator {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Validator{
		allowedExtensions: allowed,
		maxFileSize:       maxFileSize,
	}
}

// ValidateCourse validates a trimmed course payload. The id is only checked
// on create; edits keep the id from the URL.
func (v *Validator) ValidateCourse(in *models.CourseInput, create bool) []ValidationError {
	var errors []ValidationError

	// Validate id
	if create {
		if in.ID == "" {
			errors = append(errors, ValidationError{Field: "course_id", Message: "course_id is required"})
		} else if utf8.RuneCountInString(in.ID) > maxCourseIDLength {
			errors = append(errors, ValidationError{
				Field:   "course_id",
				Message: fmt.Sprintf("course_id must be at most %d characters", maxCourseIDLength),
				Value:   in.ID,
			})
		} else if !pathguard.IsSafe(in.ID) || strings.HasPrefix(in.ID, ".") {
			errors = append(errors, ValidationError{Field: "course_id", Message: "invalid course_id", Value: in.ID})
		}
	}

	// Validate title
	errors = append(errors, validateTitle(in.Title)...)

	return errors
}

// ValidateDocument validates a document payload
func (v *Validator) ValidateDocument(in *models.DocumentInput) []ValidationError {
	return validateTitle(strings.TrimSpace(in.Title))
}

// ValidateUpload checks a client-supplied file name and size. It returns the
// name reduced to its base, with Windows and Unix directory parts removed.
func (v *Validator) ValidateUpload(name string, size int64) (string, []ValidationError) {
	var errors []ValidationError

	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	switch {
	case base == "" || base == "." || base == "/":
		errors = append(errors, ValidationError{Field: "file", Message: "empty filename"})
	case strings.HasPrefix(base, "."):
		errors = append(errors, ValidationError{Field: "file", Message: "hidden files are not allowed", Value: base})
	case !pathguard.IsSafe(base):
		errors = append(errors, ValidationError{Field: "file", Message: "invalid filename", Value: base})
	default:
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(base), "."))
		if ext == "" || !v.allowedExtensions[ext] {
			errors = append(errors, ValidationError{Field: "file", Message: "file type is not allowed", Value: base})
		}
	}

	if v.maxFileSize > 0 && size > v.maxFileSize {
		errors = append(errors, ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the maximum size of %d bytes", v.maxFileSize),
			Value:   size,
		})
	}

	return base, errors
}

// Err converts validation errors into an INVALID_INPUT error, or nil when
// there are none
func Err(errors []ValidationError) error {
	if len(errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errors))
	for _, e := range errors {
		if e.Value != nil {
			msgs = append(msgs, fmt.Sprintf("%s (%v)", e.Message, e.Value))
			continue
		}
		msgs = append(msgs, e.Message)
	}
	return apperr.Invalid("%s", strings.Join(msgs, "; "))
}

func validateTitle(title string) []ValidationError {
	if title == "" {
		return []ValidationError{{Field: "title", Message: "title is required"}}
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return []ValidationError{{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxTitleLength),
		}}
	}
	return nil
}
