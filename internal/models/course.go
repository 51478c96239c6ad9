package models

// Default values for course fields missing from course.json
const (
	DefaultDescription = "No description available"
	DefaultInstructor  = "Unknown"
)

// Course represents a course directory and its metadata
type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Instructor  string `json:"instructor"`
	Duration    string `json:"duration,omitempty"`
	Level       string `json:"level,omitempty"`
	DocsCount   int    `json:"docs_count"`
}

// CourseInput is the admin form/JSON payload for creating or editing a course
type CourseInput struct {
	ID          string `json:"course_id" form:"course_id"`
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Instructor  string `json:"instructor" form:"instructor"`
	Duration    string `json:"duration" form:"duration"`
	Level       string `json:"level" form:"level"`
}

// CourseListItem is a course as shown on the landing page
type CourseListItem struct {
	Course
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

// CourseDetail is the course page payload
type CourseDetail struct {
	Course    Course            `json:"course"`
	Documents []DocumentSummary `json:"documents"`
	Progress  Progress          `json:"progress"`
	Completed int               `json:"completed_docs"`
	Likes     int               `json:"likes"`
	Liked     bool              `json:"liked"`
}
