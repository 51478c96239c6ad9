package models

// SearchResult is one matching document
type SearchResult struct {
	CourseID    string `json:"course_id"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	CourseTitle string `json:"course_title"`
	Snippet     string `json:"snippet"`
}
