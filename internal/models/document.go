package models

// DocumentExt is the extension of course documents
const DocumentExt = ".md"

// DocumentSummary is a document as listed in a course
type DocumentSummary struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

// Document is a rendered course document
type Document struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Content  string `json:"content"` // rendered HTML
	TOC      string `json:"toc,omitempty"`
}

// RawDocument is the unrendered markdown used by the admin editor
type RawDocument struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// DocumentInput is the admin payload for creating or editing a document
type DocumentInput struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

// DocumentPage is the document view payload
type DocumentPage struct {
	Course    Course            `json:"course"`
	Document  *Document         `json:"document"`
	Documents []DocumentSummary `json:"documents"`
}
