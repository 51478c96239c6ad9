package models

import "time"

// StoredFile represents an uploaded file in the file storage area
type StoredFile struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	IsPublic bool      `json:"is_public"`
}

// UploadResult summarizes a multi-file upload
type UploadResult struct {
	Saved     []string `json:"saved"`
	Succeeded int      `json:"success_count"`
	Failed    int      `json:"error_count"`
}
