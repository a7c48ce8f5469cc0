// Package models defines core data structures for resumes, rank requests and match results.
package models

import "time"

// Resume is a stored resume: its identifier (the filename) and cleaned text.
type Resume struct {
	Filename   string    `json:"filename" db:"filename"`
	Text       string    `json:"text" db:"text"`
	SourcePath string    `json:"source_path,omitempty" db:"source_path"`
	Checksum   string    `json:"checksum,omitempty" db:"checksum"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ResumeInput is the JSON body for uploading resume text without a file.
type ResumeInput struct {
	Filename string `json:"filename,omitempty"`
	Text     string `json:"text"`
}
