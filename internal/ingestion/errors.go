// Package ingestion turns uploaded resumes and job descriptions into clean
// plain text that keeps the line structure the scorer relies on.
package ingestion

import "fmt"

// UnsupportedFormatError is returned for files whose type cannot be read.
type UnsupportedFormatError struct {
	Filename string
	Ext      string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("unsupported file format: %q has no extension", e.Filename)
	}
	return fmt.Sprintf("unsupported file format %q: use .pdf, .docx, .html, .txt or .md", e.Ext)
}

// ExtractionError is returned when a supported file cannot be decoded.
type ExtractionError struct {
	Format  string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s extraction error: %s: %v", e.Format, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s extraction error: %s", e.Format, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
