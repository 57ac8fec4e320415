package domain

import (
	"path/filepath"
	"strings"
	"time"
)

type Category string

const (
	CategoryEssay                  Category = "essay"
	CategoryTranscript             Category = "transcript"
	CategoryLetterOfRecommendation Category = "letter_of_recommendation"
	CategoryOther                  Category = "other"
)

// ClassificationOrder is the fixed priority order used for matching and tie-breaks.
// CategoryOther is never matched directly.
var ClassificationOrder = []Category{
	CategoryEssay,
	CategoryTranscript,
	CategoryLetterOfRecommendation,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryEssay, CategoryTranscript, CategoryLetterOfRecommendation, CategoryOther:
		return true
	default:
		return false
	}
}

func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	return c, c.Valid()
}

type Document struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Name         string    `json:"name"`
	FileRef      string    `json:"file_ref"`
	MediaType    string    `json:"media_type"`
	Category     Category  `json:"category,omitempty"`
	Processed    bool      `json:"processed"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Failed reports whether the last processing attempt ended with a recorded error.
func (d Document) Failed() bool {
	return !d.Processed && d.Error != ""
}

// Extension returns the lowercase file extension, falling back to the media type.
func (d Document) Extension() string {
	return FileExtension(d.Name, d.MediaType)
}

// DocumentUpdate carries the mutable fields of a document.
type DocumentUpdate struct {
	Category  Category
	Processed bool
	Error     string
}

// FileEntry is a file listed in a submission folder of the external store.
type FileEntry struct {
	FileRef   string `json:"file_ref"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
}

var mediaTypeExtensions = map[string]string{
	"application/pdf":    ".pdf",
	"text/plain":         ".txt",
	"text/csv":           ".csv",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       ".xlsx",
	"application/vnd.ms-excel":                                                ".xls",
	"application/vnd.google-apps.document":                                    ".txt",
	"application/vnd.google-apps.spreadsheet":                                 ".csv",
}

// FileExtension returns the lowercase extension of name or, when name has none,
// the extension conventionally associated with mediaType.
func FileExtension(name, mediaType string) string {
	if ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name))); ext != "" {
		return ext
	}
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mediaTypeExtensions[mt]
}
