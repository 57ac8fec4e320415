package domain

import (
	"strings"
	"time"
)

type SubmissionStatus string

const (
	StatusPending    SubmissionStatus = "pending"
	StatusProcessing SubmissionStatus = "processing"
	StatusCompleted  SubmissionStatus = "completed"
	StatusError      SubmissionStatus = "error"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

type Submission struct {
	ID             string           `json:"id"`
	ApplicantName  string           `json:"applicant_name"`
	ApplicantEmail string           `json:"applicant_email"`
	FolderRef      string           `json:"folder_ref"`
	Status         SubmissionStatus `json:"status"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// SubmissionFolder is one applicant folder discovered in the external store.
type SubmissionFolder struct {
	FolderRef      string `json:"folder_ref"`
	Name           string `json:"name,omitempty"`
	ApplicantName  string `json:"applicant_name"`
	ApplicantEmail string `json:"applicant_email"`
}

const folderNameSeparator = " - "

// ParseFolderName splits a folder named "Applicant Name - applicant@example.com".
// Names without the separator are treated as the applicant name alone.
func ParseFolderName(name string) (applicant, email string) {
	name = strings.TrimSpace(name)
	before, after, found := strings.Cut(name, folderNameSeparator)
	if !found {
		return name, ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// NewSubmissionFolder builds a folder descriptor from its store reference and display name.
func NewSubmissionFolder(ref, name string) SubmissionFolder {
	applicant, email := ParseFolderName(name)
	return SubmissionFolder{
		FolderRef:      ref,
		Name:           name,
		ApplicantName:  applicant,
		ApplicantEmail: email,
	}
}

// SubmissionSummary is the read model of one submission with its documents and latest scores.
type SubmissionSummary struct {
	Submission    Submission        `json:"submission"`
	Documents     []DocumentSummary `json:"documents"`
	TotalScore    float64           `json:"total_score"`
	DocumentCount int               `json:"document_count"`
}

type DocumentSummary struct {
	Document
	Score *Score `json:"score,omitempty"`
}
