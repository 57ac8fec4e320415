package domain

import (
	"math"
	"time"
)

type GradedBy string

const (
	GradedByOracle   GradedBy = "oracle"
	GradedByFallback GradedBy = "fallback"
)

// Score is an immutable grading record. Re-grading appends a new row.
type Score struct {
	ID             string             `json:"id"`
	DocumentID     string             `json:"document_id"`
	SubmissionID   string             `json:"submission_id"`
	Category       Category           `json:"category"`
	TotalScore     float64            `json:"total_score"`
	MaxScore       float64            `json:"max_score"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Feedback       string             `json:"feedback"`
	GradedBy       GradedBy           `json:"graded_by"`
	CreatedAt      time.Time          `json:"created_at"`
}

// GradeResult is the output of a grading policy.
type GradeResult struct {
	Category       Category           `json:"category"`
	TotalScore     float64            `json:"total_score"`
	MaxScore       float64            `json:"max_score"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Feedback       string             `json:"feedback"`
	GradedBy       GradedBy           `json:"graded_by,omitempty"`
	// Scored is false when the category has no rubric; such results are not persisted.
	Scored bool `json:"scored"`
}

// OracleClassification is the raw answer of the AI classification oracle.
type OracleClassification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// OracleScore is the raw answer of the AI scoring oracle.
type OracleScore struct {
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Feedback       string             `json:"feedback"`
}

// LatestScores keeps the most recent score per document.
func LatestScores(scores []Score) map[string]Score {
	out := make(map[string]Score, len(scores))
	for _, s := range scores {
		current, ok := out[s.DocumentID]
		if !ok || s.CreatedAt.After(current.CreatedAt) {
			out[s.DocumentID] = s
		}
	}
	return out
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
