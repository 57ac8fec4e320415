package domain

type SummaryReport struct {
	TotalSubmissions int     `json:"total_submissions"`
	Pending          int     `json:"pending"`
	Processing       int     `json:"processing"`
	Completed        int     `json:"completed"`
	Errors           int     `json:"errors"`
	TotalDocuments   int     `json:"total_documents"`
	ScoredDocuments  int     `json:"scored_documents"`
	AverageScore     float64 `json:"average_score"`
	HighScore        float64 `json:"high_score"`
	LowScore         float64 `json:"low_score"`
}

type CategoryStats struct {
	Category     Category `json:"category"`
	Count        int      `json:"count"`
	AverageScore float64  `json:"average_score"`
	MinScore     float64  `json:"min_score"`
	MaxScore     float64  `json:"max_score"`
}

type ApplicantRanking struct {
	SubmissionID   string           `json:"submission_id"`
	ApplicantName  string           `json:"applicant_name"`
	ApplicantEmail string           `json:"applicant_email"`
	TotalScore     float64          `json:"total_score"`
	DocumentCount  int              `json:"document_count"`
	Status         SubmissionStatus `json:"status"`
}
