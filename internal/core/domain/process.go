package domain

// ProcessRequest asks for one submission folder to be processed.
type ProcessRequest struct {
	Folder    SubmissionFolder `json:"folder"`
	Reprocess bool             `json:"reprocess,omitempty"`
}

// ProcessResult is the outcome of one submission run.
type ProcessResult struct {
	SubmissionID string           `json:"submission_id"`
	FolderRef    string           `json:"folder_ref"`
	Status       SubmissionStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
	Total        int              `json:"total"`
	Processed    int              `json:"processed"`
	Failed       int              `json:"failed"`
	Skipped      bool             `json:"skipped,omitempty"`
}

// BatchResult aggregates a discovery run over all submission folders.
type BatchResult struct {
	Discovered int             `json:"discovered"`
	Processed  int             `json:"processed"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	Results    []ProcessResult `json:"results"`
}
