package ports

import (
	"context"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

// SubmissionProcessor is the inbound contract for processing one submission folder.
type SubmissionProcessor interface {
	ProcessSubmission(ctx context.Context, req domain.ProcessRequest) (domain.ProcessResult, error)
}

// BatchProcessor discovers all submission folders and processes them.
type BatchProcessor interface {
	ProcessAll(ctx context.Context, reprocess bool) (domain.BatchResult, error)
	ProcessFolder(ctx context.Context, folderRef string, reprocess bool) (domain.ProcessResult, error)
}

// ProcessScheduler enqueues submission folders for asynchronous processing.
type ProcessScheduler interface {
	ScheduleAll(ctx context.Context, reprocess bool) (int, error)
	ScheduleFolder(ctx context.Context, folderRef string, reprocess bool) error
}

// SubmissionReader is the inbound read model for submissions.
type SubmissionReader interface {
	ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error)
	GetSummary(ctx context.Context, submissionID string) (*domain.SubmissionSummary, error)
}

// ReportService produces read-only analytics over persisted results.
type ReportService interface {
	Summary(ctx context.Context) (domain.SummaryReport, error)
	Categories(ctx context.Context) ([]domain.CategoryStats, error)
	TopApplicants(ctx context.Context, limit int) ([]domain.ApplicantRanking, error)
}
