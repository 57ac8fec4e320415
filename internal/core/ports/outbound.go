package ports

import (
	"context"
	"time"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/rubric"
)

// FileStore lists applicant folders and their files in the external store.
type FileStore interface {
	ListSubmissionFolders(ctx context.Context) ([]domain.SubmissionFolder, error)
	ListDocuments(ctx context.Context, folderRef string) ([]domain.FileEntry, error)
	Download(ctx context.Context, fileRef string) ([]byte, error)
}

// TextExtractor extracts plain text from a stored document.
// Unsupported or corrupt formats fail with domain.ErrExtraction.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// DocumentClassifier assigns a category. It never fails.
type DocumentClassifier interface {
	Classify(ctx context.Context, name, mediaType, text string) domain.Category
}

// DocumentGrader scores a document against its category rubric. It never fails.
type DocumentGrader interface {
	Grade(ctx context.Context, category domain.Category, text, name string) domain.GradeResult
}

// ClassificationOracle is the optional AI classification capability.
type ClassificationOracle interface {
	ClassifyDocument(ctx context.Context, name, excerpt string) (domain.OracleClassification, error)
}

// ScoringOracle is the optional AI scoring capability.
type ScoringOracle interface {
	ScoreDocument(ctx context.Context, category domain.Category, def rubric.Definition, excerpt string) (domain.OracleScore, error)
}

// SubmissionStore persists submissions. CreateSubmission is idempotent on folder_ref
// and returns the stored record.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub *domain.Submission) (*domain.Submission, error)
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)
	GetSubmissionByFolderRef(ctx context.Context, folderRef string) (*domain.Submission, error)
	ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, id string, status domain.SubmissionStatus, errMessage string) error
}

// DocumentStore persists documents. CreateDocument is idempotent on file_ref.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, submissionID string) ([]domain.Document, error)
	UpdateDocument(ctx context.Context, id string, update domain.DocumentUpdate) error
}

// ScoreStore appends immutable score rows.
type ScoreStore interface {
	CreateScore(ctx context.Context, score *domain.Score) error
	GetScores(ctx context.Context, documentID string) ([]domain.Score, error)
	GetSubmissionScores(ctx context.Context, submissionID string) ([]domain.Score, error)
}

// Ledger is the persistence boundary used by the pipeline.
type Ledger interface {
	SubmissionStore
	DocumentStore
	ScoreStore
}

// MessageQueue publishes and consumes submission processing requests.
type MessageQueue interface {
	PublishProcessRequest(ctx context.Context, req domain.ProcessRequest) error
	SubscribeProcessRequests(ctx context.Context, concurrency int, handler func(context.Context, domain.ProcessRequest) error) error
}

// PipelineObserver receives pipeline events for metrics.
type PipelineObserver interface {
	DocumentProcessed(category domain.Category, gradedBy domain.GradedBy, duration time.Duration)
	DocumentFailed(stage string)
	OracleFallback(operation string)
	SubmissionFinished(status domain.SubmissionStatus, duration time.Duration)
}
