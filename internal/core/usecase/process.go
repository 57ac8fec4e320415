package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

const (
	stageRegister = "register"
	stageExtract  = "extract"
	stageClassify = "classify"
	stageGrade    = "grade"
	stagePersist  = "persist"

	defaultDocumentWorkers = 2
)

// ProcessSubmissionUseCase drives one submission through listing, extraction,
// classification, grading and persistence.
type ProcessSubmissionUseCase struct {
	ledger     ports.Ledger
	files      ports.FileStore
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	grader     ports.DocumentGrader
	observer   ports.PipelineObserver

	documentWorkers int
	locks           *keyedMutex
	now             func() time.Time
}

func NewProcessSubmissionUseCase(
	ledger ports.Ledger,
	files ports.FileStore,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	grader ports.DocumentGrader,
	observer ports.PipelineObserver,
	documentWorkers int,
) *ProcessSubmissionUseCase {
	if documentWorkers <= 0 {
		documentWorkers = defaultDocumentWorkers
	}
	return &ProcessSubmissionUseCase{
		ledger:          ledger,
		files:           files,
		extractor:       extractor,
		classifier:      classifier,
		grader:          grader,
		observer:        observerOrNoop(observer),
		documentWorkers: documentWorkers,
		locks:           newKeyedMutex(),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type documentOutcome struct {
	attempted bool
	name      string
	err       error
}

// ProcessSubmission processes one folder. Completed or in-flight submissions are
// skipped unless req.Reprocess is set. A returned error means the submission
// itself could not be processed; per-document failures are only recorded.
func (uc *ProcessSubmissionUseCase) ProcessSubmission(ctx context.Context, req domain.ProcessRequest) (domain.ProcessResult, error) {
	folder := req.Folder
	result := domain.ProcessResult{FolderRef: folder.FolderRef}
	if strings.TrimSpace(folder.FolderRef) == "" {
		return result, domain.WrapError(domain.ErrInvalidInput, "process submission", errors.New("folder reference is required"))
	}

	started := time.Now()
	sub, skipped, err := uc.begin(ctx, folder, req.Reprocess)
	if err != nil {
		return result, err
	}
	result.SubmissionID = sub.ID
	if skipped {
		result.Status = sub.Status
		result.Skipped = true
		slog.Info("submission_skipped", "submission_id", sub.ID, "folder_ref", sub.FolderRef, "status", sub.Status)
		return result, nil
	}

	entries, err := uc.files.ListDocuments(ctx, folder.FolderRef)
	if err != nil {
		cause := fmt.Sprintf("list documents: %v", err)
		uc.finish(ctx, sub.ID, domain.StatusError, cause, started)
		result.Status = domain.StatusError
		result.Error = cause
		slog.Error("submission_listing_failed", "submission_id", sub.ID, "folder_ref", folder.FolderRef, "error", err)
		return result, fmt.Errorf("list documents for %s: %w", folder.FolderRef, err)
	}

	outcomes := uc.processDocuments(ctx, sub.ID, entries)

	result.Total = len(entries)
	var firstFailure *documentOutcome
	attempted := 0
	for i := range outcomes {
		if !outcomes[i].attempted {
			continue
		}
		attempted++
		if outcomes[i].err != nil {
			result.Failed++
			if firstFailure == nil {
				firstFailure = &outcomes[i]
			}
			continue
		}
		result.Processed++
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		cause := fmt.Sprintf("processing cancelled after %d of %d documents", attempted, result.Total)
		uc.finish(ctx, sub.ID, domain.StatusError, cause, started)
		result.Status = domain.StatusError
		result.Error = cause
		return result, ctxErr
	}

	result.Status, result.Error = aggregateStatus(result.Total, result.Failed, firstFailure)
	uc.finish(ctx, sub.ID, result.Status, result.Error, started)
	slog.Info(
		"submission_processed",
		"submission_id", sub.ID,
		"folder_ref", sub.FolderRef,
		"status", result.Status,
		"documents", result.Total,
		"failed", result.Failed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

// begin registers the submission and moves it to processing under the
// per-submission lock.
func (uc *ProcessSubmissionUseCase) begin(ctx context.Context, folder domain.SubmissionFolder, reprocess bool) (*domain.Submission, bool, error) {
	now := uc.now()
	applicant, email := applicantOf(folder)
	sub, err := uc.ledger.CreateSubmission(ctx, &domain.Submission{
		ID:             uuid.NewString(),
		ApplicantName:  applicant,
		ApplicantEmail: email,
		FolderRef:      folder.FolderRef,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, false, fmt.Errorf("register submission: %w", err)
	}

	unlock := uc.locks.Lock(sub.ID)
	defer unlock()

	current, err := uc.ledger.GetSubmission(ctx, sub.ID)
	if err != nil {
		return nil, false, fmt.Errorf("load submission: %w", err)
	}
	if !reprocess && (current.Status == domain.StatusCompleted || current.Status == domain.StatusProcessing) {
		return current, true, nil
	}
	if err := uc.ledger.UpdateSubmissionStatus(ctx, current.ID, domain.StatusProcessing, ""); err != nil {
		return nil, false, fmt.Errorf("set status=processing: %w", err)
	}
	current.Status = domain.StatusProcessing
	current.Error = ""
	return current, false, nil
}

// processDocuments runs document attempts with bounded concurrency and waits for
// all of them. Entries not started before cancellation stay unattempted.
func (uc *ProcessSubmissionUseCase) processDocuments(ctx context.Context, submissionID string, entries []domain.FileEntry) []documentOutcome {
	outcomes := make([]documentOutcome, len(entries))

	var g errgroup.Group
	g.SetLimit(uc.documentWorkers)
	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = uc.processDocument(ctx, submissionID, entry)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (uc *ProcessSubmissionUseCase) processDocument(ctx context.Context, submissionID string, entry domain.FileEntry) documentOutcome {
	outcome := documentOutcome{attempted: true, name: entry.Name}
	started := time.Now()

	doc, err := uc.ledger.CreateDocument(ctx, &domain.Document{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		Name:         entry.Name,
		FileRef:      entry.FileRef,
		MediaType:    entry.MediaType,
		CreatedAt:    uc.now(),
	})
	if err != nil {
		outcome.err = fmt.Errorf("register document: %w", err)
		uc.observer.DocumentFailed(stageRegister)
		slog.Error("document_failed", "submission_id", submissionID, "file", entry.Name, "stage", stageRegister, "error", err)
		return outcome
	}

	graded, stage, err := uc.runDocument(ctx, doc)
	if err != nil {
		outcome.err = err
		uc.observer.DocumentFailed(stage)
		uc.markDocumentFailed(ctx, doc, err)
		slog.Warn("document_failed", "submission_id", submissionID, "document_id", doc.ID, "file", doc.Name, "stage", stage, "error", err)
		return outcome
	}

	uc.observer.DocumentProcessed(graded.Category, graded.GradedBy, time.Since(started))
	slog.Debug(
		"document_processed",
		"document_id", doc.ID,
		"file", doc.Name,
		"category", graded.Category,
		"total_score", graded.TotalScore,
		"graded_by", graded.GradedBy,
	)
	return outcome
}

// runDocument extracts, classifies, grades and persists one document. Panics are
// converted into a document failure at the stage where they happened.
func (uc *ProcessSubmissionUseCase) runDocument(ctx context.Context, doc *domain.Document) (result domain.GradeResult, stage string, err error) {
	stage = stageExtract
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure during %s: %v", stage, r)
		}
	}()

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return result, stage, fmt.Errorf("extract text: %w", err)
	}

	stage = stageClassify
	category := uc.classifier.Classify(ctx, doc.Name, doc.MediaType, text)

	stage = stageGrade
	result = uc.grader.Grade(ctx, category, text, doc.Name)
	result.Category = category

	stage = stagePersist
	if result.Scored {
		score := &domain.Score{
			ID:             uuid.NewString(),
			DocumentID:     doc.ID,
			SubmissionID:   doc.SubmissionID,
			Category:       category,
			TotalScore:     result.TotalScore,
			MaxScore:       result.MaxScore,
			CriteriaScores: result.CriteriaScores,
			Feedback:       result.Feedback,
			GradedBy:       result.GradedBy,
			CreatedAt:      uc.now(),
		}
		if err := uc.ledger.CreateScore(ctx, score); err != nil {
			return result, stage, fmt.Errorf("persist score: %w", err)
		}
	}
	if err := uc.ledger.UpdateDocument(ctx, doc.ID, domain.DocumentUpdate{Category: category, Processed: true}); err != nil {
		return result, stage, fmt.Errorf("mark document processed: %w", err)
	}
	return result, stage, nil
}

func (uc *ProcessSubmissionUseCase) markDocumentFailed(ctx context.Context, doc *domain.Document, cause error) {
	update := domain.DocumentUpdate{Category: doc.Category, Processed: false, Error: cause.Error()}
	if err := uc.ledger.UpdateDocument(context.WithoutCancel(ctx), doc.ID, update); err != nil {
		slog.Error("document_mark_failed_error", "document_id", doc.ID, "error", err)
	}
}

// finish writes the final status under the per-submission lock. It runs on a
// detached context so cancelled runs are still recorded.
func (uc *ProcessSubmissionUseCase) finish(ctx context.Context, submissionID string, status domain.SubmissionStatus, detail string, started time.Time) {
	unlock := uc.locks.Lock(submissionID)
	defer unlock()

	if err := uc.ledger.UpdateSubmissionStatus(context.WithoutCancel(ctx), submissionID, status, detail); err != nil {
		slog.Error("submission_status_update_failed", "submission_id", submissionID, "status", status, "error", err)
	}
	uc.observer.SubmissionFinished(status, time.Since(started))
}

func aggregateStatus(total, failed int, firstFailure *documentOutcome) (domain.SubmissionStatus, string) {
	switch {
	case failed == 0:
		return domain.StatusCompleted, ""
	case failed == total:
		cause := ""
		if firstFailure != nil {
			cause = fmt.Sprintf(": %s: %v", firstFailure.name, firstFailure.err)
		}
		return domain.StatusError, fmt.Sprintf("all %d documents failed%s", total, cause)
	default:
		return domain.StatusCompleted, fmt.Sprintf("%d of %d documents failed", failed, total)
	}
}

// applicantOf prefers the folder's explicit applicant fields and fills any
// missing one from the folder name.
func applicantOf(folder domain.SubmissionFolder) (name, email string) {
	name = strings.TrimSpace(folder.ApplicantName)
	email = strings.TrimSpace(folder.ApplicantEmail)
	parsedName, parsedEmail := domain.ParseFolderName(folder.Name)
	if name == "" {
		name = parsedName
	}
	if email == "" {
		email = parsedEmail
	}
	return name, email
}
