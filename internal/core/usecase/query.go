package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

// SubmissionQueryUseCase is the read model over the ledger.
type SubmissionQueryUseCase struct {
	ledger ports.Ledger
}

func NewSubmissionQueryUseCase(ledger ports.Ledger) *SubmissionQueryUseCase {
	return &SubmissionQueryUseCase{ledger: ledger}
}

// ListSubmissions lists submissions; an empty status lists all of them.
func (uc *SubmissionQueryUseCase) ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	if status != "" && !status.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list submissions", fmt.Errorf("unknown status %q", status))
	}
	subs, err := uc.ledger.ListSubmissions(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// GetSummary returns a submission with its documents and their latest scores.
func (uc *SubmissionQueryUseCase) GetSummary(ctx context.Context, submissionID string) (*domain.SubmissionSummary, error) {
	sub, err := uc.ledger.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	summary, err := summarize(ctx, uc.ledger, *sub)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func summarize(ctx context.Context, ledger ports.Ledger, sub domain.Submission) (domain.SubmissionSummary, error) {
	docs, err := ledger.ListDocuments(ctx, sub.ID)
	if err != nil {
		return domain.SubmissionSummary{}, fmt.Errorf("list documents: %w", err)
	}
	scores, err := ledger.GetSubmissionScores(ctx, sub.ID)
	if err != nil {
		return domain.SubmissionSummary{}, fmt.Errorf("list scores: %w", err)
	}
	latest := domain.LatestScores(scores)

	summary := domain.SubmissionSummary{
		Submission:    sub,
		Documents:     make([]domain.DocumentSummary, 0, len(docs)),
		DocumentCount: len(docs),
	}
	var total float64
	for _, doc := range docs {
		item := domain.DocumentSummary{Document: doc}
		if score, ok := latest[doc.ID]; ok {
			item.Score = &score
			total += score.TotalScore
		}
		summary.Documents = append(summary.Documents, item)
	}
	summary.TotalScore = domain.Round2(total)
	return summary, nil
}
