package usecase

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

const defaultTopApplicants = 10

// ReportUseCase computes read-only analytics from the latest score of each document.
type ReportUseCase struct {
	ledger ports.Ledger
}

func NewReportUseCase(ledger ports.Ledger) *ReportUseCase {
	return &ReportUseCase{ledger: ledger}
}

func (uc *ReportUseCase) Summary(ctx context.Context) (domain.SummaryReport, error) {
	summaries, err := uc.loadAll(ctx)
	if err != nil {
		return domain.SummaryReport{}, err
	}

	report := domain.SummaryReport{TotalSubmissions: len(summaries)}
	var sum float64
	for _, s := range summaries {
		switch s.Submission.Status {
		case domain.StatusPending:
			report.Pending++
		case domain.StatusProcessing:
			report.Processing++
		case domain.StatusCompleted:
			report.Completed++
		case domain.StatusError:
			report.Errors++
		}
		report.TotalDocuments += s.DocumentCount
		for _, doc := range s.Documents {
			if doc.Score == nil {
				continue
			}
			total := doc.Score.TotalScore
			if report.ScoredDocuments == 0 || total > report.HighScore {
				report.HighScore = total
			}
			if report.ScoredDocuments == 0 || total < report.LowScore {
				report.LowScore = total
			}
			report.ScoredDocuments++
			sum += total
		}
	}
	if report.ScoredDocuments > 0 {
		report.AverageScore = domain.Round2(sum / float64(report.ScoredDocuments))
	}
	return report, nil
}

// Categories reports score statistics per category in classification order.
func (uc *ReportUseCase) Categories(ctx context.Context) ([]domain.CategoryStats, error) {
	summaries, err := uc.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[domain.Category]*categoryAccumulator)
	for _, s := range summaries {
		for _, doc := range s.Documents {
			if doc.Score == nil {
				continue
			}
			acc, ok := byCategory[doc.Score.Category]
			if !ok {
				acc = &categoryAccumulator{min: math.Inf(1), max: math.Inf(-1)}
				byCategory[doc.Score.Category] = acc
			}
			acc.add(doc.Score.TotalScore)
		}
	}

	out := make([]domain.CategoryStats, 0, len(byCategory))
	for _, category := range domain.ClassificationOrder {
		acc, ok := byCategory[category]
		if !ok {
			continue
		}
		out = append(out, domain.CategoryStats{
			Category:     category,
			Count:        acc.count,
			AverageScore: domain.Round2(acc.sum / float64(acc.count)),
			MinScore:     acc.min,
			MaxScore:     acc.max,
		})
	}
	return out, nil
}

// TopApplicants ranks submissions by the sum of their latest document scores.
func (uc *ReportUseCase) TopApplicants(ctx context.Context, limit int) ([]domain.ApplicantRanking, error) {
	if limit <= 0 {
		limit = defaultTopApplicants
	}
	summaries, err := uc.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	rankings := make([]domain.ApplicantRanking, 0, len(summaries))
	for _, s := range summaries {
		rankings = append(rankings, domain.ApplicantRanking{
			SubmissionID:   s.Submission.ID,
			ApplicantName:  s.Submission.ApplicantName,
			ApplicantEmail: s.Submission.ApplicantEmail,
			TotalScore:     s.TotalScore,
			DocumentCount:  s.DocumentCount,
			Status:         s.Submission.Status,
		})
	}
	slices.SortStableFunc(rankings, func(a, b domain.ApplicantRanking) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ApplicantName, b.ApplicantName)
	})
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	return rankings, nil
}

func (uc *ReportUseCase) loadAll(ctx context.Context) ([]domain.SubmissionSummary, error) {
	subs, err := uc.ledger.ListSubmissions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]domain.SubmissionSummary, 0, len(subs))
	for _, sub := range subs {
		summary, err := summarize(ctx, uc.ledger, sub)
		if err != nil {
			return nil, fmt.Errorf("summarize submission %s: %w", sub.ID, err)
		}
		out = append(out, summary)
	}
	return out, nil
}

type categoryAccumulator struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (a *categoryAccumulator) add(v float64) {
	a.count++
	a.sum += v
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
}
