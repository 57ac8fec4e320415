package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

const scoreColumns = `id, document_id, submission_id, category, total_score, max_score, criteria_scores, feedback, graded_by, created_at`

func (l *Ledger) CreateScore(ctx context.Context, score *domain.Score) error {
	criteria := score.CriteriaScores
	if criteria == nil {
		criteria = map[string]float64{}
	}
	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria scores: %w", err)
	}

	_, err = l.exec(ctx, `
INSERT INTO scores (`+scoreColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?)
`,
		score.ID, score.DocumentID, score.SubmissionID, string(score.Category), score.TotalScore, score.MaxScore,
		string(criteriaJSON), score.Feedback, string(score.GradedBy), utc(score.CreatedAt),
	)
	if err != nil {
		return wrapDBError("insert score", err)
	}
	return nil
}

// GetScores returns every score row of a document, oldest first.
func (l *Ledger) GetScores(ctx context.Context, documentID string) ([]domain.Score, error) {
	return l.listScores(ctx, "document_id", documentID)
}

func (l *Ledger) GetSubmissionScores(ctx context.Context, submissionID string) ([]domain.Score, error) {
	return l.listScores(ctx, "submission_id", submissionID)
}

func (l *Ledger) listScores(ctx context.Context, column, value string) ([]domain.Score, error) {
	rows, err := l.query(ctx, `
SELECT `+scoreColumns+`
FROM scores
WHERE `+column+` = ?
ORDER BY created_at, id
`, value)
	if err != nil {
		return nil, wrapDBError("list scores", err)
	}
	defer rows.Close()

	out := make([]domain.Score, 0)
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, score)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate scores", err)
	}
	return out, nil
}

func scanScore(row rowScanner) (domain.Score, error) {
	var (
		score        domain.Score
		category     string
		gradedBy     string
		criteriaJSON []byte
	)
	if err := row.Scan(
		&score.ID, &score.DocumentID, &score.SubmissionID, &category, &score.TotalScore, &score.MaxScore,
		&criteriaJSON, &score.Feedback, &gradedBy, &score.CreatedAt,
	); err != nil {
		return domain.Score{}, wrapDBError("scan score", err)
	}
	if err := json.Unmarshal(criteriaJSON, &score.CriteriaScores); err != nil {
		return domain.Score{}, fmt.Errorf("unmarshal criteria scores: %w", err)
	}
	score.Category = domain.Category(category)
	score.GradedBy = domain.GradedBy(gradedBy)
	return score, nil
}
