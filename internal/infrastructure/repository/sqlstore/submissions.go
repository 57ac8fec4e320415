package sqlstore

import (
	"context"
	"time"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

const submissionColumns = `id, applicant_name, applicant_email, folder_ref, status, error_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateSubmission inserts the submission or returns the row already stored
// for its folder_ref.
func (l *Ledger) CreateSubmission(ctx context.Context, sub *domain.Submission) (*domain.Submission, error) {
	row := l.queryRow(ctx, `
INSERT INTO submissions (`+submissionColumns+`)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT (folder_ref) DO UPDATE SET folder_ref = excluded.folder_ref
RETURNING `+submissionColumns,
		sub.ID, sub.ApplicantName, sub.ApplicantEmail, sub.FolderRef, string(sub.Status), sub.Error,
		utc(sub.CreatedAt), utc(sub.UpdatedAt),
	)
	stored, err := scanSubmission(row)
	if err != nil {
		return nil, wrapDBError("create submission", err)
	}
	return stored, nil
}

func (l *Ledger) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	row := l.queryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, wrapDBError("get submission "+id, err)
	}
	return sub, nil
}

func (l *Ledger) GetSubmissionByFolderRef(ctx context.Context, folderRef string) (*domain.Submission, error) {
	row := l.queryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE folder_ref = ?`, folderRef)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, wrapDBError("get submission by folder "+folderRef, err)
	}
	return sub, nil
}

// ListSubmissions returns submissions oldest first; an empty status lists all.
func (l *Ledger) ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := l.query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list submissions", err)
	}
	defer rows.Close()

	out := make([]domain.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, wrapDBError("scan submission", err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate submissions", err)
	}
	return out, nil
}

func (l *Ledger) UpdateSubmissionStatus(ctx context.Context, id string, status domain.SubmissionStatus, errMessage string) error {
	res, err := l.exec(ctx, `
UPDATE submissions
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?
`, string(status), errMessage, time.Now().UTC(), id)
	if err != nil {
		return wrapDBError("update submission status", err)
	}
	return expectOneRow(res, "update submission status", id)
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var (
		sub    domain.Submission
		status string
	)
	if err := row.Scan(
		&sub.ID, &sub.ApplicantName, &sub.ApplicantEmail, &sub.FolderRef, &status, &sub.Error,
		&sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sub.Status = domain.SubmissionStatus(status)
	return &sub, nil
}
