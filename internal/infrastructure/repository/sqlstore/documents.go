package sqlstore

import (
	"context"
	"time"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

const documentColumns = `id, submission_id, name, file_ref, media_type, category, processed, error_message, created_at`

// CreateDocument inserts the document or refreshes name and media type of the
// row already stored for its file_ref.
func (l *Ledger) CreateDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	row := l.queryRow(ctx, `
INSERT INTO documents (`+documentColumns+`, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (file_ref) DO UPDATE SET name = excluded.name, media_type = excluded.media_type
RETURNING `+documentColumns,
		doc.ID, doc.SubmissionID, doc.Name, doc.FileRef, doc.MediaType, string(doc.Category), doc.Processed, doc.Error,
		utc(doc.CreatedAt), time.Now().UTC(),
	)
	stored, err := scanDocument(row)
	if err != nil {
		return nil, wrapDBError("create document", err)
	}
	return stored, nil
}

func (l *Ledger) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := l.queryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, wrapDBError("get document "+id, err)
	}
	return doc, nil
}

func (l *Ledger) ListDocuments(ctx context.Context, submissionID string) ([]domain.Document, error) {
	rows, err := l.query(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE submission_id = ?
ORDER BY name, id
`, submissionID)
	if err != nil {
		return nil, wrapDBError("list documents", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, wrapDBError("scan document", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate documents", err)
	}
	return out, nil
}

func (l *Ledger) UpdateDocument(ctx context.Context, id string, update domain.DocumentUpdate) error {
	res, err := l.exec(ctx, `
UPDATE documents
SET category = ?, processed = ?, error_message = ?, updated_at = ?
WHERE id = ?
`, string(update.Category), update.Processed, update.Error, time.Now().UTC(), id)
	if err != nil {
		return wrapDBError("update document", err)
	}
	return expectOneRow(res, "update document", id)
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc      domain.Document
		category string
	)
	if err := row.Scan(
		&doc.ID, &doc.SubmissionID, &doc.Name, &doc.FileRef, &doc.MediaType, &category, &doc.Processed, &doc.Error,
		&doc.CreatedAt,
	); err != nil {
		return nil, err
	}
	doc.Category = domain.Category(category)
	return &doc, nil
}
