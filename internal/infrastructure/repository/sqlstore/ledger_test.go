package sqlstore

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

func newLedgerWithMock(t *testing.T) (*Ledger, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return New(db, Postgres), mock, func() { _ = db.Close() }
}

func TestRebind(t *testing.T) {
	pg := New(nil, Postgres)
	if got := pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?"); got != "SELECT a FROM t WHERE b = $1 AND c = $2" {
		t.Fatalf("rebind() = %q", got)
	}
	lite := New(nil, SQLite)
	if got := lite.rebind("WHERE b = ?"); got != "WHERE b = ?" {
		t.Fatalf("rebind() = %q", got)
	}
}

func TestGetSubmissionReturnsDomainNotFound(t *testing.T) {
	ledger, mock, done := newLedgerWithMock(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := ledger.GetSubmission(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateSubmissionReturnsStoredRow(t *testing.T) {
	ledger, mock, done := newLedgerWithMock(t)
	defer done()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "applicant_name", "applicant_email", "folder_ref", "status", "error_message", "created_at", "updated_at"}).
		AddRow("existing-id", "Jane Doe", "jane@x.com", "folder-1", "completed", "", created, created)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (folder_ref) DO UPDATE")).
		WithArgs("new-id", "Jane Doe", "jane@x.com", "folder-1", "pending", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	sub, err := ledger.CreateSubmission(context.Background(), &domain.Submission{
		ID:             "new-id",
		ApplicantName:  "Jane Doe",
		ApplicantEmail: "jane@x.com",
		FolderRef:      "folder-1",
		Status:         domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}
	if sub.ID != "existing-id" || sub.Status != domain.StatusCompleted {
		t.Fatalf("expected the stored row, got %+v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateSubmissionStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	ledger, mock, done := newLedgerWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE submissions").
		WithArgs(string(domain.StatusProcessing), "", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ledger.UpdateSubmissionStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListSubmissionsFiltersByStatus(t *testing.T) {
	ledger, mock, done := newLedgerWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "applicant_name", "applicant_email", "folder_ref", "status", "error_message", "created_at", "updated_at"}).
		AddRow("s1", "A", "", "f1", "error", "all 1 documents failed", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 ORDER BY created_at, id")).
		WithArgs("error").
		WillReturnRows(rows)

	subs, err := ledger.ListSubmissions(context.Background(), domain.StatusError)
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(subs) != 1 || subs[0].Error != "all 1 documents failed" {
		t.Fatalf("unexpected submissions: %+v", subs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateDocumentReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	ledger, mock, done := newLedgerWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("essay", true, "", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ledger.UpdateDocument(context.Background(), "missing", domain.DocumentUpdate{Category: domain.CategoryEssay, Processed: true})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateScoreStoresCriteriaAsJSON(t *testing.T) {
	ledger, mock, done := newLedgerWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO scores").
		WithArgs("score-1", "doc-1", "sub-1", "transcript", 80.0, 100.0, `{"course_rigor":30,"gpa":50}`, "ok", "fallback", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ledger.CreateScore(context.Background(), &domain.Score{
		ID:             "score-1",
		DocumentID:     "doc-1",
		SubmissionID:   "sub-1",
		Category:       domain.CategoryTranscript,
		TotalScore:     80,
		MaxScore:       100,
		CriteriaScores: map[string]float64{"gpa": 50, "course_rigor": 30},
		Feedback:       "ok",
		GradedBy:       domain.GradedByFallback,
	})
	if err != nil {
		t.Fatalf("CreateScore() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetScoresDecodesCriteria(t *testing.T) {
	ledger, mock, done := newLedgerWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "document_id", "submission_id", "category", "total_score", "max_score", "criteria_scores", "feedback", "graded_by", "created_at"}).
		AddRow("score-1", "doc-1", "sub-1", "essay", 75.0, 100.0, []byte(`{"clarity":20,"relevance":20,"depth":15,"grammar":20}`), "fine", "oracle", now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE document_id = $1")).
		WithArgs("doc-1").
		WillReturnRows(rows)

	scores, err := ledger.GetScores(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetScores() error = %v", err)
	}
	if len(scores) != 1 || scores[0].CriteriaScores["depth"] != 15 || scores[0].GradedBy != domain.GradedByOracle {
		t.Fatalf("unexpected scores: %+v", scores)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeadlineIsTemporary(t *testing.T) {
	ledger, mock, done := newLedgerWithMock(t)
	defer done()

	mock.ExpectQuery("FROM documents").
		WithArgs("sub-1").
		WillReturnError(context.DeadlineExceeded)

	_, err := ledger.ListDocuments(context.Background(), "sub-1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}
