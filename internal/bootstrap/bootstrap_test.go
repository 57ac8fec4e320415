package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/scholarship-pipeline/internal/config"
	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		LedgerDriver:      config.LedgerSQLite,
		SQLitePath:        filepath.Join(dir, "ledger.db"),
		FileStore:         config.FileStoreLocal,
		LocalRoot:         filepath.Join(dir, "submissions"),
		MaxRetries:        1,
		RetryBackoffMS:    1,
		SubmissionWorkers: 2,
		DocumentWorkers:   2,
	}
}

func writeSubmission(t *testing.T, root, folder string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
}

func TestNewProcessesLocalSubmissionsIntoSQLite(t *testing.T) {
	cfg := testConfig(t)
	writeSubmission(t, cfg.LocalRoot, "Jane Doe - jane@x.com", map[string]string{
		"personal_essay.txt": "My personal statement. I led a robotics team and volunteered every weekend.",
		"notes.md":           "shopping list",
	})

	app, err := New(context.Background(), cfg, Options{Service: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Queue != nil || app.ScheduleUC != nil {
		t.Fatalf("queue must stay disabled without WithQueue")
	}

	batch, err := app.BatchUC.ProcessAll(context.Background(), false)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if batch.Discovered != 1 || batch.Processed != 1 {
		t.Fatalf("unexpected batch result: %+v", batch)
	}

	subs, err := app.QueryUC.ListSubmissions(context.Background(), domain.StatusCompleted)
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(subs) != 1 || subs[0].ApplicantEmail != "jane@x.com" {
		t.Fatalf("unexpected submissions: %+v", subs)
	}

	summary, err := app.QueryUC.GetSummary(context.Background(), subs[0].ID)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if summary.DocumentCount != 2 {
		t.Fatalf("expected 2 documents, got %d", summary.DocumentCount)
	}
	var essayScored bool
	for _, doc := range summary.Documents {
		if doc.Document.Category == domain.CategoryEssay && doc.Score != nil {
			essayScored = true
		}
	}
	if !essayScored {
		t.Fatalf("expected the essay to be scored: %+v", summary.Documents)
	}

	count, err := testutil.GatherAndCount(app.Registry)
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count == 0 {
		t.Fatalf("expected pipeline metrics after processing")
	}

	again, err := app.BatchUC.ProcessAll(context.Background(), false)
	if err != nil {
		t.Fatalf("second ProcessAll() error = %v", err)
	}
	if again.Skipped != 1 {
		t.Fatalf("expected completed submission to be skipped, got %+v", again)
	}
}

func TestNewRejectsMissingRubricFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.RubricFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := New(context.Background(), cfg, Options{Service: "test"}); err == nil {
		t.Fatalf("expected error for missing rubric file")
	}
}
