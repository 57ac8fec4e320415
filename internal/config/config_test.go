package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	for key := range defaults {
		t.Setenv(strings.ToUpper(key), "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LedgerDriver != LedgerSQLite || cfg.SQLitePath != "./data/scholarship.db" {
		t.Fatalf("unexpected ledger defaults: %+v", cfg)
	}
	if cfg.FileStore != FileStoreLocal || cfg.LocalRoot != "./data/submissions" {
		t.Fatalf("unexpected file store defaults: %+v", cfg)
	}
	if cfg.NATSSubject != "submissions.process" {
		t.Fatalf("expected default subject submissions.process, got %q", cfg.NATSSubject)
	}
	if cfg.OracleEnabled {
		t.Fatalf("expected oracle disabled by default")
	}
	if cfg.MaxRetries != 3 || cfg.RetryBackoff() != 200*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %d %v", cfg.MaxRetries, cfg.RetryBackoff())
	}
	if cfg.SubmissionWorkers != 4 || cfg.DocumentWorkers != 2 {
		t.Fatalf("unexpected worker defaults: %d %d", cfg.SubmissionWorkers, cfg.DocumentWorkers)
	}
	if cfg.DriveRatePerSecond != 8 || cfg.OracleTimeout() != time.Minute {
		t.Fatalf("unexpected rate/timeout defaults: %v %v", cfg.DriveRatePerSecond, cfg.OracleTimeout())
	}
	if cfg.APIRateLimitRPS != 0 || cfg.APIMaxInFlight != 32 || cfg.APIQueueWait() != 250*time.Millisecond {
		t.Fatalf("unexpected api traffic defaults: %v %d %v", cfg.APIRateLimitRPS, cfg.APIMaxInFlight, cfg.APIQueueWait())
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_DRIVER", "Postgres")
	t.Setenv("ORACLE_ENABLED", "true")
	t.Setenv("DOCUMENT_WORKERS", "6")
	t.Setenv("ORACLE_RATE_PER_SECOND", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LedgerDriver != LedgerPostgres {
		t.Fatalf("expected postgres ledger, got %q", cfg.LedgerDriver)
	}
	if !cfg.OracleEnabled || cfg.DocumentWorkers != 6 || cfg.OracleRatePerSecond != 0.5 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadReadsConfigFileBelowEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "scholar.yaml")
	content := "filestore: minio\nminio_endpoint: localhost:9000\nminio_prefix: intake\nsubmission_workers: 8\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SUBMISSION_WORKERS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FileStore != FileStoreMinIO || cfg.MinIOEndpoint != "localhost:9000" || cfg.MinIOPrefix != "intake" {
		t.Fatalf("unexpected file values: %+v", cfg)
	}
	if cfg.SubmissionWorkers != 2 {
		t.Fatalf("expected env to win over file, got %d", cfg.SubmissionWorkers)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("FILESTORE", "gdrive")
	t.Setenv("LEDGER_DRIVER", "mysql")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"DRIVE_ROOT_FOLDER_ID", "LEDGER_DRIVER"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %v", want, err)
		}
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
