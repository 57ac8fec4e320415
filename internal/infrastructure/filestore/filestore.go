// Package filestore holds the submission file-store adapters and their shared helpers.
package filestore

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/resilience"
)

// MaxDownloadBytes caps a single downloaded file.
const MaxDownloadBytes = 20 << 20

// ReadLimited reads at most MaxDownloadBytes. Larger files fail with ErrExtraction.
func ReadLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDownloadBytes+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "read "+name, err)
	}
	if len(data) > MaxDownloadBytes {
		return nil, domain.WrapError(domain.ErrExtraction, "read "+name, fmt.Errorf("file exceeds %d bytes", MaxDownloadBytes))
	}
	return data, nil
}

type retryingStore struct {
	next ports.FileStore
	exec *resilience.Executor
}

// WithRetry wraps every file-store call in the executor's retry and breaker policy.
func WithRetry(next ports.FileStore, exec *resilience.Executor) ports.FileStore {
	if exec == nil {
		return next
	}
	return &retryingStore{next: next, exec: exec}
}

func (s *retryingStore) ListSubmissionFolders(ctx context.Context) ([]domain.SubmissionFolder, error) {
	return resilience.Call(ctx, s.exec, "filestore.list_folders", s.next.ListSubmissionFolders, resilience.TransientClassifier)
}

func (s *retryingStore) ListDocuments(ctx context.Context, folderRef string) ([]domain.FileEntry, error) {
	return resilience.Call(ctx, s.exec, "filestore.list_documents", func(callCtx context.Context) ([]domain.FileEntry, error) {
		return s.next.ListDocuments(callCtx, folderRef)
	}, resilience.TransientClassifier)
}

func (s *retryingStore) Download(ctx context.Context, fileRef string) ([]byte, error) {
	return resilience.Call(ctx, s.exec, "filestore.download", func(callCtx context.Context) ([]byte, error) {
		return s.next.Download(callCtx, fileRef)
	}, resilience.TransientClassifier)
}
