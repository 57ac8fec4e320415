package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

const defaultSubmissionWorkers = 4

// BatchProcessUseCase discovers submission folders and processes them concurrently.
type BatchProcessUseCase struct {
	files     ports.FileStore
	processor ports.SubmissionProcessor
	workers   int
}

func NewBatchProcessUseCase(files ports.FileStore, processor ports.SubmissionProcessor, workers int) *BatchProcessUseCase {
	if workers <= 0 {
		workers = defaultSubmissionWorkers
	}
	return &BatchProcessUseCase{
		files:     files,
		processor: processor,
		workers:   workers,
	}
}

// ProcessAll processes every discovered folder. Failures of single submissions are
// reported in the result; only a failed folder listing or cancellation is returned.
func (uc *BatchProcessUseCase) ProcessAll(ctx context.Context, reprocess bool) (domain.BatchResult, error) {
	started := time.Now()
	folders, err := uc.files.ListSubmissionFolders(ctx)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("list submission folders: %w", err)
	}

	results := make([]domain.ProcessResult, len(folders))
	launched := make([]bool, len(folders))

	var g errgroup.Group
	g.SetLimit(uc.workers)
	for i, folder := range folders {
		if ctx.Err() != nil {
			break
		}
		launched[i] = true
		g.Go(func() error {
			results[i] = uc.processOne(ctx, domain.ProcessRequest{Folder: folder, Reprocess: reprocess})
			return nil
		})
	}
	_ = g.Wait()

	batch := domain.BatchResult{Discovered: len(folders)}
	for i, res := range results {
		if !launched[i] {
			continue
		}
		batch.Results = append(batch.Results, res)
		switch {
		case res.Skipped:
			batch.Skipped++
		case res.Status == domain.StatusError:
			batch.Failed++
		default:
			batch.Processed++
		}
	}

	slog.Info(
		"batch_processed",
		"discovered", batch.Discovered,
		"processed", batch.Processed,
		"skipped", batch.Skipped,
		"failed", batch.Failed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return batch, ctx.Err()
}

// ProcessFolder processes a single folder identified by its store reference.
func (uc *BatchProcessUseCase) ProcessFolder(ctx context.Context, folderRef string, reprocess bool) (domain.ProcessResult, error) {
	folder, err := findFolder(ctx, uc.files, folderRef)
	if err != nil {
		return domain.ProcessResult{FolderRef: folderRef}, err
	}
	return uc.processor.ProcessSubmission(ctx, domain.ProcessRequest{Folder: folder, Reprocess: reprocess})
}

func (uc *BatchProcessUseCase) processOne(ctx context.Context, req domain.ProcessRequest) domain.ProcessResult {
	res, err := uc.processor.ProcessSubmission(ctx, req)
	if err != nil {
		slog.Error("submission_failed", "folder_ref", req.Folder.FolderRef, "error", err)
		if res.FolderRef == "" {
			res.FolderRef = req.Folder.FolderRef
		}
		res.Status = domain.StatusError
		if res.Error == "" {
			res.Error = err.Error()
		}
	}
	return res
}

func findFolder(ctx context.Context, files ports.FileStore, folderRef string) (domain.SubmissionFolder, error) {
	if folderRef == "" {
		return domain.SubmissionFolder{}, domain.WrapError(domain.ErrInvalidInput, "find folder", errors.New("folder reference is required"))
	}
	folders, err := files.ListSubmissionFolders(ctx)
	if err != nil {
		return domain.SubmissionFolder{}, fmt.Errorf("list submission folders: %w", err)
	}
	for _, folder := range folders {
		if folder.FolderRef == folderRef {
			return folder, nil
		}
	}
	return domain.SubmissionFolder{}, domain.WrapError(domain.ErrNotFound, "find folder", fmt.Errorf("folder %q", folderRef))
}
