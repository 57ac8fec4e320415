package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

// ScheduleProcessingUseCase publishes processing requests for the worker.
type ScheduleProcessingUseCase struct {
	files ports.FileStore
	queue ports.MessageQueue
}

func NewScheduleProcessingUseCase(files ports.FileStore, queue ports.MessageQueue) *ScheduleProcessingUseCase {
	return &ScheduleProcessingUseCase{
		files: files,
		queue: queue,
	}
}

// ScheduleAll publishes one request per discovered folder and returns how many
// were published before the first failure.
func (uc *ScheduleProcessingUseCase) ScheduleAll(ctx context.Context, reprocess bool) (int, error) {
	folders, err := uc.files.ListSubmissionFolders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list submission folders: %w", err)
	}

	for i, folder := range folders {
		if err := uc.queue.PublishProcessRequest(ctx, domain.ProcessRequest{Folder: folder, Reprocess: reprocess}); err != nil {
			return i, fmt.Errorf("publish process request for %s: %w", folder.FolderRef, err)
		}
	}
	slog.Info("submissions_scheduled", "count", len(folders), "reprocess", reprocess)
	return len(folders), nil
}

func (uc *ScheduleProcessingUseCase) ScheduleFolder(ctx context.Context, folderRef string, reprocess bool) error {
	folder, err := findFolder(ctx, uc.files, folderRef)
	if err != nil {
		return err
	}
	if err := uc.queue.PublishProcessRequest(ctx, domain.ProcessRequest{Folder: folder, Reprocess: reprocess}); err != nil {
		return fmt.Errorf("publish process request for %s: %w", folderRef, err)
	}
	slog.Info("submission_scheduled", "folder_ref", folderRef, "reprocess", reprocess)
	return nil
}
