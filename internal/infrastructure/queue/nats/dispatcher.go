package nats

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

// dispatcher bounds concurrent handler runs with a weighted semaphore.
type dispatcher struct {
	sem     *semaphore.Weighted
	limit   int64
	handler func(context.Context, domain.ProcessRequest) error
}

func newDispatcher(concurrency int, handler func(context.Context, domain.ProcessRequest) error) *dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &dispatcher{
		sem:     semaphore.NewWeighted(int64(concurrency)),
		limit:   int64(concurrency),
		handler: handler,
	}
}

// dispatch blocks the subscription callback until a slot frees up, which
// leaves surplus messages buffered in the NATS client. Requests delivered
// while the subscription drains still run to completion, so handlers get a
// context that outlives the subscriber's cancellation.
func (d *dispatcher) dispatch(ctx context.Context, data []byte) {
	req, err := decodeRequest(data)
	if err != nil {
		slog.Warn("process_request_rejected", "error", err, "payload_bytes", len(data))
		return
	}
	if ctx.Err() != nil {
		slog.Info("process_request_draining", "folder_ref", req.Folder.FolderRef)
	}
	runCtx := context.WithoutCancel(ctx)
	if err := d.sem.Acquire(runCtx, 1); err != nil {
		slog.Warn("process_request_dropped", "folder_ref", req.Folder.FolderRef, "error", err)
		return
	}
	go func() {
		defer d.sem.Release(1)
		if err := d.handler(runCtx, req); err != nil {
			slog.Error("process_request_failed", "folder_ref", req.Folder.FolderRef, "error", err)
		}
	}()
}

// wait returns once every dispatched handler has finished.
func (d *dispatcher) wait() {
	_ = d.sem.Acquire(context.Background(), d.limit)
	d.sem.Release(d.limit)
}
