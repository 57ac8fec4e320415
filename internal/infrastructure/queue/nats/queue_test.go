package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

func TestRequestRoundTrip(t *testing.T) {
	req := domain.ProcessRequest{
		Folder:    domain.NewSubmissionFolder("folder-1", "Jane Doe - jane@x.com"),
		Reprocess: true,
	}
	payload, err := encodeRequest(req)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	got, err := decodeRequest(payload)
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if got != req {
		t.Fatalf("decoded %+v, want %+v", got, req)
	}
}

func TestDecodeRejectsInvalidPayloads(t *testing.T) {
	for _, payload := range []string{"not-json", `{"folder":{}}`, `{}`} {
		if _, err := decodeRequest([]byte(payload)); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("decodeRequest(%q) error = %v, want ErrInvalidInput", payload, err)
		}
	}
	if _, err := encodeRequest(domain.ProcessRequest{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("encodeRequest() error = %v, want ErrInvalidInput", err)
	}
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	var (
		running  atomic.Int32
		peak     atomic.Int32
		mu       sync.Mutex
		received []string
	)
	d := newDispatcher(2, func(_ context.Context, req domain.ProcessRequest) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		mu.Lock()
		received = append(received, req.Folder.FolderRef)
		mu.Unlock()
		return nil
	})

	for i := range 6 {
		payload, err := encodeRequest(domain.ProcessRequest{Folder: domain.SubmissionFolder{FolderRef: fmt.Sprintf("f%d", i)}})
		if err != nil {
			t.Fatalf("encodeRequest() error = %v", err)
		}
		d.dispatch(context.Background(), payload)
	}
	d.wait()

	if len(received) != 6 {
		t.Fatalf("expected 6 handled requests, got %d", len(received))
	}
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent handlers, got %d", peak.Load())
	}
}

func TestDispatcherFinishesDrainedRequestsAfterCancel(t *testing.T) {
	var (
		calls     atomic.Int32
		cancelled atomic.Bool
	)
	d := newDispatcher(1, func(ctx context.Context, _ domain.ProcessRequest) error {
		calls.Add(1)
		if ctx.Err() != nil {
			cancelled.Store(true)
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, ref := range []string{"f1", "f2"} {
		payload, _ := encodeRequest(domain.ProcessRequest{Folder: domain.SubmissionFolder{FolderRef: ref}})
		d.dispatch(ctx, payload)
	}
	d.dispatch(ctx, []byte("garbage"))
	d.wait()

	if calls.Load() != 2 {
		t.Fatalf("expected both drained requests to be handled, got %d", calls.Load())
	}
	if cancelled.Load() {
		t.Fatalf("handler saw a cancelled context")
	}
}

func TestDispatcherRejectsGarbage(t *testing.T) {
	var calls atomic.Int32
	d := newDispatcher(1, func(context.Context, domain.ProcessRequest) error {
		calls.Add(1)
		return errors.New("boom")
	})
	d.dispatch(context.Background(), []byte("garbage"))
	d.dispatch(context.Background(), []byte(`{"folder":{}}`))
	d.wait()

	if calls.Load() != 0 {
		t.Fatalf("expected no handler calls, got %d", calls.Load())
	}
}

func TestClassifyPublishError(t *testing.T) {
	if c := classifyPublishError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !c.Retryable || !c.RecordFailure {
		t.Fatalf("expected closed connection to be retryable, got %+v", c)
	}
	if c := classifyPublishError(nats.ErrConnectionReconnecting); !c.Retryable {
		t.Fatalf("expected reconnecting to be retryable, got %+v", c)
	}
	if c := classifyPublishError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("expected cancellation to be ignored, got %+v", c)
	}
	if c := classifyPublishError(nats.ErrBadSubject); c.Retryable || !c.RecordFailure {
		t.Fatalf("expected bad subject to be a permanent failure, got %+v", c)
	}
	if c := classifyPublishError(fmt.Errorf("publish: %w", gobreaker.ErrOpenState)); !c.Retryable {
		t.Fatalf("expected open circuit to be retryable, got %+v", c)
	}
}

func TestPublishFailure(t *testing.T) {
	if err := publishFailure(nil); err != nil {
		t.Fatalf("publishFailure(nil) = %v", err)
	}
	if err := publishFailure(nats.ErrTimeout); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if err := publishFailure(nats.ErrBadSubject); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error to stay unwrapped, got %v", err)
	}
}
