package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/resilience"
)

const (
	queueGroup   = "scholarship-workers"
	drainTimeout = 30 * time.Second
)

// Connection-level failures worth another publish attempt.
var transientNATSErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrConnectionReconnecting,
	nats.ErrDisconnected,
}

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("scholarship-pipeline"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishProcessRequest(ctx context.Context, req domain.ProcessRequest) error {
	payload, err := encodeRequest(req)
	if err != nil {
		return err
	}
	err = q.executor.Execute(ctx, "nats.publish", func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyPublishError)
	return publishFailure(err)
}

// publishFailure marks retryable publish failures as ErrTemporary so callers
// can report the folder as queued-later instead of failed.
func publishFailure(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) || !classifyPublishError(err).Retryable {
		return err
	}
	return domain.WrapError(domain.ErrTemporary, "nats publish", err)
}

// classifyPublishError keeps caller cancellation away from the breaker and
// retries only connection-level failures or an open circuit.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	for _, target := range transientNATSErrors {
		if errors.Is(err, target) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// SubscribeProcessRequests blocks until ctx is cancelled, running at most
// concurrency handlers at once. In-flight handlers finish before it returns.
func (q *Queue) SubscribeProcessRequests(ctx context.Context, concurrency int, handler func(context.Context, domain.ProcessRequest) error) error {
	d := newDispatcher(concurrency, handler)
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		d.dispatch(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	closed := sub.StatusChanged(nats.SubscriptionClosed)
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	// Drain is asynchronous; buffered messages are still being dispatched
	// until the subscription reports closed.
	select {
	case <-closed:
	case <-time.After(drainTimeout):
		slog.Warn("nats_drain_timeout", "subject", q.subject, "timeout", drainTimeout)
	}
	d.wait()
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeRequest(req domain.ProcessRequest) ([]byte, error) {
	if req.Folder.FolderRef == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode process request", fmt.Errorf("folder ref is required"))
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode process request: %w", err)
	}
	return payload, nil
}

func decodeRequest(data []byte) (domain.ProcessRequest, error) {
	var req domain.ProcessRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.ProcessRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode process request", err)
	}
	if req.Folder.FolderRef == "" {
		return domain.ProcessRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode process request", fmt.Errorf("folder ref is required"))
	}
	return req, nil
}
