package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"RateSentinel/internal/metrics"
	"RateSentinel/internal/model"
	"RateSentinel/internal/recorder"
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
)

// DefaultQueueSize is the number of pending snapshot sets the dispatcher buffers.
const DefaultQueueSize = 16

// Pusher delivers one message to one chat.
type Pusher interface {
	Push(ctx context.Context, chatID int64, text string) error
}

type job struct {
	id    string
	snaps []model.RateSnapshot
}

// Dispatcher fans snapshot sets out to every recipient from a single
// background worker fed by a bounded queue.
type Dispatcher struct {
	pusher     Pusher
	recipients recorder.RecipientStore
	publisher  EventPublisher
	metrics    *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher starts the worker. publisher may be nil.
func NewDispatcher(pusher Pusher, recipients recorder.RecipientStore, publisher EventPublisher, queueSize int, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if m == nil {
		m = metrics.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		pusher:     pusher,
		recipients: recipients,
		publisher:  publisher,
		metrics:    m,
		queue:      make(chan job, queueSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	go d.run()
	return d
}

// Notify enqueues a snapshot set without blocking.
func (d *Dispatcher) Notify(id string, snaps []model.RateSnapshot) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- job{id: id, snaps: snaps}:
		return nil
	default:
		d.metrics.Notifications.WithLabelValues("queue", "dropped").Inc()
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued jobs to finish. If ctx expires
// first, in-flight deliveries are cancelled and ctx's error is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.queue {
		if d.ctx.Err() != nil {
			slog.Warn("notification job discarded", "cycle_id", j.id, "stage", "notifying")
			continue
		}
		d.deliver(d.ctx, j)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	if d.publisher != nil {
		if err := d.publisher.PublishRates(ctx, j.id, j.snaps); err != nil {
			slog.Error("publish rates event", "cycle_id", j.id, "stage", "notifying", "error", err)
			d.metrics.Notifications.WithLabelValues("kafka", "error").Inc()
		} else {
			d.metrics.Notifications.WithLabelValues("kafka", "ok").Inc()
		}
	}

	recipients, err := d.recipients.ListRecipients(ctx)
	if err != nil {
		slog.Error("list recipients", "cycle_id", j.id, "stage", "notifying", "error", err)
		return
	}

	text := FormatRates(j.snaps)
	sent := 0
	for _, r := range recipients {
		if err := d.pusher.Push(ctx, r.ChatID, text); err != nil {
			slog.Error("push notification", "cycle_id", j.id, "stage", "notifying", "chat_id", r.ChatID, "error", err)
			d.metrics.Notifications.WithLabelValues("telegram", "error").Inc()
			continue
		}
		d.metrics.Notifications.WithLabelValues("telegram", "ok").Inc()
		sent++
	}
	slog.Info("notifications sent", "cycle_id", j.id, "recipients", len(recipients), "sent", sent)
}
