package recorder

import (
	"context"
	"errors"
	"time"

	"RateSentinel/internal/model"
)

// ErrNoSnapshot is returned when no snapshot matches a query.
var ErrNoSnapshot = errors.New("no snapshot")

// RateStore is an append-only time series of rate snapshots.
// Range bounds are inclusive on both ends; lists come back newest first.
type RateStore interface {
	Append(ctx context.Context, snaps []model.RateSnapshot) error
	Latest(ctx context.Context, cur model.Currency) (model.RateSnapshot, error)
	LatestInRange(ctx context.Context, cur model.Currency, start, end time.Time) (model.RateSnapshot, error)
	AllInRange(ctx context.Context, cur model.Currency, start, end time.Time) ([]model.RateSnapshot, error)
}

// RecipientStore keeps the chats that receive rate notifications.
type RecipientStore interface {
	SaveRecipient(ctx context.Context, r model.Recipient) error
	ListRecipients(ctx context.Context) ([]model.Recipient, error)
}

// Recorder persists rate history and notification recipients.
type Recorder interface {
	RateStore
	RecipientStore
	Close() error
}
