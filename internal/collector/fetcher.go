package collector

import (
	"context"
	"fmt"

	"RateSentinel/internal/model"
)

// RateSource fetches one bank's public rate table and normalizes it.
// Implementations issue a single request per call and never retry.
type RateSource interface {
	FetchQuotes(ctx context.Context) ([]model.Quote, error)
	Name() string
}

// SourceError reports a failed fetch from one provider.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
