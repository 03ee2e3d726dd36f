package recorder

import (
	"context"
	"sort"
	"sync"
	"time"

	"RateSentinel/internal/model"
)

// MemoryRecorder keeps everything in process memory. It is used when no
// database is configured and in tests.
type MemoryRecorder struct {
	mu         sync.RWMutex
	rates      map[model.Currency][]model.RateSnapshot // oldest first
	recipients map[int64]model.Recipient
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		rates:      make(map[model.Currency][]model.RateSnapshot),
		recipients: make(map[int64]model.Recipient),
	}
}

func (m *MemoryRecorder) Append(_ context.Context, snaps []model.RateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		list := append(m.rates[s.Currency], s)
		// Stable so equal timestamps keep insertion order.
		sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
		m.rates[s.Currency] = list
	}
	return nil
}

func (m *MemoryRecorder) Latest(_ context.Context, cur model.Currency) (model.RateSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.rates[cur]
	if len(list) == 0 {
		return model.RateSnapshot{}, ErrNoSnapshot
	}
	return list[len(list)-1], nil
}

func (m *MemoryRecorder) LatestInRange(ctx context.Context, cur model.Currency, start, end time.Time) (model.RateSnapshot, error) {
	all, _ := m.AllInRange(ctx, cur, start, end)
	if len(all) == 0 {
		return model.RateSnapshot{}, ErrNoSnapshot
	}
	return all[0], nil
}

func (m *MemoryRecorder) AllInRange(_ context.Context, cur model.Currency, start, end time.Time) ([]model.RateSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.RateSnapshot
	list := m.rates[cur]
	for i := len(list) - 1; i >= 0; i-- {
		ts := list[i].Timestamp
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out = append(out, list[i])
	}
	return out, nil
}

func (m *MemoryRecorder) SaveRecipient(_ context.Context, r model.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.recipients[r.ChatID]; ok {
		existing.Username = r.Username
		m.recipients[r.ChatID] = existing
		return nil
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.recipients[r.ChatID] = r
	return nil
}

func (m *MemoryRecorder) ListRecipients(_ context.Context) ([]model.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Recipient, 0, len(m.recipients))
	for _, r := range m.recipients {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out, nil
}

func (m *MemoryRecorder) Close() error { return nil }
