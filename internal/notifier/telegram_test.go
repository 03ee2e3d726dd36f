package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// fakeBotAPI serves sendMessage and records each request body.
type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []sentMessage
	failures atomic.Int32 // number of leading sendMessage calls to reject
}

func (f *fakeBotAPI) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeBotAPI) sendMessage(w http.ResponseWriter, r *http.Request) {
	if f.failures.Add(-1) >= 0 {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Too Many Requests"}`))
		return
	}
	var m sentMessage
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func newTestNotifier(t *testing.T, mux *http.ServeMux) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	tn := NewTelegramNotifier("TOKEN", "", 2)
	tn.APIBase = srv.URL
	tn.Backoff = time.Millisecond
	return tn
}

func TestSend(t *testing.T) {
	api := &fakeBotAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /botTOKEN/sendMessage", api.sendMessage)
	tn := newTestNotifier(t, mux)

	require.NoError(t, tn.Send(context.Background(), 42, "hello"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ChatID)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "HTML", msgs[0].ParseMode)
}

func TestSend_APIError(t *testing.T) {
	api := &fakeBotAPI{}
	api.failures.Store(1)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /botTOKEN/sendMessage", api.sendMessage)
	tn := newTestNotifier(t, mux)

	err := tn.Send(context.Background(), 42, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestPush_RetriesThenSucceeds(t *testing.T) {
	api := &fakeBotAPI{}
	api.failures.Store(2)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /botTOKEN/sendMessage", api.sendMessage)
	tn := newTestNotifier(t, mux)

	require.NoError(t, tn.Push(context.Background(), 7, "rates"))
	assert.Len(t, api.messages(), 1)
}

func TestPush_RetriesExhausted(t *testing.T) {
	api := &fakeBotAPI{}
	api.failures.Store(10)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /botTOKEN/sendMessage", api.sendMessage)
	tn := newTestNotifier(t, mux)

	err := tn.Push(context.Background(), 7, "rates")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts exhausted")
	assert.Empty(t, api.messages())
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	api := &fakeBotAPI{}
	api.failures.Store(10)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /botTOKEN/sendMessage", api.sendMessage)
	tn := newTestNotifier(t, mux)
	tn.Backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := tn.SendWithRetry(ctx, 7, "rates", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
