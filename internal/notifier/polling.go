package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"RateSentinel/internal/model"
	"RateSentinel/internal/recorder"
)

// Command is one inbound text message.
type Command struct {
	ChatID   int64
	Username string
	Text     string
}

// CommandHandler is called when a user command is received. A non-empty
// reply is sent back to the same chat.
type CommandHandler func(ctx context.Context, cmd Command) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"chat"`
	} `json:"message"`
}

const (
	pollTimeout = 30 * time.Second
	pollRetry   = 5 * time.Second
)

// StartPolling long-polls getUpdates until ctx is cancelled. Every sender is
// registered in recipients before the handler runs.
func (t *TelegramNotifier) StartPolling(ctx context.Context, recipients recorder.RecipientStore, handler CommandHandler) {
	offset := 0
	client := &http.Client{Timeout: pollTimeout + 5*time.Second}
	if t.Client != nil && t.Client.Transport != nil {
		client.Transport = t.Client.Transport
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("telegram polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("telegram polling stopped")
				return
			}
			slog.Warn("polling request failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollRetry):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			cmd := Command{
				ChatID:   update.Message.Chat.ID,
				Username: update.Message.Chat.Username,
				Text:     strings.TrimSpace(update.Message.Text),
			}
			slog.Info("received command", "chat_id", cmd.ChatID, "username", cmd.Username, "text", cmd.Text)

			if err := recipients.SaveRecipient(ctx, model.Recipient{ChatID: cmd.ChatID, Username: cmd.Username}); err != nil {
				slog.Error("register recipient", "chat_id", cmd.ChatID, "error", err)
			}

			if reply := handler(ctx, cmd); reply != "" {
				if err := t.Send(ctx, cmd.ChatID, reply); err != nil {
					slog.Error("send reply", "chat_id", cmd.ChatID, "error", err)
				}
			}
		}
	}
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=%d", t.method("getUpdates"), offset, int(pollTimeout/time.Second))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create polling request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}

	var result struct {
		OK          bool             `json:"ok"`
		Description string           `json:"description"`
		Result      []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates not ok: %s", result.Description)
	}
	return result.Result, nil
}
