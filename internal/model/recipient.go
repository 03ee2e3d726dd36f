package model

import "time"

// Recipient is a Telegram chat subscribed to rate updates.
type Recipient struct {
	ChatID    int64
	Username  string
	CreatedAt time.Time
}
