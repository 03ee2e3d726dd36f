package notifier

import (
	"fmt"
	"html"
	"strings"

	"RateSentinel/internal/model"
)

// FormatRates renders a snapshot set for a chat message.
func FormatRates(snaps []model.RateSnapshot) string {
	var b strings.Builder
	b.WriteString("💱 <b>Updated exchange rates</b>")
	if len(snaps) > 0 {
		b.WriteString(fmt.Sprintf(" | %s", snaps[0].Timestamp.Format("2006-01-02 15:04")))
	}
	b.WriteString("\n\n")
	for _, s := range snaps {
		b.WriteString(fmt.Sprintf("<b>%s</b>\n  Buy: %s, Sell: %s\n",
			s.Currency, s.Buy.StringFixed(2), s.Sell.StringFixed(2)))
	}
	return b.String()
}

// FormatGreeting is the reply to /start.
func FormatGreeting(username string) string {
	name := username
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hello, %s!\nThis bot will send you the current exchange rates after every update.\nSend /rates to see the latest ones.",
		html.EscapeString(name))
}

// FormatNoRates is the reply to /rates before the first refresh.
func FormatNoRates() string {
	return "No exchange rates available yet. Please try later."
}

// FormatUnknownCommand is the reply to anything the bot does not understand.
func FormatUnknownCommand() string {
	return "This command is not recognized!\nAvailable commands:\n• /start\n• /rates"
}
