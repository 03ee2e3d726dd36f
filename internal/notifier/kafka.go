package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"RateSentinel/internal/model"
)

// EventRatesUpdated is the type of the event published after each refresh.
const EventRatesUpdated = "rates.updated"

// RatesUpdatedEvent is the Kafka message body.
type RatesUpdatedEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Rates      []RateEvent `json:"rates"`
}

// RateEvent is one currency inside RatesUpdatedEvent. Rates are decimal strings.
type RateEvent struct {
	Currency  string    `json:"currency"`
	RateBuy   string    `json:"rate_buy"`
	RateSell  string    `json:"rate_sell"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher receives every snapshot set the dispatcher delivers.
type EventPublisher interface {
	PublishRates(ctx context.Context, id string, snaps []model.RateSnapshot) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes rates.updated events to one topic.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (k *KafkaPublisher) PublishRates(ctx context.Context, id string, snaps []model.RateSnapshot) error {
	evt := RatesUpdatedEvent{
		ID:         id,
		Type:       EventRatesUpdated,
		OccurredAt: time.Now(),
		Rates:      make([]RateEvent, 0, len(snaps)),
	}
	for _, s := range snaps {
		evt.Rates = append(evt.Rates, RateEvent{
			Currency:  string(s.Currency),
			RateBuy:   s.Buy.String(),
			RateSell:  s.Sell.String(),
			Timestamp: s.Timestamp,
		})
	}
	v, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(EventRatesUpdated),
		Value: v,
		Time:  evt.OccurredAt,
	}); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
