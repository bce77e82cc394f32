// Package events publishes inventory price changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives PriceChanged messages.
const DefaultTopic = "inventory-prices"

// PriceChanged is emitted when the repricing job stores new prices for an item.
type PriceChanged struct {
	ItemID       string    `json:"itemId"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Purity       string    `json:"purity"`
	OldCostPrice float64   `json:"oldCostPrice"`
	NewCostPrice float64   `json:"newCostPrice"`
	OldSalePrice float64   `json:"oldSalePrice"`
	NewSalePrice float64   `json:"newSalePrice"`
	GoldRate     float64   `json:"goldRate"`
	SilverRate   float64   `json:"silverRate"`
	ChangedAt    time.Time `json:"changedAt"`
}

// Publisher delivers PriceChanged events.
type Publisher interface {
	PublishPriceChanged(ctx context.Context, ev PriceChanged) error
	Close() error
}

// MessageWriter is the part of *kafka.Writer KafkaPublisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer for topic on the given brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// KafkaPublisher writes events as JSON messages keyed by item ID.
type KafkaPublisher struct {
	w MessageWriter
}

// NewKafkaPublisher publishes price changes as JSON messages keyed by item.
func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) PublishPriceChanged(ctx context.Context, ev PriceChanged) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode price changed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte("price-changed-" + ev.ItemID),
		Value: payload,
		Time:  ev.ChangedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write price changed event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// LogPublisher logs events instead of sending them. It is used when no brokers are configured.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher writes price changes to log instead of a broker.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishPriceChanged(_ context.Context, ev PriceChanged) error {
	p.log.Info().
		Str("item_id", ev.ItemID).
		Str("name", ev.Name).
		Float64("old_sale_price", ev.OldSalePrice).
		Float64("new_sale_price", ev.NewSalePrice).
		Float64("gold_rate", ev.GoldRate).
		Float64("silver_rate", ev.SilverRate).
		Msg("price changed")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
