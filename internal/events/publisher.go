package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/atelierdevis/devis-gateway/internal/config"
	"github.com/atelierdevis/devis-gateway/internal/model"
)

// Publisher is a thin wrapper around a segmentio/kafka-go Writer for
// order-received events. Optional: a nil *Publisher is a no-op, and a publish
// failure never affects the request that produced the event.
type Publisher struct {
	w *kafka.Writer
}

// NewPublisher returns nil when no brokers are configured.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "orders.received"
	}
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, ev model.OrderEvent) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: payload,
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.w.Close()
}
