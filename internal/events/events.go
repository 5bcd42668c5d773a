// Package events publishes persisted detections to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/JaimeStill/linkguard/internal/detections"
	"github.com/JaimeStill/linkguard/pkg/lifecycle"
)

// Writer is the subset of *kafka.Writer used for publishing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher sends detections scoring at or above a threshold to a topic.
type Publisher struct {
	writer   Writer
	topic    string
	minScore int
	logger   *slog.Logger
}

// New creates a Publisher backed by a kafka-go writer for cfg.Topic.
// It returns nil when events are disabled.
func New(cfg *Config, logger *slog.Logger) *Publisher {
	if !cfg.Enabled {
		return nil
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeoutDuration(),
		RequiredAcks: kafkago.RequireAll,
	}
	return NewWithWriter(w, cfg, logger)
}

// NewWithWriter creates a Publisher over an existing writer.
func NewWithWriter(w Writer, cfg *Config, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer:   w,
		topic:    cfg.Topic,
		minScore: cfg.MinScore,
		logger:   logger.With("system", "events"),
	}
}

// Start registers a shutdown hook that closes the writer.
func (p *Publisher) Start(lc *lifecycle.Coordinator) error {
	if p == nil {
		return nil
	}
	p.logger.Info("starting event publisher", "topic", p.topic, "min_score", p.minScore)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := p.writer.Close(); err != nil {
			p.logger.Error("event writer close failed", "error", err)
			return
		}
		p.logger.Info("event writer closed")
	})

	return nil
}

// Publish writes d as a JSON message keyed by its id. Detections below the
// minimum score are skipped. A nil Publisher discards everything.
func (p *Publisher) Publish(ctx context.Context, d *detections.Detection) error {
	if p == nil || d.Score < p.minScore {
		return nil
	}

	msg, err := message(d)
	if err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "publishing detection",
		"id", d.ID,
		"topic", p.topic,
		"payload_size", len(msg.Value),
	)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish detection %s to %s: %w", d.ID, p.topic, err)
	}
	return nil
}

// PublishBatch writes every detection at or above the minimum score in a
// single WriteMessages call.
func (p *Publisher) PublishBatch(ctx context.Context, ds []detections.Detection) error {
	if p == nil {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(ds))
	for i := range ds {
		if ds[i].Score < p.minScore {
			continue
		}
		msg, err := message(&ds[i])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}

	p.logger.DebugContext(ctx, "publishing detection batch", "count", len(msgs), "topic", p.topic)

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d detections to %s: %w", len(msgs), p.topic, err)
	}
	return nil
}

func message(d *detections.Detection) (kafkago.Message, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("marshal detection %s: %w", d.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(d.ID.String()),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(d.Status)},
			{Key: "type", Value: []byte(d.Type)},
		},
	}, nil
}
