// Package events publishes progress facts to Kafka so downstream consumers
// (analytics, prize fulfilment) can react without polling the store.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/playperu/vrquest/internal/quest"
)

// ProgressEvent is the wire payload for one stored progress record.
type ProgressEvent struct {
	RecordID    string            `json:"recordId"`
	UserID      string            `json:"userId"`
	TourID      string            `json:"tourId"`
	POIID       string            `json:"poiId"`
	Kind        string            `json:"kind"`
	Outcome     string            `json:"outcome"`
	Points      int               `json:"points"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CompletedAt time.Time         `json:"completedAt"`
}

// FromRecord builds the event for r on a POI of the given kind.
func FromRecord(r quest.Record, kind quest.Kind) ProgressEvent {
	return ProgressEvent{
		RecordID:    r.ID,
		UserID:      r.UserID,
		TourID:      r.TourID,
		POIID:       r.POIID,
		Kind:        string(kind),
		Outcome:     string(r.Outcome),
		Points:      r.Points,
		Metadata:    r.Metadata,
		CompletedAt: r.CompletedAt.UTC(),
	}
}

type Config struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether enough is configured to reach a broker.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes ProgressEvents keyed by user id, so one user's events
// stay ordered within a partition. A disabled Publisher drops everything.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	enabled bool
}

var errNilWriter = errors.New("publisher requires a writer")

func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	logger = logger.With("component", "events")
	if !cfg.Enabled() {
		logger.Info("progress events disabled")
		return &Publisher{logger: logger}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: false,
		WriteTimeout:           5 * time.Second,
	}
	return newPublisherWithWriter(w, logger)
}

func newPublisherWithWriter(w messageWriter, logger *slog.Logger) (*Publisher, error) {
	if w == nil {
		return nil, errNilWriter
	}
	return &Publisher{writer: w, logger: logger, enabled: true}, nil
}

func (p *Publisher) Enabled() bool { return p.enabled }

func (p *Publisher) Publish(ctx context.Context, ev ProgressEvent) error {
	if !p.enabled {
		return nil
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding progress event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.UserID),
		Value: value,
		Time:  ev.CompletedAt,
		Headers: []kafka.Header{
			{Key: "outcome", Value: []byte(ev.Outcome)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing record %s: %w", ev.RecordID, err)
	}
	p.logger.Debug("progress event published", "record_id", ev.RecordID, "user_id", ev.UserID)
	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	return p.writer.Close()
}
