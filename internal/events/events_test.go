package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/playperu/vrquest/internal/quest"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleRecord() quest.Record {
	return quest.Record{
		ID:          "r1",
		UserID:      "u1",
		TourID:      "t1",
		POIID:       "q1",
		Points:      10,
		Outcome:     quest.OutcomeSucceeded,
		Metadata:    map[string]string{"answer": "A"},
		CompletedAt: time.Date(2025, 3, 16, 17, 4, 0, 0, time.UTC),
	}
}

func TestPublishWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p, err := newPublisherWithWriter(w, slog.Default())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	if err := p.Publish(context.Background(), FromRecord(sampleRecord(), quest.KindQuestion)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "u1" {
		t.Errorf("key = %q, want u1", msg.Key)
	}

	var ev ProgressEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatalf("decoding value: %v", err)
	}
	if ev.Kind != "question" || ev.Outcome != "succeeded" || ev.Points != 10 {
		t.Errorf("event = %+v", ev)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p, _ := newPublisherWithWriter(&fakeWriter{err: boom}, slog.Default())

	err := p.Publish(context.Background(), FromRecord(sampleRecord(), quest.KindQuestion))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewPublisher(Config{}, slog.Default())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if p.Enabled() {
		t.Fatal("publisher without brokers reports enabled")
	}
	if err := p.Publish(context.Background(), ProgressEvent{}); err != nil {
		t.Errorf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestNewPublisherRequiresTopic(t *testing.T) {
	_, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}}, slog.Default())
	if err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestNewPublisherRejectsNilWriter(t *testing.T) {
	if _, err := newPublisherWithWriter(nil, slog.Default()); !errors.Is(err, errNilWriter) {
		t.Fatalf("err = %v, want errNilWriter", err)
	}
}
