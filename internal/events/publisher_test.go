package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	e := model.Event{
		ID:          uuid.New(),
		EventType:   model.EventTypeBookingStatusChanged,
		CreatedAt:   time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
		BookingID:   uuid.New(),
		BookingCode: "BK-20250310-000001-ABC123",
		Status:      model.BookingStatusConfirmed,
	}
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]

	// Ключ по брони держит её события в одной партиции.
	if string(msg.Key) != e.BookingID.String() {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	if len(msg.Headers) != 1 || msg.Headers[0].Key != "event_type" || string(msg.Headers[0].Value) != string(e.EventType) {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}
	if !msg.Time.Equal(e.CreatedAt) {
		t.Fatalf("expected message time %v, got %v", e.CreatedAt, msg.Time)
	}

	var payload map[string]any
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	want := map[string]string{
		"event_type":   "booking_status_changed",
		"booking_id":   e.BookingID.String(),
		"booking_code": e.BookingCode,
		"status":       "confirmed",
	}
	for k, v := range want {
		if payload[k] != v {
			t.Fatalf("payload %s: expected %q, got %v", k, v, payload[k])
		}
	}
	if _, ok := payload["user_id"]; ok {
		t.Fatalf("empty user_id must be omitted: %s", msg.Value)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("close: %v", err)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}}
	if err := p.Publish(context.Background(), model.Event{BookingID: uuid.New()}); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
}
