package amqp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"timetrack/internal/domain"
)

func TestMessage(t *testing.T) {
	at := time.Date(2024, 1, 10, 11, 0, 0, 0, time.UTC)
	in := at.Add(-2 * time.Hour)
	e := domain.TimeEntry{ID: "e1", WorkerID: "w1", ProjectID: "p1", ClockIn: in}
	if err := e.Close(at); err != nil {
		t.Fatal(err)
	}
	ev := domain.NewEntryEvent(domain.EventClockedOut, e, domain.UserWorker, at)

	key, msg, err := message(ev)
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if key != "entry.clocked_out" {
		t.Errorf("routing key = %q", key)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" {
		t.Errorf("publishing = %+v", msg)
	}

	var body map[string]any
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["entry_id"] != "e1" || body["status"] != "completed" || body["total_hours"] != 2.0 {
		t.Errorf("body = %v", body)
	}
}

func TestPublishWithoutChannel(t *testing.T) {
	p := &Publisher{exchange: "x", log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	err := p.PublishEntryEvent(context.Background(), domain.EntryEvent{Type: domain.EventAdded})
	if err == nil {
		t.Fatal("expected an error without a channel")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close on an unconnected publisher: %v", err)
	}
}
