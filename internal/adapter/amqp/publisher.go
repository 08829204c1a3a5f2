// Package amqp publishes time-entry events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// Publisher implements ports.EventPublisher. Routing keys are the event
// types, e.g. "entry.clocked_in".
type Publisher struct {
	exchange string
	log      *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher dials url and declares exchange as a durable topic exchange.
func NewPublisher(ctx context.Context, url, exchange string, log *slog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("amqp: URL is required")
	}
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	log.Info("rabbitmq connected", slog.String("exchange", exchange))
	return &Publisher{exchange: exchange, log: log, conn: conn, ch: ch}, nil
}

func (p *Publisher) PublishEntryEvent(ctx context.Context, ev domain.EntryEvent) error {
	key, msg, err := message(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return errors.New("rabbitmq channel not available")
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ch.PublishWithContext(publishCtx, p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}
	p.log.Debug("entry event published", slog.String("routing_key", key), slog.String("entry_id", ev.EntryID))
	return nil
}

// message builds the routing key and persistent JSON message for ev.
func message(ev domain.EntryEvent) (string, amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return "", amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return string(ev.Type), amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         string(ev.Type),
		MessageId:    ev.EntryID + ":" + ev.At.Format(time.RFC3339Nano),
	}, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}
