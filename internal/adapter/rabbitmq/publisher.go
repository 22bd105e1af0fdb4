package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"crowdfund-escrow/internal/core/domain"
	"crowdfund-escrow/internal/core/port"
)

// channel is the part of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher publishes campaign events as JSON to a durable topic exchange.
// The event type is the routing key.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	ch       channel
	exchange string
	declared bool
}

var _ port.EventPublisher = (*Publisher)(nil)

// NewPublisher dials amqpURL and opens a channel.
func NewPublisher(amqpURL, exchange string) (*Publisher, error) {
	clean, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// bounded dial so startup does not hang on an unreachable broker
	conn, err := amqp091.DialConfig(clean, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends ev to the exchange. The exchange is declared on first use
// and again after the channel has been reopened. A failed publish reopens
// the channel and tries once more.
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err = p.send(ctx, string(ev.Type), msg); err == nil {
		return nil
	}
	if reopenErr := p.reopen(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}
	return p.send(ctx, string(ev.Type), msg)
}

func (p *Publisher) send(ctx context.Context, key string, msg amqp091.Publishing) error {
	if !p.declared {
		if err := p.ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
		}
		p.declared = true
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
}

func (p *Publisher) reopen() error {
	if p.conn == nil {
		return errors.New("no connection")
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	_ = p.ch.Close()
	p.ch = ch
	p.declared = false
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// NopPublisher drops events. It is used when no broker is configured or the
// broker was unreachable at startup.
type NopPublisher struct {
	Logger *slog.Logger
}

var _ port.EventPublisher = NopPublisher{}

// Publish logs ev at debug level and discards it.
func (p NopPublisher) Publish(_ context.Context, ev domain.Event) error {
	if p.Logger != nil {
		p.Logger.Debug("event publish skipped",
			slog.String("type", string(ev.Type)),
			slog.String("campaign_id", ev.CampaignID.String()),
		)
	}
	return nil
}

// Close does nothing.
func (NopPublisher) Close() {}

// sanitizeURL strips quotes and whitespace that tend to leak in from .env
// files and insists on an amqp or amqps scheme.
func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", fmt.Errorf("amqp url must use amqp:// or amqps://, got %q", u.Scheme)
	}
	return clean, nil
}
