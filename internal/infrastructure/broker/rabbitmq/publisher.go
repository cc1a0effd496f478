// Package rabbitmq publishes ledger change events to a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

const dialTimeout = 10 * time.Second

// Publisher implements ports.EventSink. Events go to exchange with the event
// type as routing key.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// NewPublisher dials amqpURL and declares a durable topic exchange.
func NewPublisher(amqpURL, exchange string, log zerolog.Logger) (*Publisher, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	p := &Publisher{conn: conn, exchange: exchange, log: log}
	if err := p.reopen(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// reopen replaces the channel and re-declares the exchange. Caller holds mu
// or owns p exclusively.
func (p *Publisher) reopen() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("amqp exchange declare %s: %w", p.exchange, err)
	}
	if p.channel != nil {
		p.channel.Close()
	}
	p.channel = ch
	return nil
}

// Publish sends one event, reopening the channel once if the first attempt fails.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.At,
		Type:         string(event.Type),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg)
	if err == nil {
		return nil
	}

	p.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("publish failed, reopening channel")
	if reErr := p.reopen(); reErr != nil {
		return errors.Join(err, reErr)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg)
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Fallback logs events instead of publishing them. It stands in when no
// broker is configured or the broker is unreachable at startup.
type Fallback struct {
	log zerolog.Logger
}

func NewFallback(log zerolog.Logger) *Fallback {
	return &Fallback{log: log}
}

func (f *Fallback) Publish(_ context.Context, event domain.Event) error {
	f.log.Debug().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Uint64("seq", event.Seq).
		Msg("publish skipped")
	return nil
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("amqp url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("amqp url: scheme must be amqp:// or amqps://")
	}
	return clean, nil
}
