package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"flight-booking/internal/metrics"
	"flight-booking/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	ErrOutboxFull      = errors.New("event outbox is full")
	ErrPublisherClosed = errors.New("event publisher is closed")
)

const (
	defaultDialTimeout = 3 * time.Second
	defaultOutboxSize  = 256
)

// closeTimeout bounds how long Close waits for the outbox to drain.
var closeTimeout = 5 * time.Second

type outboxMessage struct {
	routingKey string
	body       []byte
}

// amqpPublisher hands events to a single sender goroutine through a bounded
// outbox. Publish never touches the network, so a slow or unreachable broker
// costs callers nothing; events that do not fit are dropped.
type amqpPublisher struct {
	url         string
	dialTimeout time.Duration
	log         *zap.Logger

	mu     sync.RWMutex
	closed bool
	outbox chan outboxMessage
	done   chan struct{}

	// owned by the sender goroutine
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

// NewAMQPPublisher returns a no-op publisher when no URL is configured.
func NewAMQPPublisher(cfg utils.AMQPConfig, log *zap.Logger) Publisher {
	if cfg.URL == "" {
		log.Info("RabbitMQ URL not configured, lifecycle events disabled")
		return NewNoopPublisher()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = defaultOutboxSize
	}

	p := &amqpPublisher{
		url:         cfg.URL,
		dialTimeout: cfg.DialTimeout,
		log:         log.With(zap.String("component", "amqp_publisher")),
		outbox:      make(chan outboxMessage, cfg.OutboxSize),
		done:        make(chan struct{}),
		declared:    make(map[string]bool),
	}
	go p.run()
	return p
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.outbox <- outboxMessage{routingKey: routingKey, body: body}:
		return nil
	default:
		metrics.RecordEvent("dropped")
		p.log.Warn("Event outbox full, dropping event", zap.String("routing_key", routingKey))
		return ErrOutboxFull
	}
}

func (p *amqpPublisher) run() {
	defer close(p.done)
	for msg := range p.outbox {
		if err := p.send(msg); err != nil {
			metrics.RecordEvent("failed")
			p.log.Warn("Failed to publish event", zap.Error(err), zap.String("routing_key", msg.routingKey))
			continue
		}
		metrics.RecordEvent("published")
	}
	p.reset()
}

func (p *amqpPublisher) send(msg outboxMessage) error {
	if err := p.ensureChannel(); err != nil {
		return err
	}

	if !p.declared[msg.routingKey] {
		// durable so messages survive broker restarts
		if _, err := p.ch.QueueDeclare(msg.routingKey, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("declare queue %s: %w", msg.routingKey, err)
		}
		p.declared[msg.routingKey] = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.dialTimeout)
	defer cancel()

	err := p.ch.PublishWithContext(ctx, "", msg.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         msg.body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", msg.routingKey, err)
	}

	return nil
}

func (p *amqpPublisher) ensureChannel() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()

	// DefaultDial also puts a deadline on the handshake, so a peer that
	// accepts the socket but never speaks AMQP cannot hold the sender
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial: amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	p.conn = conn
	p.ch = ch
	p.declared = make(map[string]bool)
	return nil
}

func (p *amqpPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close stops intake and waits a bounded time for queued events to go out.
func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.outbox)
	}
	p.mu.Unlock()

	timer := time.NewTimer(closeTimeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("close publisher: %d events not delivered", len(p.outbox))
	}
}
