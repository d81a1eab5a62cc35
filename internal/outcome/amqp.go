package outcome

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Exchange and routing key of closed-trade messages.
const (
	DefaultExchange   = "trade.outcomes"
	DefaultRoutingKey = "execution.closed"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ Channel = (*amqp.Channel)(nil)

// AMQPPublisher publishes outcomes as persistent JSON to a topic exchange.
type AMQPPublisher struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	channel    Channel
	exchange   string
	routingKey string
	log        *logrus.Entry
}

// DialOptions configures Dial.
type DialOptions struct {
	URL        string
	Exchange   string
	RoutingKey string
	MaxRetries int           // default 5
	RetryDelay time.Duration // default 2s
	Log        *logrus.Entry
}

// Dial connects to the broker with retries and declares the exchange.
func Dial(ctx context.Context, opts DialOptions) (*AMQPPublisher, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = logrus.WithField("component", "outcome")
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		conn, err = amqp.Dial(opts.URL)
		if err == nil {
			break
		}
		log.WithFields(logrus.Fields{"attempt": attempt, "max": opts.MaxRetries}).WithError(err).Warn("amqp dial failed")
		if attempt == opts.MaxRetries {
			return nil, fmt.Errorf("dial amqp after %d attempts: %w", attempt, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	p, err := NewAMQPPublisher(ch, opts.Exchange, opts.RoutingKey, log)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher declares a durable topic exchange on ch.
func NewAMQPPublisher(ch Channel, exchange, routingKey string, log *logrus.Entry) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	if log == nil {
		log = logrus.WithField("component", "outcome")
	}

	err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		log:        log,
	}, nil
}

// PublishOutcome publishes one outcome. Channels are not goroutine-safe, so
// publishes are serialized.
func (p *AMQPPublisher) PublishOutcome(ctx context.Context, o Outcome) error {
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    o.ExecutionID,
			Timestamp:    o.ClosedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish outcome %s: %w", o.ExecutionID, err)
	}

	p.log.WithFields(logrus.Fields{
		"execution_id": o.ExecutionID,
		"order_id":     o.OrderID,
		"win":          o.Win,
	}).Debug("outcome published")
	return nil
}

// Close closes the channel and, when dialled, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		firstErr = p.channel.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
