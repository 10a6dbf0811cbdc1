package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewClient dials the broker, retrying connection failures up to attempts
// times with exponential backoff, and declares the exchange and queue.
func NewClient(ctx context.Context, url, exchangeName, queueName string, attempts int) (*Client, error) {
	if attempts < 1 {
		attempts = 1
	}

	var conn *amqp091.Connection
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		conn, err = amqp091.Dial(url)
		if err == nil {
			break
		}
		if !isConnectionError(err) || attempt == attempts-1 {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP dial failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishSync announces that kind changed in the primary store.
func (c *Client) PublishSync(ctx context.Context, kind SyncKind, count int) error {
	msg := NewSyncMessage(kind, count)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published sync message",
		"kind", kind,
		"count", count,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// Handler processes one sync message. A returned error requeues it.
type Handler func(ctx context.Context, msg *SyncMessage) error

type outcome int

const (
	ack outcome = iota
	requeue
	discard
)

// handle decodes one delivery body and runs h on it.
func handle(ctx context.Context, body []byte, h Handler) outcome {
	msg, err := SyncMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode sync message", "error", err)
		return discard
	}
	slog.InfoContext(ctx, "Processing sync message", "kind", msg.Kind, "count", msg.Count)
	if err := h(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle sync message", "kind", msg.Kind, "error", err)
		return requeue
	}
	return ack
}

// ConsumeSync consumes sync messages until ctx is done. Undecodable
// messages are dropped; handler failures are requeued.
func (c *Client) ConsumeSync(ctx context.Context, h Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming sync messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			var ackErr error
			switch handle(ctx, delivery.Body, h) {
			case ack:
				ackErr = delivery.Ack(false)
			case requeue:
				ackErr = delivery.Nack(false, true)
			case discard:
				ackErr = delivery.Nack(false, false)
			}
			if ackErr != nil {
				slog.ErrorContext(ctx, "Failed to settle delivery", "error", ackErr)
			}
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover || amqpErr.Code == amqp091.ConnectionForced
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused", "connection reset", "connection closed", "closed network connection",
		"broken pipe", "eof", "i/o timeout", "no such host",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
