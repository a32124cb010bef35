// Package amqp carries ledger sync requests from the API process to
// quy-worker over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"quy/internal/log"
)

const (
	// ledgerSyncType marks sync requests in the Type property.
	ledgerSyncType = "quy.ledger.sync"
	consumerTag    = "quy-worker"
	publishTimeout = 5 * time.Second
)

// Handler processes one sync request. A non-nil error drops the delivery.
type Handler func(context.Context, *LedgerSyncMessage) error

// Client publishes and consumes sync requests on one direct exchange bound to
// one durable queue. The routing key is the queue name.
type Client struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
}

// NewClient dials url and declares the exchange, queue and binding.
func NewClient(url, exchange, queue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{conn: conn, channel: channel, exchange: exchange, queue: queue}
	if err := c.declare(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) declare() error {
	if err := c.channel.ExchangeDeclare(c.exchange, amqp091.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	if err := c.channel.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.queue, err)
	}
	return nil
}

// publishing builds the persistent delivery for msg.
func publishing(msg *LedgerSyncMessage) (amqp091.Publishing, error) {
	body, err := msg.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    strconv.FormatInt(msg.Revision, 10),
		Type:         ledgerSyncType,
		Timestamp:    msg.Timestamp,
		Body:         body,
	}, nil
}

// PublishLedgerSync asks the worker to mirror the ledger at revision.
func (c *Client) PublishLedgerSync(ctx context.Context, revision int64, endpoint string) error {
	p, err := publishing(NewLedgerSyncMessage(revision, endpoint))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := c.channel.PublishWithContext(ctx, c.exchange, c.queue, false, false, p); err != nil {
		return fmt.Errorf("publish ledger sync: %w", err)
	}

	log.For(log.ComponentAMQP).InfoContext(ctx, "Published ledger sync message",
		"revision", revision,
		"exchange", c.exchange,
		"queue", c.queue)
	return nil
}

// ConsumeLedgerSync hands messages to handler one at a time until ctx is done.
func (c *Client) ConsumeLedgerSync(ctx context.Context, handler Handler) error {
	// One unacknowledged delivery at a time: pushes rewrite the whole sheet.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	msgs, err := c.channel.Consume(c.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	log.For(log.ComponentAMQP).InfoContext(ctx, "Started consuming ledger sync messages", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			log.For(log.ComponentAMQP).InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			dispatch(ctx, d, handler)
		}
	}
}

// dispatch decodes one delivery and settles it. Failed pushes are dropped,
// not requeued: the next ledger change produces a fresh message anyway.
func dispatch(ctx context.Context, d amqp091.Delivery, handler Handler) {
	msg, err := LedgerSyncMessageFromJSON(d.Body)
	if err != nil {
		log.For(log.ComponentAMQP).ErrorContext(ctx, "Dropping malformed sync message", "error", err, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		log.For(log.ComponentAMQP).ErrorContext(ctx, "Ledger sync message failed", "error", err, "revision", msg.Revision)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
	log.For(log.ComponentAMQP).DebugContext(ctx, "Ledger sync message processed", "revision", msg.Revision)
}

// Close releases the channel and the connection. It is safe on a zero Client.
func (c *Client) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
