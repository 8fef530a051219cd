package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names used by the split worker.
type Queues struct {
	SplitRequest   string
	PartConversion string
	Progress       string
	Failed         string
}

// DefaultQueues returns the deployment's standard queue names.
func DefaultQueues() Queues {
	return Queues{
		SplitRequest:   "split-request",
		PartConversion: "part-conversion-request",
		Progress:       "progress",
		Failed:         "conversion-failed",
	}
}

// Names lists the queue names in a stable order.
func (q Queues) Names() []string {
	return []string{q.SplitRequest, q.PartConversion, q.Progress, q.Failed}
}

// ChannelError wraps a failed broker operation.
type ChannelError struct {
	Op    string
	Queue string
	Err   error
}

func (e *ChannelError) Error() string {
	if e.Queue == "" {
		return fmt.Sprintf("queue: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("queue: %s %s: %v", e.Op, e.Queue, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// stamped is implemented by messages carrying their own identity; the
// client mirrors it into broker-level message properties.
type stamped interface {
	Identity() (messageID string, timestamp int64)
}

// Config configures the broker connection.
type Config struct {
	// URL is the full AMQP connection URL.
	URL string

	// Queues are the queue names to verify and use.
	Queues Queues
}

// Client is a broker client for sequential use by one worker process.
type Client struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewClient creates an unconnected client.
func NewClient(cfg Config) *Client {
	if cfg.Queues == (Queues{}) {
		cfg.Queues = DefaultQueues()
	}
	return &Client{cfg: cfg}
}

// Connect dials the broker and verifies that all queues exist. Verification
// is passive: the worker never creates or mutates queue topology.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return &ChannelError{Op: "connect", Err: err}
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return &ChannelError{Op: "open channel", Err: err}
	}

	// One unacked message in flight per worker process.
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return &ChannelError{Op: "set qos", Err: err}
	}

	for _, name := range c.cfg.Queues.Names() {
		if _, err := ch.QueueDeclarePassive(name, true, false, false, false, nil); err != nil {
			conn.Close()
			return &ChannelError{
				Op:    "verify",
				Queue: name,
				Err:   fmt.Errorf("queue missing or misconfigured (queue topology is owned by deployment): %w", err),
			}
		}
	}

	c.conn = conn
	c.ch = ch
	return nil
}

// Close shuts down the channel and connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.ch = nil
	return err
}

// Queues returns the configured queue names.
func (c *Client) Queues() Queues {
	return c.cfg.Queues
}

// Publish marshals msg as JSON and publishes it to queue with persistent
// delivery. Messages carrying their own identity have it mirrored into the
// broker message properties.
func (c *Client) Publish(ctx context.Context, queue string, msg any) error {
	if c.ch == nil {
		return &ChannelError{Op: "publish", Queue: queue, Err: fmt.Errorf("not connected")}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return &ChannelError{Op: "encode", Queue: queue, Err: err}
	}

	pub := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Body:         body,
	}
	if s, ok := msg.(stamped); ok {
		id, ts := s.Identity()
		pub.MessageId = id
		if ts > 0 {
			pub.Timestamp = time.Unix(ts, 0)
		}
	}

	if err := c.ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return &ChannelError{Op: "publish", Queue: queue, Err: err}
	}
	return nil
}

// Delivery is one consumed message with manual acknowledgement.
type Delivery struct {
	body []byte
	tag  uint64
	ack  amqp.Acknowledger
}

// Body returns the raw message body.
func (d *Delivery) Body() []byte { return d.body }

// Ack acknowledges the message.
func (d *Delivery) Ack() error { return d.ack.Ack(d.tag, false) }

// Nack negatively acknowledges the message, optionally requeueing it.
func (d *Delivery) Nack(requeue bool) error { return d.ack.Nack(d.tag, false, requeue) }

// Handler processes one delivery. The handler owns the ack/nack decision.
type Handler func(ctx context.Context, d *Delivery)

// Consume invokes handler for each message delivered on queue until ctx is
// cancelled or the broker closes the stream. Deliveries arrive one at a
// time (prefetch 1) and are never auto-acknowledged.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	if c.ch == nil {
		return &ChannelError{Op: "consume", Queue: queue, Err: fmt.Errorf("not connected")}
	}

	deliveries, err := c.ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return &ChannelError{Op: "consume", Queue: queue, Err: err}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &ChannelError{Op: "consume", Queue: queue, Err: fmt.Errorf("delivery stream closed")}
			}
			handler(ctx, &Delivery{body: d.Body, tag: d.DeliveryTag, ack: d.Acknowledger})
		}
	}
}
