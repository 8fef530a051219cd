//go:build integration

package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/wjixiang/aikb/internal/testutils"
	"github.com/wjixiang/aikb/pkg/message"
)

func TestClientIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	t.Log("Starting RabbitMQ container...")
	queues := DefaultQueues()
	broker := testutils.StartRabbitMQContainer(t, ctx, queues.Names())
	defer broker.Close(ctx)

	client := NewClient(Config{URL: broker.URL})
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	t.Run("publish and consume", func(t *testing.T) {
		req := &message.SplitRequest{
			ItemID:    "itg-item",
			SourceURL: "https://example.com/doc.pdf",
			FileName:  "doc.pdf",
			SplitSize: 10,
		}
		req.Stamp(message.EventSplitRequest)

		if err := client.Publish(ctx, queues.SplitRequest, req); err != nil {
			t.Fatalf("publish: %v", err)
		}

		consumeCtx, stop := context.WithCancel(ctx)
		defer stop()

		var got message.SplitRequest
		err := client.Consume(consumeCtx, queues.SplitRequest, func(_ context.Context, d *Delivery) {
			if err := json.Unmarshal(d.Body(), &got); err != nil {
				t.Errorf("unmarshal delivery: %v", err)
			}
			if err := d.Ack(); err != nil {
				t.Errorf("ack: %v", err)
			}
			stop()
		})
		if err != nil && consumeCtx.Err() == nil {
			t.Fatalf("consume: %v", err)
		}

		if got.ItemID != req.ItemID {
			t.Errorf("itemId = %q, want %q", got.ItemID, req.ItemID)
		}
		if got.MessageID != req.MessageID {
			t.Errorf("messageId = %q, want %q", got.MessageID, req.MessageID)
		}
	})

	t.Run("nack without requeue drops", func(t *testing.T) {
		req := &message.SplitRequest{
			ItemID:    "itg-drop",
			SourceURL: "https://example.com/doc.pdf",
			FileName:  "doc.pdf",
			SplitSize: 10,
		}
		req.Stamp(message.EventSplitRequest)

		if err := client.Publish(ctx, queues.SplitRequest, req); err != nil {
			t.Fatalf("publish: %v", err)
		}

		consumeCtx, stop := context.WithCancel(ctx)
		defer stop()

		deliveries := 0
		client.Consume(consumeCtx, queues.SplitRequest, func(_ context.Context, d *Delivery) {
			deliveries++
			if err := d.Nack(false); err != nil {
				t.Errorf("nack: %v", err)
			}
			// Give the broker a moment to redeliver if it was going to.
			go func() {
				time.Sleep(2 * time.Second)
				stop()
			}()
		})

		if deliveries != 1 {
			t.Errorf("got %d deliveries, want 1 (no requeue)", deliveries)
		}
	})

	t.Run("connect fails on missing queue", func(t *testing.T) {
		bad := NewClient(Config{
			URL:    broker.URL,
			Queues: Queues{SplitRequest: "no-such-queue", PartConversion: "x", Progress: "y", Failed: "z"},
		})
		if err := bad.Connect(ctx); err == nil {
			bad.Close()
			t.Fatal("expected connect to fail against undeclared queues")
		}
	})
}
