package worker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wjixiang/aikb/internal/queue"
	"github.com/wjixiang/aikb/pkg/message"
)

// Reporter formats and publishes progress events derived from pipeline
// state. Observers learn about every failure from an event, never from
// silence, so publish errors here are logged and swallowed rather than
// allowed to fail the pipeline.
type Reporter struct {
	pub    Publisher
	queues queue.Queues
	log    zerolog.Logger
}

// NewReporter creates a status reporter publishing to the given queues.
func NewReporter(pub Publisher, queues queue.Queues, log zerolog.Logger) *Reporter {
	return &Reporter{pub: pub, queues: queues, log: log}
}

// Status publishes a progress event without a percentage.
func (r *Reporter) Status(ctx context.Context, itemID, status, text string) {
	r.publish(ctx, r.queues.Progress, message.NewProgressEvent(itemID, status, text))
}

// Progress publishes a progress event with a clamped percentage.
func (r *Reporter) Progress(ctx context.Context, itemID, status, text string, pct int) {
	r.publish(ctx, r.queues.Progress, message.NewProgressEvent(itemID, status, text).WithProgress(pct))
}

// Failed publishes a failed progress event carrying the raw error text.
func (r *Reporter) Failed(ctx context.Context, itemID, text string, cause error) {
	r.publish(ctx, r.queues.Progress, message.NewProgressEvent(itemID, message.StatusFailed, text).WithError(cause))
}

// Terminal publishes the terminal failure record. It has the same shape as
// a failed progress event but goes to the conversion-failed queue, where it
// is the last word on the item.
func (r *Reporter) Terminal(ctx context.Context, itemID, text string, cause error) {
	ev := message.NewProgressEvent(itemID, message.StatusFailed, text).WithError(cause)
	ev.EventType = message.EventConversionFailed
	r.publish(ctx, r.queues.Failed, ev)
}

func (r *Reporter) publish(ctx context.Context, q string, ev *message.ProgressEvent) {
	if err := r.pub.Publish(ctx, q, ev); err != nil {
		r.log.Error().Err(err).
			Str("item_id", ev.ItemID).
			Str("status", ev.Status).
			Msg("publish progress event failed")
	}
}
