package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/wjixiang/aikb/internal/partition"
	"github.com/wjixiang/aikb/internal/pdf"
	"github.com/wjixiang/aikb/internal/queue"
	"github.com/wjixiang/aikb/internal/store"
	"github.com/wjixiang/aikb/pkg/message"
)

// Publisher publishes a message to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg any) error
}

// Delivery is one consumed message with manual acknowledgement.
type Delivery interface {
	Body() []byte
	Ack() error
	Nack(requeue bool) error
}

// Source downloads the source document.
type Source interface {
	Download(ctx context.Context, url, destPath string) (int64, error)
}

// PartStore uploads produced parts and returns their addresses.
type PartStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// StageError marks a failure in one pipeline stage. It feeds the
// retry-or-terminal decision; the stages' own internal retries are already
// spent by the time one of these surfaces.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("worker: %s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options configures the worker.
type Options struct {
	// Queues are the broker queue names.
	Queues queue.Queues

	// DefaultSplitSize applies when a request does not carry one.
	// Default: 25
	DefaultSplitSize int

	// MinSplitSize / MaxSplitSize bound the requested part size.
	// Defaults: 10 / 100
	MinSplitSize int
	MaxSplitSize int

	// ConcurrentParts is the dispatch batch size.
	// Default: 3
	ConcurrentParts int

	// MaxRetries applies when a request does not carry maxRetries.
	// Default: 3
	MaxRetries int

	// TempDir is the root for per-request working directories.
	// Default: os.TempDir()
	TempDir string

	// BatchPause is the delay between dispatch batches, a deliberate
	// rate-limit on the downstream consumer.
	// Default: 1s
	BatchPause time.Duration

	// WorkerID identifies this process in logs.
	WorkerID string

	// Logger is the structured logger to use.
	Logger zerolog.Logger
}

// Worker is the splitting orchestrator. It is driven one delivery at a
// time by the consume loop and is the sole owner of the message-level
// retry decision.
type Worker struct {
	pub    Publisher
	src    Source
	parts  PartStore
	status *Reporter
	opts   Options
	log    zerolog.Logger
	timing *timingMap
}

// New creates a worker.
func New(pub Publisher, src Source, parts PartStore, opts Options) *Worker {
	if opts.Queues == (queue.Queues{}) {
		opts.Queues = queue.DefaultQueues()
	}
	if opts.DefaultSplitSize <= 0 {
		opts.DefaultSplitSize = 25
	}
	if opts.MinSplitSize <= 0 {
		opts.MinSplitSize = 10
	}
	if opts.MaxSplitSize <= 0 {
		opts.MaxSplitSize = 100
	}
	if opts.ConcurrentParts <= 0 {
		opts.ConcurrentParts = 3
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = time.Second
	}

	log := opts.Logger
	if opts.WorkerID != "" {
		log = log.With().Str("worker_id", opts.WorkerID).Logger()
	}

	return &Worker{
		pub:    pub,
		src:    src,
		parts:  parts,
		status: NewReporter(pub, opts.Queues, log),
		opts:   opts,
		log:    log,
		timing: newTimingMap(),
	}
}

// Handle processes one inbound split request delivery end to end and makes
// the ack/nack decision. It is the queue.Handler for the split-request
// queue.
func (w *Worker) Handle(ctx context.Context, d Delivery) {
	var req message.SplitRequest
	if err := json.Unmarshal(d.Body(), &req); err != nil {
		w.log.Warn().Err(err).Msg("dropping malformed split request")
		w.nack(d)
		return
	}
	if err := req.Validate(); err != nil {
		w.log.Warn().Err(err).Str("message_id", req.MessageID).Msg("dropping invalid split request")
		w.nack(d)
		return
	}
	// A request without maxRetries takes the worker default; an explicit
	// zero means the sender wants no retries at all.
	if req.MaxRetries == nil {
		def := w.opts.MaxRetries
		req.MaxRetries = &def
	}

	log := w.log.With().Str("item_id", req.ItemID).Str("message_id", req.MessageID).Logger()

	if req.RetryCount > *req.MaxRetries {
		err := fmt.Errorf("retry count %d exceeds max %d", req.RetryCount, *req.MaxRetries)
		log.Error().Err(err).Msg("split request rejected")
		w.status.Failed(ctx, req.ItemID, "PDF splitting rejected: "+err.Error(), err)
		w.status.Terminal(ctx, req.ItemID, "PDF splitting failed permanently", err)
		w.nack(d)
		return
	}

	w.timing.start(req.ItemID)
	defer w.timing.clear(req.ItemID)

	log.Info().Int("retry_count", req.RetryCount).Msg("processing split request")

	if err := w.process(ctx, &req, log); err != nil {
		w.fail(ctx, &req, err, log)
		w.nack(d)
		return
	}

	elapsed := w.timing.elapsed(req.ItemID)
	log.Info().Dur("elapsed", elapsed).Msg("split request completed")

	if err := d.Ack(); err != nil {
		log.Error().Err(err).Msg("ack failed; broker will redeliver")
	}
}

// process runs the download → split → upload → dispatch stages inside a
// scoped working directory that is removed on every exit path.
func (w *Worker) process(ctx context.Context, req *message.SplitRequest, log zerolog.Logger) error {
	workDir := filepath.Join(w.opts.TempDir, req.ItemID+"-"+req.MessageID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return &StageError{Stage: "download", Err: fmt.Errorf("create working directory: %w", err)}
	}
	defer os.RemoveAll(workDir)

	// Download.
	w.status.Status(ctx, req.ItemID, message.StatusAnalyzing, "Downloading source document")

	docPath := filepath.Join(workDir, "original.pdf")
	size, err := w.src.Download(ctx, req.SourceURL, docPath)
	if err != nil {
		return &StageError{Stage: "download", Err: err}
	}
	log.Debug().Int64("bytes", size).Msg("source document downloaded")

	// Split. The downloaded file's page count is authoritative; the
	// declared one is advisory.
	w.status.Status(ctx, req.ItemID, message.StatusSplitting, "Splitting PDF into parts")

	pageCount, err := pdf.PageCount(docPath)
	if err != nil {
		return &StageError{Stage: "split", Err: err}
	}
	if req.PageCount > 0 && req.PageCount != pageCount {
		log.Warn().Int("declared", req.PageCount).Int("actual", pageCount).Msg("declared page count mismatch")
	}

	splitSize := req.SplitSize
	if splitSize <= 0 {
		splitSize = w.opts.DefaultSplitSize
	}
	splitSize = partition.ClampPartSize(splitSize, w.opts.MinSplitSize, w.opts.MaxSplitSize)

	plan, err := partition.Plan(pageCount, splitSize)
	if err != nil {
		return &StageError{Stage: "split", Err: err}
	}
	if err := partition.Verify(plan, pageCount); err != nil {
		return &StageError{Stage: "split", Err: err}
	}

	partFiles, err := pdf.SplitFile(docPath, workDir, plan)
	if err != nil {
		return &StageError{Stage: "split", Err: err}
	}
	log.Info().Int("parts", len(partFiles)).Int("pages", pageCount).Msg("document split")

	// Upload, sequentially in index order. Earlier parts are not rolled
	// back on failure: keys are deterministic, so a retry overwrites them.
	uploaded := make([]*message.PartConversionRequest, 0, len(partFiles))
	for i, pf := range partFiles {
		key := store.PartKey(req.ItemID, pf.Range.Index)
		storageURL, err := w.parts.Upload(ctx, pf.Path, key)
		if err != nil {
			return &StageError{Stage: "upload", Err: err}
		}

		part := &message.PartConversionRequest{
			ItemID:     req.ItemID,
			PartIndex:  pf.Range.Index,
			TotalParts: len(partFiles),
			StorageKey: key,
			StorageURL: storageURL,
			FileName:   message.PartFileName(req.FileName, pf.Range.Index),
			StartPage:  pf.Range.StartPage,
			EndPage:    pf.Range.EndPage,
			Priority:   req.Priority,
			MaxRetries: *req.MaxRetries,
		}
		part.Stamp(message.EventPartConversionRequest)
		uploaded = append(uploaded, part)

		pct := int(math.Round(100 * float64(i+1) / float64(len(partFiles))))
		w.status.Progress(ctx, req.ItemID, message.StatusProcessing,
			fmt.Sprintf("Uploaded part %d/%d", i+1, len(partFiles)), pct)
	}

	// Dispatch in batches, pausing between them to pace the downstream
	// consumer. Publishes stay in ascending part order.
	if err := w.dispatch(ctx, req.ItemID, uploaded); err != nil {
		return &StageError{Stage: "dispatch", Err: err}
	}

	w.status.Progress(ctx, req.ItemID, message.StatusCompleted,
		fmt.Sprintf("PDF split into %d parts", len(partFiles)), 100)
	return nil
}

// dispatch publishes one part-conversion request per part.
func (w *Worker) dispatch(ctx context.Context, itemID string, parts []*message.PartConversionRequest) error {
	batch := w.opts.ConcurrentParts

	for start := 0; start < len(parts); start += batch {
		end := start + batch
		if end > len(parts) {
			end = len(parts)
		}

		for _, part := range parts[start:end] {
			if err := w.pub.Publish(ctx, w.opts.Queues.PartConversion, part); err != nil {
				return fmt.Errorf("publish part %d: %w", part.PartIndex, err)
			}
			w.status.Status(ctx, itemID, message.StatusProcessing,
				fmt.Sprintf("Dispatched part %d/%d for conversion", part.PartIndex+1, part.TotalParts))
		}

		if end < len(parts) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.opts.BatchPause):
			}
		}
	}
	return nil
}

// fail runs the retry-or-terminal decision for a failed request. Validation
// failures are terminal immediately: retrying a document with no pages or an
// unplannable range produces the same result every time.
func (w *Worker) fail(ctx context.Context, req *message.SplitRequest, err error, log zerolog.Logger) {
	log.Error().Err(err).Msg("split request failed")
	w.status.Failed(ctx, req.ItemID, "PDF splitting failed: "+err.Error(), err)

	if errors.Is(err, partition.ErrInvalidPageCount) || errors.Is(err, partition.ErrInvalidPartSize) {
		log.Error().Msg("validation failure, not retrying")
		w.status.Terminal(ctx, req.ItemID, "PDF splitting failed permanently", err)
		return
	}

	if req.RetryCount < *req.MaxRetries {
		retry := req.Retry()
		log.Info().
			Int("attempt", retry.RetryCount).
			Int("max_retries", *retry.MaxRetries).
			Str("retry_message_id", retry.MessageID).
			Msg("republishing split request")
		if pubErr := w.pub.Publish(ctx, w.opts.Queues.SplitRequest, retry); pubErr != nil {
			// The retry is lost; leave the terminal record instead of
			// silently dropping the item.
			log.Error().Err(pubErr).Msg("republish failed")
			w.status.Terminal(ctx, req.ItemID, "PDF splitting failed permanently: retry publish failed", err)
		}
		return
	}

	log.Error().Int("max_retries", *req.MaxRetries).Msg("retries exhausted")
	w.status.Terminal(ctx, req.ItemID, "PDF splitting failed permanently", err)
}

// nack drops the delivery without requeue. Application retries travel as
// new messages, never as broker redelivery.
func (w *Worker) nack(d Delivery) {
	if err := d.Nack(false); err != nil {
		w.log.Error().Err(err).Msg("nack failed")
	}
}
