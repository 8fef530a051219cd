package message

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status values reported in ProgressEvent.
const (
	StatusPending    = "pending"
	StatusAnalyzing  = "analyzing"
	StatusSplitting  = "splitting"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Event type discriminators.
const (
	EventSplitRequest          = "PDF_SPLITTING_REQUEST"
	EventPartConversionRequest = "PDF_PART_CONVERSION_REQUEST"
	EventConversionProgress    = "PDF_CONVERSION_PROGRESS"
	EventConversionFailed      = "PDF_CONVERSION_FAILED"
)

// Envelope carries the fields common to every published message.
type Envelope struct {
	MessageID string `json:"messageId"`
	Timestamp int64  `json:"timestamp"`
	EventType string `json:"eventType"`
}

// Stamp assigns a fresh message id and the current epoch-seconds timestamp.
func (e *Envelope) Stamp(eventType string) {
	e.MessageID = uuid.NewString()
	e.Timestamp = time.Now().Unix()
	e.EventType = eventType
}

// Identity returns the message id and timestamp for broker-level message
// properties.
func (e Envelope) Identity() (string, int64) {
	return e.MessageID, e.Timestamp
}

// SplitRequest is the inbound request to split one document into parts.
type SplitRequest struct {
	Envelope

	ItemID     string `json:"itemId"`
	SourceURL  string `json:"sourceUrl"`
	SourceKey  string `json:"sourceKey,omitempty"`
	FileName   string `json:"fileName"`
	PageCount  int    `json:"pageCount,omitempty"` // declared by the sender, advisory only
	SplitSize  int    `json:"splitSize,omitempty"`
	Priority   string `json:"priority,omitempty"`
	RetryCount int    `json:"retryCount"`

	// MaxRetries distinguishes absent from explicit zero: nil leaves the
	// retry policy to the worker, zero disables retries outright.
	MaxRetries *int `json:"maxRetries,omitempty"`
}

// Validate reports the first missing required field.
func (r *SplitRequest) Validate() error {
	if r.ItemID == "" {
		return errors.New("message: missing itemId")
	}
	if r.SourceURL == "" {
		return errors.New("message: missing sourceUrl")
	}
	if r.FileName == "" {
		return errors.New("message: missing fileName")
	}
	if r.RetryCount < 0 {
		return fmt.Errorf("message: negative retryCount %d", r.RetryCount)
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return fmt.Errorf("message: negative maxRetries %d", *r.MaxRetries)
	}
	return nil
}

// Retry returns a clone of the request with a fresh message id, a current
// timestamp, and the retry count incremented. The item id is preserved so
// observers see the retry as the same logical document.
func (r *SplitRequest) Retry() *SplitRequest {
	clone := *r
	clone.Stamp(EventSplitRequest)
	clone.RetryCount = r.RetryCount + 1
	return &clone
}

// PartConversionRequest is published once per uploaded part. Its retry state
// is independent of the parent request: a fresh message id and retryCount 0.
type PartConversionRequest struct {
	Envelope

	ItemID     string `json:"itemId"`
	PartIndex  int    `json:"partIndex"`
	TotalParts int    `json:"totalParts"`
	StorageKey string `json:"storageKey"`
	StorageURL string `json:"storageUrl"`
	FileName   string `json:"fileName"`
	StartPage  int    `json:"startPage"`
	EndPage    int    `json:"endPage"`
	Priority   string `json:"priority,omitempty"`
	RetryCount int    `json:"retryCount"`
	MaxRetries int    `json:"maxRetries"`
}

// PartFileName derives the per-part file name from the parent request's
// file name. Parts are numbered from 1 on the wire.
func PartFileName(parent string, partIndex int) string {
	return fmt.Sprintf("%s_part_%d", parent, partIndex+1)
}

// ProgressEvent reports the status of one item as it moves through the
// pipeline. Progress, when present, is clamped to [0, 100].
type ProgressEvent struct {
	Envelope

	ItemID   string `json:"itemId"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Progress *int   `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewProgressEvent builds a stamped progress event without a progress value.
func NewProgressEvent(itemID, status, text string) *ProgressEvent {
	ev := &ProgressEvent{
		ItemID:  itemID,
		Status:  status,
		Message: text,
	}
	ev.Stamp(EventConversionProgress)
	return ev
}

// WithProgress sets a clamped progress percentage.
func (ev *ProgressEvent) WithProgress(pct int) *ProgressEvent {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	ev.Progress = &pct
	return ev
}

// WithError records the raw error text alongside the human message.
func (ev *ProgressEvent) WithError(err error) *ProgressEvent {
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}
