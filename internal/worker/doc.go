// Package worker drives the split pipeline for each inbound request.
//
// One delivery moves through download, split, upload and dispatch, and is
// acknowledged only after every part-conversion message is published. Any
// stage failure produces a failed progress event and either a republished
// retry (fresh message id, retry count incremented) or a terminal failure
// record once retries are exhausted. The original delivery is never
// requeued by the broker for application errors; broker redelivery is
// reserved for process crashes, where the unacked message simply comes
// back.
//
// Malformed inbound messages are dropped outright: negative acknowledgement
// without requeue, no retry publish, no progress event.
package worker
