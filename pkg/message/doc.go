// Package message defines the on-wire message contract of the PDF split
// worker.
//
// Every message published to the broker carries a unique message id, an
// epoch-seconds timestamp, and an event type discriminator. Downstream
// services rely on these fields for idempotency and correlation, so their
// JSON names are part of the public contract and must not change.
//
// # Message types
//
//   - SplitRequest: inbound request to split one document
//   - PartConversionRequest: outbound, one per produced part
//   - ProgressEvent: outbound status updates, any number per request
//
// Retries are application-level: a failed SplitRequest is cloned via Retry
// with a fresh message id and an incremented retry count, and the original
// delivery is negatively acknowledged without requeue.
package message
