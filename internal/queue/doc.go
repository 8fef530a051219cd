// Package queue is the worker's client for the durable message broker.
//
// It covers exactly what the worker needs from AMQP: publish with
// persistent delivery and message identity properties, and consume with
// manual acknowledgement, one message in flight at a time.
//
// On connect the client passively verifies that the queues it uses exist.
// Queue creation is owned by the deployment process, never by the worker,
// so a missing queue is a fail-fast configuration error rather than
// something to repair at runtime.
package queue
