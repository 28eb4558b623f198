// Package timeouts defines shared timeout constants used across the relay.
// Centralizing these values keeps the durations discoverable and prevents
// drift between the transport and storage boundaries.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Storage caps a single persistence call made on behalf of one inbound
// operation. A stalled store fails the operation instead of wedging the
// connection's read loop.
const Storage = 5 * time.Second
