// Package timeouts defines shared timeout constants used across the
// service. Centralizing these values keeps the durations discoverable and
// prevents drift between the server lifecycle and its handlers.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Request caps the time allowed for a single API request, including its
// storage work and synchronous notification fan-out.
const Request = 10 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
