// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Largest accepted hand image, for both POST bodies and WebSocket messages
	MaxImageBytes = 8 << 20

	// Per-connection sliding window for /ws recognition requests
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Bound on a single WebSocket reply
	WriteTimeout = 5 * time.Second
)
