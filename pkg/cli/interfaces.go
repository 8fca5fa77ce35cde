// Package cli is the client library for talking to a running focusgate
// daemon over its local HTTP API.
package cli

import (
	"context"
	"encoding/json"
)

// DaemonClient is the interface for communicating with the focusgate daemon.
type DaemonClient interface {
	// IsRunning checks if the daemon is running.
	IsRunning() bool

	// GetStatus fetches the daemon state snapshot.
	GetStatus() (*Status, error)

	// Decide asks for an allow/deny verdict on a URL.
	Decide(ctx context.Context, rawURL string) (*Verdict, error)

	// Command sends an operation envelope and returns the raw result.
	Command(ctx context.Context, op string, payload any) (json.RawMessage, error)

	// CommandInto sends an operation envelope and decodes the result into out.
	CommandInto(ctx context.Context, op string, payload any, out any) error
}

// Compile-time check.
var _ DaemonClient = (*Client)(nil)
