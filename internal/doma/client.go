// Package doma talks to the upstream domain-event feed.
//
// The feed is cursor-paginated: each poll returns events after the last
// acknowledged id, and acknowledging an id advances the cursor. A page
// is re-served until acknowledged, so a skipped cycle loses nothing.
package doma

import (
	"context"

	"domabot/pkg/logx"
)

// Client fetches event pages and acknowledges the consumed cursor.
//
// FetchPage degrades to an empty page when the upstream stays down
// across all retry attempts; it never reports an error to the caller.
// Acknowledge likewise degrades to false. Both log the underlying
// failure. This keeps upstream flakiness non-fatal to a poll cycle at
// the cost of deferring that cycle's events to the next fetch.
type Client interface {
	FetchPage(ctx context.Context) []Event
	Acknowledge(ctx context.Context, lastID int64) bool
	Close()
}

// New selects the client implementation from config.
func New(cfg Config, log logx.Logger) Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Simulate {
		return newSimClient(cfg, log)
	}
	return newLiveClient(cfg, log)
}
