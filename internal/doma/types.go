package doma

import (
	"encoding/json"
	"time"
)

// Event is one upstream occurrence from the poll feed.
//
// UniqueID is the global identity used for delivery dedup and is stable
// across re-fetches of the same logical event. ID is the feed's
// monotonically non-decreasing cursor position.
type Event struct {
	ID        json.Number    `json:"id"`
	UniqueID  string         `json:"uniqueId"`
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	EventData map[string]any `json:"eventData,omitempty"`
}

// NumericID returns the cursor id, or false when the feed sent
// something that isn't a whole number.
func (e Event) NumericID() (int64, bool) {
	n, err := e.ID.Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

// Config mirrors the doma section of the app config in client terms.
type Config struct {
	BaseURL       string
	APIKey        string
	APIHeader     string
	Simulate      bool
	EventTypes    []string
	FinalizedOnly bool
	PageLimit     int

	// HTTPTimeout bounds a single live request. 0 means 10s.
	HTTPTimeout time.Duration
}

func (c *Config) limit() int {
	if c.PageLimit <= 0 {
		return 20
	}
	return c.PageLimit
}
