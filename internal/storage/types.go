package storage

import (
	"time"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite" (default): SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Subscription is one (user, filter) pair. A user may hold any number
// of subscriptions, duplicates included.
type Subscription struct {
	ID         int64
	UserID     int64
	FilterText string
	CreatedAt  time.Time
}

// DeliveryRecord marks an upstream event as already fanned out.
// Existence of the row is the sole dedup signal.
type DeliveryRecord struct {
	EventID     string
	DeliveredAt time.Time
}
