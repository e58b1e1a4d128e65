package storage

import (
	"context"
	"errors"
	"strings"

	"domabot/pkg/logx"
)

// Store is the persistence API used by the poller and the command
// surface. Each method is a short independent transaction; the store
// holds no long-lived locks.
type Store interface {
	// Subscription registry.
	AddSubscription(ctx context.Context, userID int64, filterText string) (int64, error)
	ListSubscriptions(ctx context.Context, userID int64) ([]Subscription, error)
	// DeleteSubscription returns false when no row with that id belongs
	// to userID. Ownership is enforced in the query itself.
	DeleteSubscription(ctx context.Context, userID, id int64) (bool, error)
	ListAllSubscriptions(ctx context.Context) ([]Subscription, error)

	// Delivery ledger.
	WasDelivered(ctx context.Context, eventID string) (bool, error)
	// MarkDelivered is idempotent: marking the same event twice is a no-op.
	MarkDelivered(ctx context.Context, eventID string) error
	LedgerSize(ctx context.Context) (int64, error)

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
