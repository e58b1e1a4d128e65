// Package alerts owns the delivery ledger and alert presentation.
package alerts

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"domabot/internal/storage"
)

// Service answers "was this event already delivered?" and renders
// alert messages. The ledger is append-only: records are written once
// when fan-out for an event completes and are never mutated or removed
// here.
type Service struct {
	store storage.Store
}

func New(store storage.Store) *Service {
	return &Service{store: store}
}

// WasDelivered reports whether a delivery record exists for the event.
// Absence of a record is the sole signal that an event is new.
func (s *Service) WasDelivered(ctx context.Context, eventID string) (bool, error) {
	return s.store.WasDelivered(ctx, eventID)
}

// MarkDelivered records the event as fanned out. Idempotent.
func (s *Service) MarkDelivered(ctx context.Context, eventID string) error {
	return s.store.MarkDelivered(ctx, eventID)
}

// FormatAlert renders the message sent to subscribers: a title line
// followed by the body lines.
func FormatAlert(title string, lines []string) string {
	if len(lines) == 0 {
		return title
	}
	return title + "\n" + strings.Join(lines, "\n")
}

const ctaBase = "https://start.doma.xyz/"

// CTALink builds the call-to-action deep link for a domain.
func CTALink(domain string) string {
	return fmt.Sprintf("%s?domain=%s", ctaBase, url.QueryEscape(domain))
}
