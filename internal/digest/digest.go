// Package digest sends owners a scheduled one-message summary of what
// the pipeline did since the process started.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"domabot/internal/poller"
	"domabot/pkg/logx"
)

type Sink interface {
	Send(ctx context.Context, userID int64, text string) error
}

type PollerInfo interface {
	State() poller.State
	Metrics() poller.Snapshot
}

type LedgerInfo interface {
	LedgerSize(ctx context.Context) (int64, error)
}

type Digest struct {
	cron   *cron.Cron
	sink   Sink
	p      PollerInfo
	store  LedgerInfo
	owners []int64
	log    logx.Logger
}

// New schedules the digest. An invalid cron spec fails here, not at
// fire time. Owners may be empty; the digest then only logs.
func New(schedule string, owners []int64, p PollerInfo, store LedgerInfo, sink Sink, log logx.Logger) (*Digest, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Digest{
		cron:   cron.New(),
		sink:   sink,
		p:      p,
		store:  store,
		owners: append([]int64(nil), owners...),
		log:    log.With(logx.String("comp", "digest")),
	}
	if _, err := d.cron.AddFunc(schedule, d.run); err != nil {
		return nil, fmt.Errorf("digest schedule %q: %w", schedule, err)
	}
	return d, nil
}

func (d *Digest) Start() { d.cron.Start() }

// Stop halts the scheduler and waits for a running digest to finish.
func (d *Digest) Stop(ctx context.Context) error {
	stopped := d.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Digest) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ledger := int64(-1)
	if n, err := d.store.LedgerSize(ctx); err == nil {
		ledger = n
	} else {
		d.log.Warn("digest: ledger size failed", logx.Err(err))
	}

	text := formatDigest(time.Now(), d.p.State().String(), d.p.Metrics(), ledger)
	if len(d.owners) == 0 {
		d.log.Info("digest (no owners configured)", logx.String("text", strings.ReplaceAll(text, "\n", " | ")))
		return
	}
	for _, owner := range d.owners {
		if err := d.sink.Send(ctx, owner, text); err != nil {
			d.log.Warn("digest send failed", logx.Int64("owner", owner), logx.Err(err))
		}
	}
}

func formatDigest(now time.Time, state string, m poller.Snapshot, ledgerSize int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily digest (%s)\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Poller: %s\n", state)
	fmt.Fprintf(&b, "Processed: %d, sent: %d, deduped: %d, errors: %d\n",
		m.ProcessedTotal, m.SentTotal, m.DedupedTotal, m.ErrorTotal)
	fmt.Fprintf(&b, "Ack cursor: %d", m.LastAckID)
	if ledgerSize >= 0 {
		fmt.Fprintf(&b, "\nLedger: %d delivered", ledgerSize)
	}
	return b.String()
}
