// Package poller runs the event ingestion and delivery pipeline: fetch
// a page from the feed, drop already-delivered events, score and format
// the rest, fan out to matching subscribers, record delivery, advance
// the acknowledgment cursor.
package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"domabot/internal/alerts"
	"domabot/internal/doma"
	"domabot/internal/scoring"
	"domabot/internal/storage"
	"domabot/pkg/logx"
)

// Sink delivers one rendered alert to one user. Failures are the
// caller's to log; they never abort a cycle.
type Sink interface {
	Send(ctx context.Context, userID int64, text string) error
}

// Matcher decides whether a subscription filter matches an event.
type Matcher func(ev doma.Event, filterText string) bool

// SubstringMatch is the default: the event type appearing anywhere in
// the user's free-text filter. A deliberate simplification standing in
// for a structured rule language; swap the Matcher to replace it.
func SubstringMatch(ev doma.Event, filterText string) bool {
	return strings.Contains(filterText, ev.Type)
}

type Config struct {
	// Interval between cycles; values below 3s are raised to 3s.
	Interval time.Duration
	// DryRun runs every cycle step except the dispatch itself.
	DryRun bool
}

type State int32

const (
	StateStopped State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Poller owns the loop goroutine and the feed client. At most one loop
// runs per Poller; Start after Stop re-enters the loop.
type Poller struct {
	client doma.Client
	store  storage.Store
	ledger *alerts.Service
	sink   Sink
	match  Matcher
	log    logx.Logger

	metrics Metrics

	mu      sync.Mutex
	cfg     Config
	state   State
	stop    chan struct{}
	done    chan struct{}
	lastAck int64
}

func New(cfg Config, client doma.Client, store storage.Store, sink Sink, log logx.Logger) *Poller {
	if cfg.Interval < 3*time.Second {
		cfg.Interval = 3 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Poller{
		cfg:    cfg,
		client: client,
		store:  store,
		ledger: alerts.New(store),
		sink:   sink,
		match:  SubstringMatch,
		log:    log.With(logx.String("comp", "poller")),
	}
}

// SetMatcher replaces the subscription matcher. Call before Start.
func (p *Poller) SetMatcher(m Matcher) {
	if m != nil {
		p.match = m
	}
}

// SetConfig applies new loop settings without a restart. The interval
// takes effect after the current sleep, dry-run on the next cycle.
func (p *Poller) SetConfig(cfg Config) {
	if cfg.Interval < 3*time.Second {
		cfg.Interval = 3 * time.Second
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
}

func (p *Poller) config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) Metrics() Snapshot { return p.metrics.Snapshot() }

// Start launches the loop. No-op when a loop is already live (running
// or still winding down).
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateStopped {
		return
	}
	p.state = StateRunning
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.runLoop(p.stop, p.done)

	p.log.Info("poller started",
		logx.Duration("interval", p.cfg.Interval),
		logx.Bool("dry_run", p.cfg.DryRun),
	)
}

// Stop raises the stop signal, waits for the in-flight cycle to finish,
// then releases the client's network resources. Cooperative: it never
// interrupts a fetch or dispatch mid-flight. If ctx expires first the
// loop keeps draining and a later Stop call can finish the wait.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateStopped:
		p.mu.Unlock()
		return nil
	case StateRunning:
		p.state = StateStopping
		close(p.stop)
	}
	done := p.done
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	p.client.Close()

	p.mu.Lock()
	p.state = StateStopped
	p.mu.Unlock()
	p.log.Info("poller stopped")
	return nil
}

func (p *Poller) runLoop(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}

		p.runCycle(context.Background())

		select {
		case <-stop:
			return
		case <-time.After(p.config().Interval):
		}
	}
}

// runCycle is the cycle boundary: any error or panic below is counted
// and logged here, and the loop schedules the next cycle normally.
func (p *Poller) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.errorTotal.Add(1)
			p.log.Error("cycle panicked", logx.Any("panic", r))
		}
	}()
	if err := p.cycle(ctx); err != nil {
		p.metrics.errorTotal.Add(1)
		p.log.Error("cycle failed", logx.Err(err))
	}
}

func (p *Poller) cycle(ctx context.Context) error {
	start := time.Now()

	events := p.client.FetchPage(ctx)

	var (
		sent       int
		maxID      int64
		sawNumeric bool
	)
	for _, ev := range events {
		if ev.UniqueID == "" || ev.Type == "" || ev.Name == "" {
			continue
		}
		// Candidate ack cursor: highest numeric id on the page, tracked
		// before the dedup check so an all-deduped page still acks.
		if id, ok := ev.NumericID(); ok {
			if id > maxID {
				maxID = id
			}
			sawNumeric = true
		}

		delivered, err := p.ledger.WasDelivered(ctx, ev.UniqueID)
		if err != nil {
			return fmt.Errorf("ledger check %s: %w", ev.UniqueID, err)
		}
		if delivered {
			p.metrics.dedupedTotal.Add(1)
			continue
		}

		if err := p.deliver(ctx, ev); err != nil {
			return err
		}
		sent++
		p.metrics.sentTotal.Add(1)
		p.metrics.processedTotal.Add(1)
	}

	if sawNumeric {
		if p.client.Acknowledge(ctx, maxID) {
			p.mu.Lock()
			p.lastAck = maxID
			p.mu.Unlock()
		} else {
			p.log.Warn("ack not confirmed, cursor unchanged", logx.Int64("max_id", maxID))
		}
	}

	p.mu.Lock()
	lastAck := p.lastAck
	p.mu.Unlock()
	p.metrics.setLastCycle(len(events), sent, time.Since(start), lastAck)

	if sent > 0 {
		p.log.Info("cycle done",
			logx.Int("fetched", len(events)),
			logx.Int("sent", sent),
			logx.Duration("took", time.Since(start)),
		)
	}
	return nil
}

// deliver runs score -> format -> match -> dispatch -> mark for one new
// event. The delivery record is written even when dispatch found no
// recipients or every send failed: delivery means attempted, not
// confirmed read.
func (p *Poller) deliver(ctx context.Context, ev doma.Event) error {
	score := scoring.HeuristicScore(ev.Name)
	text := alerts.FormatAlert(
		fmt.Sprintf("%s — %s", ev.Type, ev.Name),
		[]string{
			fmt.Sprintf("Score: %d", score),
			fmt.Sprintf("Event ID: %s", ev.UniqueID),
			fmt.Sprintf("CTA: %s", alerts.CTALink(ev.Name)),
		},
	)

	subs, err := p.store.ListAllSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	matched := make(map[int64]struct{})
	for _, sub := range subs {
		if p.match(ev, sub.FilterText) {
			matched[sub.UserID] = struct{}{}
		}
	}
	if len(matched) == 0 {
		p.log.Debug("no matching subscribers", logx.String("type", ev.Type))
	}

	if p.config().DryRun {
		users := make([]int64, 0, len(matched))
		for id := range matched {
			users = append(users, id)
		}
		p.log.Info("dry-run: suppressed dispatch",
			logx.Any("users", users),
			logx.String("text", strings.ReplaceAll(text, "\n", " | ")),
		)
	} else {
		for userID := range matched {
			if err := p.sink.Send(ctx, userID, text); err != nil {
				p.log.Warn("dispatch failed",
					logx.Int64("user_id", userID),
					logx.String("event_id", ev.UniqueID),
					logx.Err(err),
				)
			}
		}
	}

	if err := p.ledger.MarkDelivered(ctx, ev.UniqueID); err != nil {
		return fmt.Errorf("ledger mark %s: %w", ev.UniqueID, err)
	}
	return nil
}
