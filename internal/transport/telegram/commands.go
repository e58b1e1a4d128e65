package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"domabot/internal/alerts"
	"domabot/internal/poller"
	"domabot/internal/scoring"
	"domabot/internal/storage"
	"domabot/pkg/logx"
)

// CommandDeps is what the command handlers reach into.
type CommandDeps struct {
	Store  storage.Store
	Poller *poller.Poller
}

const handlerTimeout = 5 * time.Second

const helpText = `Domain event alerts.

/sub_add <filter> - subscribe; you get alerts whose event type appears in your filter text
/sub_list - show your subscriptions
/sub_del <id> - remove a subscription by id
/alert_test [name] - render a sample alert
/status - pipeline status (owners)`

// RegisterCommands wires the subscription and operational commands
// onto the bot. Call before Start.
func (a *Adapter) RegisterCommands(deps CommandDeps) {
	a.bot.Handle("/start", func(c tele.Context) error {
		return c.Send(helpText)
	})
	a.bot.Handle("/help", func(c tele.Context) error {
		return c.Send(helpText)
	})

	a.bot.Handle("/sub_add", func(c tele.Context) error {
		filter := strings.TrimSpace(c.Message().Payload)
		if filter == "" {
			return c.Send("Usage: /sub_add <filter text>")
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		id, err := deps.Store.AddSubscription(ctx, c.Sender().ID, filter)
		if err != nil {
			a.log.Error("sub_add failed", logx.Int64("user_id", c.Sender().ID), logx.Err(err))
			return c.Send("Could not save the subscription, try again later.")
		}
		a.log.Info("subscription added", logx.Int64("user_id", c.Sender().ID), logx.Int64("sub_id", id))
		return c.Send(fmt.Sprintf("Subscription #%d added.", id))
	})

	a.bot.Handle("/sub_list", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		subs, err := deps.Store.ListSubscriptions(ctx, c.Sender().ID)
		if err != nil {
			a.log.Error("sub_list failed", logx.Int64("user_id", c.Sender().ID), logx.Err(err))
			return c.Send("Could not load your subscriptions, try again later.")
		}
		return c.Send(formatSubList(subs))
	})

	a.bot.Handle("/sub_del", func(c tele.Context) error {
		id, err := strconv.ParseInt(strings.TrimSpace(c.Message().Payload), 10, 64)
		if err != nil || id <= 0 {
			return c.Send("Usage: /sub_del <id>")
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		ok, err := deps.Store.DeleteSubscription(ctx, c.Sender().ID, id)
		if err != nil {
			a.log.Error("sub_del failed", logx.Int64("user_id", c.Sender().ID), logx.Err(err))
			return c.Send("Could not delete the subscription, try again later.")
		}
		if !ok {
			return c.Send(fmt.Sprintf("Subscription #%d not found.", id))
		}
		return c.Send(fmt.Sprintf("Subscription #%d deleted.", id))
	})

	a.bot.Handle("/alert_test", func(c tele.Context) error {
		name := strings.TrimSpace(c.Message().Payload)
		if name == "" {
			name = "demo1.tld"
		}
		return c.Send(sampleAlert(name))
	})

	a.bot.Handle("/status", func(c tele.Context) error {
		if len(a.cfg.Owners) > 0 && !a.isOwner(c.Sender().ID) {
			return c.Send("Owners only.")
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		ledger, err := deps.Store.LedgerSize(ctx)
		if err != nil {
			a.log.Error("status: ledger size failed", logx.Err(err))
			ledger = -1
		}
		subs, err := deps.Store.ListAllSubscriptions(ctx)
		if err != nil {
			a.log.Error("status: list subscriptions failed", logx.Err(err))
		}
		return c.Send(formatStatus(deps.Poller.State().String(), deps.Poller.Metrics(), ledger, len(subs)))
	})
}

// sampleAlert renders an alert for a made-up event so users can see
// the exact shape of what a real delivery looks like.
func sampleAlert(name string) string {
	return alerts.FormatAlert(
		fmt.Sprintf("TEST — %s", name),
		[]string{
			fmt.Sprintf("Score: %d", scoring.HeuristicScore(name)),
			"Event ID: test",
			fmt.Sprintf("CTA: %s", alerts.CTALink(name)),
		},
	)
}

func formatSubList(subs []storage.Subscription) string {
	if len(subs) == 0 {
		return "No subscriptions yet. Add one with /sub_add <filter text>."
	}
	var b strings.Builder
	b.WriteString("Your subscriptions:\n")
	for _, s := range subs {
		fmt.Fprintf(&b, "#%d: %s\n", s.ID, s.FilterText)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatus(state string, m poller.Snapshot, ledgerSize int64, subCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Poller: %s\n", state)
	fmt.Fprintf(&b, "Processed: %d, sent: %d, deduped: %d, errors: %d\n",
		m.ProcessedTotal, m.SentTotal, m.DedupedTotal, m.ErrorTotal)
	fmt.Fprintf(&b, "Last cycle: %d fetched, %d sent, %s\n",
		m.LastCycleProcessed, m.LastCycleSent, m.LastCycleLatency.Round(time.Millisecond))
	fmt.Fprintf(&b, "Ack cursor: %d\n", m.LastAckID)
	if ledgerSize >= 0 {
		fmt.Fprintf(&b, "Ledger: %d delivered\n", ledgerSize)
	}
	fmt.Fprintf(&b, "Subscriptions: %d", subCount)
	return b.String()
}
