package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"domabot/internal/poller"
	"domabot/internal/storage"
	"domabot/pkg/logx"
)

type fakePoller struct {
	state poller.State
	snap  poller.Snapshot
}

func (f *fakePoller) State() poller.State { return f.state }

func (f *fakePoller) Metrics() poller.Snapshot { return f.snap }

type fakeStore struct {
	ledger    int64
	ledgerErr error
	subs      []storage.Subscription
}

func (f *fakeStore) LedgerSize(context.Context) (int64, error) {
	return f.ledger, f.ledgerErr
}

func (f *fakeStore) ListAllSubscriptions(context.Context) ([]storage.Subscription, error) {
	return f.subs, nil
}

func newTestHandler(p PollerInfo, s StoreInfo) *httptest.Server {
	return httptest.NewServer(newRouter(p, s, logx.Nop()))
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv := newTestHandler(&fakePoller{}, &fakeStore{})
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}
}

func TestStatusJSON(t *testing.T) {
	t.Parallel()
	p := &fakePoller{
		state: poller.StateRunning,
		snap: poller.Snapshot{
			ProcessedTotal:   7,
			SentTotal:        5,
			DedupedTotal:     2,
			LastAckID:        42,
			LastCycleLatency: 50 * time.Millisecond,
		},
	}
	s := &fakeStore{ledger: 7, subs: []storage.Subscription{{ID: 1}, {ID: 2}}}
	srv := newTestHandler(p, s)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body statusBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.State != "running" {
		t.Fatalf("state = %q", body.State)
	}
	if body.Metrics.ProcessedTotal != 7 || body.Metrics.LastAckID != 42 {
		t.Fatalf("metrics = %+v", body.Metrics)
	}
	if body.Ledger != 7 || body.Subs != 2 {
		t.Fatalf("ledger = %d subs = %d", body.Ledger, body.Subs)
	}
}

func TestStatusDegradesOnStoreError(t *testing.T) {
	t.Parallel()
	s := &fakeStore{ledgerErr: errors.New("db locked")}
	srv := newTestHandler(&fakePoller{}, s)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, must stay 200 on store error", resp.StatusCode)
	}
	var body statusBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Ledger != -1 {
		t.Fatalf("ledger = %d, want -1 sentinel", body.Ledger)
	}
}

func TestMetricsExposition(t *testing.T) {
	t.Parallel()
	p := &fakePoller{state: poller.StateRunning, snap: poller.Snapshot{SentTotal: 3, ErrorTotal: 1}}
	srv := newTestHandler(p, &fakeStore{})
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		"domabot_events_sent_total 3",
		"domabot_cycle_errors_total 1",
		"domabot_poller_running 1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}
