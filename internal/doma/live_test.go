package doma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"domabot/pkg/logx"
)

func newTestLive(t *testing.T, srv *httptest.Server, mut func(*Config)) *liveClient {
	t.Helper()
	cfg := Config{
		BaseURL:       srv.URL,
		EventTypes:    []string{"NAME_TOKEN_LISTED"},
		FinalizedOnly: true,
		PageLimit:     20,
	}
	if mut != nil {
		mut(&cfg)
	}
	c := newLiveClient(cfg, logx.Nop())
	c.retry = fastRetry(3)
	t.Cleanup(c.Close)
	return c
}

func TestFetchPageQueryAndDecode(t *testing.T) {
	t.Parallel()
	var gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/poll" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[{"id":7,"uniqueId":"u7","type":"NAME_TOKEN_LISTED","name":"ab12.tld","eventData":{"k":"v"}}]}`))
	}))
	defer srv.Close()

	c := newTestLive(t, srv, func(cfg *Config) { cfg.APIKey = "secret" })
	events := c.FetchPage(context.Background())
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.UniqueID != "u7" || ev.Type != "NAME_TOKEN_LISTED" || ev.Name != "ab12.tld" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if id, ok := ev.NumericID(); !ok || id != 7 {
		t.Fatalf("NumericID = %d, %v", id, ok)
	}

	q := gotQuery
	for _, want := range []string{"limit=20", "eventTypes=NAME_TOKEN_LISTED", "finalizedOnly=true"} {
		if !containsParam(q, want) {
			t.Fatalf("query %q missing %q", q, want)
		}
	}
	if gotHeader != "secret" {
		t.Fatalf("Api-Key header = %q", gotHeader)
	}
}

func containsParam(query, kv string) bool {
	for _, part := range strings.Split(query, "&") {
		if part == kv {
			return true
		}
	}
	return false
}

func TestFetchPageBearerAuth(t *testing.T) {
	t.Parallel()
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer srv.Close()

	c := newTestLive(t, srv, func(cfg *Config) {
		cfg.APIKey = "tok"
		cfg.APIHeader = "Authorization"
	})
	_ = c.FetchPage(context.Background())
	if got != "Bearer tok" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestFetchPageNoAuthWithoutKey(t *testing.T) {
	t.Parallel()
	var hadHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hadHeader = r.Header.Get("Api-Key") != "" || r.Header.Get("Authorization") != ""
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer srv.Close()

	c := newTestLive(t, srv, nil)
	_ = c.FetchPage(context.Background())
	if hadHeader {
		t.Fatal("auth header sent without a configured credential")
	}
}

func TestFetchPageRetriesThenEmpty(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestLive(t, srv, nil)
	events := c.FetchPage(context.Background())
	if events != nil {
		t.Fatalf("events = %v, want nil after exhausted retries", events)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("upstream called %d times, want 3", n)
	}
}

func TestFetchPageRecoversWithinRetries(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"events":[{"id":1,"uniqueId":"u1","type":"T","name":"n.tld"}]}`))
	}))
	defer srv.Close()

	c := newTestLive(t, srv, nil)
	events := c.FetchPage(context.Background())
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 after recovery", len(events))
	}
}

func TestFetchPageMalformedBodyIsEmpty(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	c := newTestLive(t, srv, nil)
	if events := c.FetchPage(context.Background()); len(events) != 0 {
		t.Fatalf("events = %d, want 0 for malformed body", len(events))
	}
}

func TestFetchPageMissingEventsFieldIsEmpty(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unrelated": 1}`))
	}))
	defer srv.Close()

	c := newTestLive(t, srv, nil)
	if events := c.FetchPage(context.Background()); len(events) != 0 {
		t.Fatalf("events = %d, want 0 for missing events field", len(events))
	}
}

func TestAcknowledge(t *testing.T) {
	t.Parallel()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestLive(t, srv, nil)
	if !c.Acknowledge(context.Background(), 42) {
		t.Fatal("Acknowledge returned false on 200")
	}
	if gotPath != "/poll/ack/42" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestAcknowledgeFailureIsFalse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestLive(t, srv, nil)
	if c.Acknowledge(context.Background(), 42) {
		t.Fatal("Acknowledge returned true on persistent failure")
	}
}
