package doma

import (
	"context"
	"testing"

	"domabot/pkg/logx"
)

func TestSimulatePageShape(t *testing.T) {
	t.Parallel()
	c := newSimClient(Config{PageLimit: 20, EventTypes: []string{"NAME_TOKEN_LISTED"}}, logx.Nop())

	events := c.FetchPage(context.Background())
	if len(events) == 0 || len(events) > 3 {
		t.Fatalf("page size = %d, want 1..3", len(events))
	}
	for _, ev := range events {
		if ev.UniqueID == "" {
			t.Fatal("empty uniqueId")
		}
		if ev.Type != "NAME_TOKEN_LISTED" {
			t.Fatalf("type = %q", ev.Type)
		}
		if ev.Name == "" {
			t.Fatal("empty name")
		}
		if _, ok := ev.NumericID(); !ok {
			t.Fatalf("non-numeric id: %q", ev.ID)
		}
	}
}

func TestSimulateLimitCapsPage(t *testing.T) {
	t.Parallel()
	c := newSimClient(Config{PageLimit: 2}, logx.Nop())
	if got := len(c.FetchPage(context.Background())); got != 2 {
		t.Fatalf("page size = %d, want 2", got)
	}
}

func TestSimulateIDsIncrease(t *testing.T) {
	t.Parallel()
	c := newSimClient(Config{PageLimit: 3}, logx.Nop())

	var last int64
	for i := 0; i < 3; i++ {
		for _, ev := range c.FetchPage(context.Background()) {
			id, ok := ev.NumericID()
			if !ok {
				t.Fatalf("non-numeric id: %q", ev.ID)
			}
			if id <= last {
				t.Fatalf("id %d not greater than previous %d", id, last)
			}
			last = id
		}
	}
}

func TestSimulateUniqueIDsDiffer(t *testing.T) {
	t.Parallel()
	c := newSimClient(Config{PageLimit: 3}, logx.Nop())
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		for _, ev := range c.FetchPage(context.Background()) {
			if seen[ev.UniqueID] {
				t.Fatalf("duplicate uniqueId %q", ev.UniqueID)
			}
			seen[ev.UniqueID] = true
		}
	}
}

func TestSimulateAcknowledge(t *testing.T) {
	t.Parallel()
	c := newSimClient(Config{}, logx.Nop())
	if !c.Acknowledge(context.Background(), 10) {
		t.Fatal("simulated ack should always succeed")
	}
}
