package doma

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"domabot/pkg/logx"
)

var simLabels = []string{"ace", "zz", "4242", "aurora", "n0de", "qq1", "meadow", "x9"}
var simTLDs = []string{"tld", "io", "xyz"}

// simClient synthesizes events locally so the pipeline can run offline.
// Unique ids are random; numeric ids count up from 1 per client.
type simClient struct {
	cfg Config
	log logx.Logger

	mu     sync.Mutex
	nextID int64
	rng    *rand.Rand
}

func newSimClient(cfg Config, log logx.Logger) *simClient {
	return &simClient{
		cfg:    cfg,
		log:    log.With(logx.String("comp", "doma.sim")),
		nextID: 1,
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

func (c *simClient) FetchPage(_ context.Context) []Event {
	n := c.cfg.limit()
	if n > 3 {
		n = 3
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		label := simLabels[c.rng.Intn(len(simLabels))]
		tld := simTLDs[c.rng.Intn(len(simTLDs))]
		ev := Event{
			ID:       json.Number(strconv.FormatInt(c.nextID, 10)),
			UniqueID: uuid.NewString(),
			Type:     c.eventType(i),
			Name:     fmt.Sprintf("%s%d.%s", label, c.rng.Intn(100), tld),
			EventData: map[string]any{
				"simulated": true,
			},
		}
		c.nextID++
		out = append(out, ev)
	}
	c.log.Debug("synthesized page", logx.Int("events", len(out)))
	return out
}

func (c *simClient) eventType(i int) string {
	if len(c.cfg.EventTypes) == 0 {
		return "NAME_TOKEN_LISTED"
	}
	return c.cfg.EventTypes[i%len(c.cfg.EventTypes)]
}

func (c *simClient) Acknowledge(_ context.Context, lastID int64) bool {
	c.log.Debug("simulated ack", logx.Int64("last_id", lastID))
	return true
}

func (c *simClient) Close() {}
