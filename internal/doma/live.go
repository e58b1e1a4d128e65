package doma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"domabot/pkg/logx"
)

// liveClient issues real HTTP calls against the poll API.
// It owns one reusable http.Client for connection pooling.
type liveClient struct {
	cfg   Config
	log   logx.Logger
	http  *http.Client
	retry RetryPolicy
}

func newLiveClient(cfg Config, log logx.Logger) *liveClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &liveClient{
		cfg:   cfg,
		log:   log.With(logx.String("comp", "doma.live")),
		http:  &http.Client{Timeout: timeout},
		retry: DefaultRetry,
	}
}

func (c *liveClient) Close() {
	c.http.CloseIdleConnections()
}

type pollResponse struct {
	Events []Event `json:"events"`
}

func (c *liveClient) FetchPage(ctx context.Context) []Event {
	var page []Event
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		events, err := c.poll(ctx)
		if err != nil {
			return err
		}
		page = events
		return nil
	})
	if err != nil {
		c.log.Warn("poll failed after retries", logx.Err(err))
		return nil
	}
	return page
}

func (c *liveClient) poll(ctx context.Context) ([]Event, error) {
	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + "/poll")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.cfg.limit()))
	for _, t := range c.cfg.EventTypes {
		if t = strings.TrimSpace(t); t != "" {
			q.Add("eventTypes", t)
		}
	}
	q.Set("finalizedOnly", strconv.FormatBool(c.cfg.FinalizedOnly))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("poll: http %d", resp.StatusCode)
	}

	// A malformed or missing events field is an empty page, not an error.
	var out pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Debug("poll response not decodable, treating as empty", logx.Err(err))
		return nil, nil
	}
	return out.Events, nil
}

func (c *liveClient) Acknowledge(ctx context.Context, lastID int64) bool {
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.ack(ctx, lastID)
	})
	if err != nil {
		c.log.Warn("ack failed after retries", logx.Int64("last_id", lastID), logx.Err(err))
		return false
	}
	return true
}

func (c *liveClient) ack(ctx context.Context, lastID int64) error {
	u := fmt.Sprintf("%s/poll/ack/%d", strings.TrimRight(c.cfg.BaseURL, "/"), lastID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ack: http %d", resp.StatusCode)
	}
	return nil
}

func (c *liveClient) setAuth(req *http.Request) {
	key := strings.TrimSpace(c.cfg.APIKey)
	if key == "" {
		return
	}
	header := strings.TrimSpace(c.cfg.APIHeader)
	switch {
	case strings.EqualFold(header, "Authorization"):
		req.Header.Set("Authorization", "Bearer "+key)
	case header != "":
		req.Header.Set(header, key)
	default:
		req.Header.Set("Api-Key", key)
	}
}
