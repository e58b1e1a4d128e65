package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Doma     DomaConfig     `json:"doma"`
	Poller   PollerConfig   `json:"poller"`
	Storage  StorageConfig  `json:"storage"`
	Status   StatusConfig   `json:"status,omitempty"`
	Digest   DigestConfig   `json:"digest,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// OwnerChatIDs receive operational messages (daily digest).
	OwnerChatIDs []int64 `json:"owner_chat_ids,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// SendRatePerSec caps outgoing messages per second. 0 means default.
	SendRatePerSec int `json:"send_rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// DomaConfig configures the upstream event feed client.
//
// When Simulate is true no network calls are made; the client
// synthesizes a small batch of events per page instead.
type DomaConfig struct {
	BaseURL string `json:"base_url"`
	// APIKey is attached to every live request. Empty means no auth header.
	APIKey string `json:"api_key,omitempty"`
	// APIHeader is the header name carrying APIKey. Default "Api-Key".
	// Set to "Authorization" to send "Bearer <key>" instead.
	APIHeader     string   `json:"api_header,omitempty"`
	Simulate      bool     `json:"simulate"`
	EventTypes    []string `json:"event_types"`
	FinalizedOnly bool     `json:"finalized_only"`
	// PageLimit bounds events per poll. 0 means default (20).
	PageLimit int `json:"page_limit,omitempty"`
}

type PollerConfig struct {
	// IntervalSeconds between cycles; values below 3 are raised to 3.
	IntervalSeconds int `json:"interval_seconds"`
	// DryRun runs the full cycle but logs instead of dispatching.
	DryRun bool `json:"dry_run"`
}

type StorageConfig struct {
	// Driver: "sqlite" (default).
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// StatusConfig controls the read-only status HTTP server.
// Prefer binding to localhost.
type StatusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8090"
}

// DigestConfig controls the scheduled owner digest.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron spec. Default "0 9 * * *".
	Schedule string `json:"schedule,omitempty"`
}
