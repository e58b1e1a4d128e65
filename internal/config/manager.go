package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"domabot/pkg/logx"
)

// Manager loads the config file and optionally watches it for changes.
//
// Watching is best-effort: a broken edit is logged and skipped, the
// last good config stays active.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	log logx.Logger

	// lastHash tracks the last successfully committed config content, to
	// skip redundant publishes when editors emit multiple write events.
	lastHash uint64
}

func NewManager(path string, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{path: path, log: log}
}

// Load reads, decodes, defaults and env-overlays the config, and makes
// it current.
func (m *Manager) Load() (*Config, error) {
	cfg, h, err := m.parse()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = h
	m.mu.Unlock()
	return cfg, nil
}

// Current returns the last committed config (nil before Load).
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) parse() (*Config, uint64, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, 0, err
	}
	jb, format, err := coerceToJSONBytes(m.path, b)
	if err != nil {
		return nil, 0, fmt.Errorf("config %s (%s): %w", m.path, format, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, 0, fmt.Errorf("config %s (%s): %w", m.path, format, err)
	}

	applyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, 0, err
	}
	if err := validate(&cfg); err != nil {
		return nil, 0, err
	}

	h := fnv.New64a()
	_, _ = h.Write(b)
	return &cfg, h.Sum64(), nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Doma.APIHeader) == "" {
		cfg.Doma.APIHeader = "Api-Key"
	}
	if len(cfg.Doma.EventTypes) == 0 {
		cfg.Doma.EventTypes = []string{"NAME_TOKEN_LISTED"}
	}
	if cfg.Doma.PageLimit <= 0 {
		cfg.Doma.PageLimit = 20
	}
	if cfg.Poller.IntervalSeconds < 3 {
		cfg.Poller.IntervalSeconds = 3
	}
	if strings.TrimSpace(cfg.Storage.Driver) == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		cfg.Storage.Path = "./domabot.db"
	}
	if strings.TrimSpace(cfg.Status.Addr) == "" {
		cfg.Status.Addr = "127.0.0.1:8090"
	}
	if strings.TrimSpace(cfg.Digest.Schedule) == "" {
		cfg.Digest.Schedule = "0 9 * * *"
	}
}

func validate(cfg *Config) error {
	if !cfg.Doma.Simulate && strings.TrimSpace(cfg.Doma.BaseURL) == "" {
		return fmt.Errorf("doma.base_url is required unless doma.simulate is set")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required (config or TELEGRAM_BOT_TOKEN)")
	}
	return nil
}

// Watch re-reads the file on fsnotify events and calls onChange with
// each newly committed config. It blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors replace files, which drops the watch
	// on the file itself.
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		return err
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	reload := func() {
		cfg, h, err := m.parse()
		if err != nil {
			m.log.Warn("config reload skipped", logx.Err(err))
			return
		}
		m.mu.Lock()
		same := h == m.lastHash
		if !same {
			m.cfg = cfg
			m.lastHash = h
		}
		m.mu.Unlock()
		if same {
			return
		}
		m.log.Info("config reloaded", logx.String("path", m.path))
		if onChange != nil {
			onChange(cfg)
		}
	}

	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			reload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watch error", logx.Err(err))
		}
	}
}
