// Package status serves the read-only operational surface: a health
// probe, a JSON snapshot of the pipeline, and Prometheus metrics.
// Bind it to localhost; it carries no auth.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"domabot/internal/poller"
	"domabot/internal/storage"
	"domabot/pkg/logx"
)

// PollerInfo is the read side of the poller.
type PollerInfo interface {
	State() poller.State
	Metrics() poller.Snapshot
}

// StoreInfo is the read side of the store.
type StoreInfo interface {
	LedgerSize(ctx context.Context) (int64, error)
	ListAllSubscriptions(ctx context.Context) ([]storage.Subscription, error)
}

type Server struct {
	srv *http.Server
	log logx.Logger
}

func New(addr string, p PollerInfo, store StoreInfo, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newRouter(p, store, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.With(logx.String("comp", "status")),
	}
}

func (s *Server) Start() {
	go func() {
		s.log.Info("status server listening", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server failed", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type statusBody struct {
	State   string          `json:"state"`
	Metrics poller.Snapshot `json:"metrics"`
	Ledger  int64           `json:"ledger_size"`
	Subs    int             `json:"subscription_count"`
}

func newRouter(p PollerInfo, store StoreInfo, log logx.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()

		body := statusBody{
			State:   p.State().String(),
			Metrics: p.Metrics(),
			Ledger:  -1,
		}
		if n, err := store.LedgerSize(ctx); err == nil {
			body.Ledger = n
		} else {
			log.Warn("status: ledger size failed", logx.Err(err))
		}
		if subs, err := store.ListAllSubscriptions(ctx); err == nil {
			body.Subs = len(subs)
		} else {
			log.Warn("status: list subscriptions failed", logx.Err(err))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	r.Handle("/metrics", promhttp.HandlerFor(newRegistry(p), promhttp.HandlerOpts{}))
	return r
}

func newRegistry(p PollerInfo) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	counter := func(name, help string, read func(poller.Snapshot) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, func() float64 {
			return float64(read(p.Metrics()))
		})
	}
	reg.MustRegister(
		counter("domabot_events_processed_total", "New events fully processed.", func(s poller.Snapshot) uint64 { return s.ProcessedTotal }),
		counter("domabot_events_sent_total", "Events dispatched (or dry-run suppressed).", func(s poller.Snapshot) uint64 { return s.SentTotal }),
		counter("domabot_events_deduped_total", "Events skipped by the delivery ledger.", func(s poller.Snapshot) uint64 { return s.DedupedTotal }),
		counter("domabot_cycle_errors_total", "Poll cycles that failed or panicked.", func(s poller.Snapshot) uint64 { return s.ErrorTotal }),
	)
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "domabot_last_ack_id",
			Help: "Highest acknowledged event id this process.",
		}, func() float64 { return float64(p.Metrics().LastAckID) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "domabot_last_cycle_latency_seconds",
			Help: "Duration of the most recent poll cycle.",
		}, func() float64 { return p.Metrics().LastCycleLatency.Seconds() }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "domabot_poller_running",
			Help: "1 when the poll loop is running.",
		}, func() float64 {
			if p.State() == poller.StateRunning {
				return 1
			}
			return 0
		}),
	)
	return reg
}
