package poller

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is owned by one Poller instance; totals reset only when the
// process restarts. Written by the poll loop, read by status handlers
// and the digest.
type Metrics struct {
	processedTotal atomic.Uint64
	sentTotal      atomic.Uint64
	dedupedTotal   atomic.Uint64
	errorTotal     atomic.Uint64

	mu            sync.Mutex
	lastProcessed int
	lastSent      int
	lastLatency   time.Duration
	lastAckID     int64
}

// Snapshot is a point-in-time copy of the counters, safe to serialize.
type Snapshot struct {
	ProcessedTotal     uint64        `json:"processed_total"`
	SentTotal          uint64        `json:"sent_total"`
	DedupedTotal       uint64        `json:"deduped_total"`
	ErrorTotal         uint64        `json:"error_total"`
	LastCycleProcessed int           `json:"last_cycle_processed"`
	LastCycleSent      int           `json:"last_cycle_sent"`
	LastCycleLatency   time.Duration `json:"last_cycle_latency"`
	LastAckID          int64         `json:"last_ack_id"`
}

func (m *Metrics) setLastCycle(processed, sent int, latency time.Duration, lastAckID int64) {
	m.mu.Lock()
	m.lastProcessed = processed
	m.lastSent = sent
	m.lastLatency = latency
	m.lastAckID = lastAckID
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	s := Snapshot{
		LastCycleProcessed: m.lastProcessed,
		LastCycleSent:      m.lastSent,
		LastCycleLatency:   m.lastLatency,
		LastAckID:          m.lastAckID,
	}
	m.mu.Unlock()
	s.ProcessedTotal = m.processedTotal.Load()
	s.SentTotal = m.sentTotal.Load()
	s.DedupedTotal = m.dedupedTotal.Load()
	s.ErrorTotal = m.errorTotal.Load()
	return s
}
