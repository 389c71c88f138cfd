package adblock

import (
	"sync"
	"sync/atomic"
	"time"
)

// AdBlockStats holds statistics about blocking activity.
type AdBlockStats struct {
	LastUpdate   string   `json:"last_update"`
	Lists        []string `json:"lists"`
	FailedLists  []string `json:"failed_lists"`
	Version      uint64   `json:"version"`
	TotalRules   int      `json:"total_rules"`
	BlockedToday int64    `json:"blocked_today"`
	BlockedTotal int64    `json:"blocked_total"`
}

// Stats manages block counters.
type Stats struct {
	blockedTotal int64
	blockedToday int64
	lastReset    time.Time
	mu           sync.Mutex
}

// NewStats creates a new Stats manager.
func NewStats() *Stats {
	return &Stats{
		lastReset: time.Now(),
	}
}

// RecordBlock increments the block counters.
func (s *Stats) RecordBlock() {
	atomic.AddInt64(&s.blockedTotal, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Day() != s.lastReset.Day() || now.Month() != s.lastReset.Month() || now.Year() != s.lastReset.Year() {
		atomic.StoreInt64(&s.blockedToday, 0)
		s.lastReset = now
	}
	atomic.AddInt64(&s.blockedToday, 1)
}

// Reset clears the counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	atomic.StoreInt64(&s.blockedTotal, 0)
	atomic.StoreInt64(&s.blockedToday, 0)
	s.lastReset = time.Now()
}

// GetStats returns the current blocking statistics.
func (s *Stats) GetStats(snap *Snapshot, failedLists []string) AdBlockStats {
	return AdBlockStats{
		Version:      snap.Version,
		TotalRules:   snap.List.Len(),
		Lists:        snap.List.Names(),
		FailedLists:  failedLists,
		BlockedToday: atomic.LoadInt64(&s.blockedToday),
		BlockedTotal: atomic.LoadInt64(&s.blockedTotal),
		LastUpdate:   snap.CompiledAt.Format(time.RFC3339),
	}
}
