package middleware

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agentstation/difyflow"
)

// TimingStats aggregates node visit durations.
type TimingStats struct {
	Count int64
	Total time.Duration
	Last  time.Duration
}

// Avg returns the mean visit duration.
func (s TimingStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Timing accumulates per-node visit durations across runs.
type Timing struct {
	Funcs
	mu    sync.Mutex
	stats map[string]TimingStats
}

// NewTiming creates an empty Timing observer.
func NewTiming() *Timing {
	t := &Timing{stats: make(map[string]TimingStats)}
	t.OnNodeFinished = t.record
	return t
}

func (t *Timing) record(_ context.Context, ev difyflow.NodeEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats[ev.NodeID]
	s.Count++
	s.Total += ev.Duration
	s.Last = ev.Duration
	t.stats[ev.NodeID] = s
}

// Stats returns the statistics of one node.
func (t *Timing) Stats(nodeID string) (TimingStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stats[nodeID]
	return s, ok
}

// Nodes returns the ids of every timed node, sorted.
func (t *Timing) Nodes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.stats))
	for id := range t.stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
