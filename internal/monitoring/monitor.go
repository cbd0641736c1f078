package monitoring

import (
	"sync"
	"time"
)

// Monitor keeps a small summary of one peer's synchronization activity for
// the stats endpoint.
type Monitor struct {
	mu        sync.RWMutex
	peerID    string
	startTime time.Time

	localSeq     uint64
	lastPublish  time.Time
	remoteSeqs   map[string]uint64
	lastReceive  time.Time
	bootstrapped time.Time
}

// NewMonitor creates a new monitoring instance
func NewMonitor(peerID string) *Monitor {
	return &Monitor{
		peerID:     peerID,
		startTime:  time.Now(),
		remoteSeqs: make(map[string]uint64),
	}
}

// RecordPublish notes the sequence number of the latest local commit.
func (m *Monitor) RecordPublish(seq uint64, at time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localSeq = seq
	m.lastPublish = at
}

// RecordReceive notes the latest delta merged from peer.
func (m *Monitor) RecordReceive(peer string, seq uint64, at time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remoteSeqs[peer] = seq
	m.lastReceive = at
}

// RecordBootstrap notes when the initial snapshot was loaded.
func (m *Monitor) RecordBootstrap(at time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootstrapped = at
}

// GetMetrics returns the current summary
func (m *Monitor) GetMetrics() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Copy to avoid handing out the live map
	remotes := make(map[string]uint64, len(m.remoteSeqs))
	for k, v := range m.remoteSeqs {
		remotes[k] = v
	}

	metrics := map[string]interface{}{
		"peer":           m.peerID,
		"local_seq":      m.localSeq,
		"remote_seqs":    remotes,
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
	if !m.lastPublish.IsZero() {
		metrics["last_publish"] = m.lastPublish.Format(time.RFC3339Nano)
	}
	if !m.lastReceive.IsZero() {
		metrics["last_receive"] = m.lastReceive.Format(time.RFC3339Nano)
	}
	if !m.bootstrapped.IsZero() {
		metrics["bootstrapped_at"] = m.bootstrapped.Format(time.RFC3339Nano)
	}
	return metrics
}
