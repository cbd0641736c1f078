package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMonitor_GetMetrics(t *testing.T) {
	m := NewMonitor("front-1")
	now := time.Now()
	m.RecordPublish(7, now)
	m.RecordReceive("kitchen-1", 3, now)

	metrics := m.GetMetrics()

	if metrics["peer"] != "front-1" {
		t.Errorf("Expected peer 'front-1', got %v", metrics["peer"])
	}
	if metrics["local_seq"] != uint64(7) {
		t.Errorf("Expected local_seq 7, got %v", metrics["local_seq"])
	}

	remotes, ok := metrics["remote_seqs"].(map[string]uint64)
	if !ok || remotes["kitchen-1"] != 3 {
		t.Errorf("Expected remote seq 3 for kitchen-1, got %v", metrics["remote_seqs"])
	}

	// Check uptime presence
	if _, exists := metrics["uptime_seconds"]; !exists {
		t.Errorf("Expected 'uptime_seconds' to be present in metrics, but it was not")
	}
	if _, exists := metrics["bootstrapped_at"]; exists {
		t.Errorf("Expected no 'bootstrapped_at' before bootstrap")
	}
}

func TestMonitor_RemoteSeqsAreCopied(t *testing.T) {
	m := NewMonitor("front-1")
	m.RecordReceive("kitchen-1", 1, time.Now())

	remotes := m.GetMetrics()["remote_seqs"].(map[string]uint64)
	remotes["kitchen-1"] = 99

	again := m.GetMetrics()["remote_seqs"].(map[string]uint64)
	if again["kitchen-1"] != 1 {
		t.Errorf("Expected stored seq to stay 1, got %d", again["kitchen-1"])
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("front-1")

	m.RecordMutation("place_order", nil)
	m.RecordMutation("place_order", errors.New("empty"))
	m.RecordPublished([]string{"orders", "tables"})
	m.RecordTransition("pending", "preparing")
	m.RecordPublishError()

	got, err := testutil.GatherAndCount(m.Registry(), "tablesync_mutations_total")
	if err != nil || got != 2 {
		t.Errorf("Expected 2 mutation series, got %d (%v)", got, err)
	}
	got, err = testutil.GatherAndCount(m.Registry(), "tablesync_deltas_published_total")
	if err != nil || got != 2 {
		t.Errorf("Expected 2 published series, got %d (%v)", got, err)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordMutation("place_order", nil)
	m.RecordReceived([]string{"orders"}, 0.1)
	m.AddSubscribers(1)
	if m.Registry() == nil {
		t.Error("Expected a registry from a nil Metrics")
	}
}
