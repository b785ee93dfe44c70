// Package testutil holds fixtures shared by tests across packages.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"axiomind/internal/ai"
	"axiomind/internal/config"
	"axiomind/internal/pipeline"
)

// ServerConfig is a server configuration with short intervals, an ephemeral
// listen address and a history file under t.TempDir().
func ServerConfig(t *testing.T) config.ServerConfig {
	t.Helper()
	return config.ServerConfig{
		HTTPAddr:             "127.0.0.1:0",
		SessionTTL:           time.Minute,
		SessionSweepInterval: time.Minute,
		EventQueueCapacity:   16,
		HistoryPath:          filepath.Join(t.TempDir(), "history.jsonl"),
		HistoryMaxRecords:    1000,
		SSEPingInterval:      time.Second,
		ShutdownTimeout:      time.Second,
	}
}

// SimMatch writes a seeded baseline-vs-baseline match of up to hands hands
// and returns its path and the number of hands written.
func SimMatch(t *testing.T, hands int, seed uint64) (string, int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "match.jsonl")
	res, err := pipeline.Simulate(context.Background(), pipeline.SimOptions{
		Hands:    hands,
		Seed:     &seed,
		Level:    1,
		Output:   path,
		Policies: [2]ai.Policy{ai.Baseline{}, ai.Baseline{}},
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	return path, res.Written
}
