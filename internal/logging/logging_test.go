package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"

	"axiomind/internal/config"
)

type countingWriter struct{ n int }

func (d *countingWriter) Write(p []byte) (int, error) {
	d.n += len(p)
	return len(p), nil
}

func TestInitWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")
	var sink countingWriter
	closeLog, err := Init(config.LogConfig{Level: "info", File: path, MaxMB: 1}, &sink)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	log.Info().Str("component", "test").Msg("hello")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(raw) == 0 || sink.n == 0 {
		t.Fatalf("expected log line in both sinks")
	}
}
