package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"axiomind/internal/game"
	"axiomind/internal/session"
	"axiomind/internal/testutil"
)

func TestNewWiresHandlerAndHistory(t *testing.T) {
	cfg := testutil.ServerConfig(t)
	srv, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}

	seed := uint64(8)
	info, err := srv.Sessions.Create(session.Config{Seed: &seed, OpponentType: "human"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := srv.Sessions.ProcessAction(info.ID, session.ActionRequest{Action: game.Fold()}); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if err := srv.History.Close(); err != nil {
		t.Fatalf("close history: %v", err)
	}

	again, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.History.Close()
	if again.History.Len() != 1 {
		t.Fatalf("persisted history not reloaded: %d", again.History.Len())
	}
	if got := again.Settings.Get().SessionTTLSeconds; got != 60 {
		t.Fatalf("settings ttl %d", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, err := New(testutil.ServerConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
