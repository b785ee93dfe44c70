package config

import (
	"errors"
	"testing"
	"time"

	"axiomind/internal/apperr"
)

func TestSettingsStoreUpdate(t *testing.T) {
	store := NewSettingsStore(DefaultSettings(ServerConfig{SessionTTL: 30 * time.Minute}))
	got := store.Get()
	if got.DefaultLevel != 1 || got.DefaultOpponent != "ai:baseline" || got.SessionTTL() != 30*time.Minute {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	next := got
	next.DefaultLevel = 5
	next.DefaultOpponent = "human"
	if _, err := store.Update(next); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if store.Get().DefaultLevel != 5 {
		t.Fatalf("update not applied: %+v", store.Get())
	}
}

func TestSettingsStoreRejectsInvalid(t *testing.T) {
	store := NewSettingsStore(DefaultSettings(ServerConfig{SessionTTL: time.Minute}))
	before := store.Get()

	cases := []Settings{
		{DefaultLevel: 0, DefaultOpponent: "human", SessionTTLSeconds: 60},
		{DefaultLevel: 21, DefaultOpponent: "human", SessionTTLSeconds: 60},
		{DefaultLevel: 1, DefaultOpponent: "robot", SessionTTLSeconds: 60},
		{DefaultLevel: 1, DefaultOpponent: "human", SessionTTLSeconds: 0},
	}
	for _, tc := range cases {
		_, err := store.Update(tc)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Fatalf("Update(%+v) error = %v, want invalid input", tc, err)
		}
	}
	if store.Get() != before {
		t.Fatalf("rejected update changed settings: %+v", store.Get())
	}
}
