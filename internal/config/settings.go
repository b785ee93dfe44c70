package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
)

// Settings are the server defaults an operator may change at runtime.
type Settings struct {
	DefaultLevel      int    `json:"default_level" yaml:"default_level"`
	DefaultOpponent   string `json:"default_opponent" yaml:"default_opponent"`
	SessionTTLSeconds int64  `json:"session_ttl_seconds" yaml:"session_ttl_seconds"`
}

func DefaultSettings(server ServerConfig) Settings {
	return Settings{
		DefaultLevel:      game.MinLevel,
		DefaultOpponent:   "ai:baseline",
		SessionTTLSeconds: int64(server.SessionTTL / time.Second),
	}
}

func (s Settings) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLSeconds) * time.Second
}

func (s Settings) Validate() error {
	if s.DefaultLevel < game.MinLevel || s.DefaultLevel > game.MaxLevel {
		return apperr.New(apperr.ErrInvalidInput, "invalid_settings",
			fmt.Sprintf("default_level must be within %d..%d", game.MinLevel, game.MaxLevel))
	}
	if s.DefaultOpponent != "human" && !strings.HasPrefix(s.DefaultOpponent, "ai:") {
		return apperr.New(apperr.ErrInvalidInput, "invalid_settings", `default_opponent must be "human" or "ai:<name>"`)
	}
	if s.SessionTTLSeconds <= 0 {
		return apperr.New(apperr.ErrInvalidInput, "invalid_settings", "session_ttl_seconds must be positive")
	}
	return nil
}

// SettingsStore guards the live Settings. Updates are validated before they
// replace the current value.
type SettingsStore struct {
	mu      sync.RWMutex
	current Settings
}

func NewSettingsStore(initial Settings) *SettingsStore {
	return &SettingsStore{current: initial}
}

func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SettingsStore) Update(next Settings) (Settings, error) {
	if err := next.Validate(); err != nil {
		return s.Get(), err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
