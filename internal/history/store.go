// Package history keeps the hands completed by live sessions.
package history

import (
	"errors"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"

	"axiomind/internal/apperr"
	"axiomind/internal/handlog"
)

// Entry is one stored hand.
type Entry struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"session_id"`
	RecordedAt time.Time          `json:"recorded_at"`
	Hand       handlog.HandRecord `json:"hand"`
}

// Store is an in-memory ring of recent hands, optionally mirrored to an
// append-only JSONL file.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
	clock   quartz.Clock
	file    *os.File
}

type Options struct {
	MaxRecords int
	// Path, when set, is loaded on open and appended to afterwards.
	Path  string
	Clock quartz.Clock
}

func Open(opts Options) (*Store, error) {
	s := &Store{max: opts.MaxRecords, clock: opts.Clock}
	if s.max <= 0 {
		s.max = 10000
	}
	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if opts.Path == "" {
		return s, nil
	}
	if err := s.load(opts.Path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIO, "history_open_failed", err)
	}
	s.file = f
	return s, nil
}

func (s *Store) load(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	skipped := 0
	err := handlog.Each(path, func(l handlog.Line) error {
		var e Entry
		if err := unmarshalEntry(l.Raw, &e); err != nil {
			skipped++
			return nil
		}
		s.push(e)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("loaded", len(s.entries)).Int("skipped", skipped).Msg("history_loaded")
	return nil
}

func (s *Store) push(e Entry) {
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.max; over > 0 {
		s.entries = slices.Delete(s.entries, 0, over)
	}
}

// Append stores rec for sessionID and returns the new entry.
func (s *Store) Append(sessionID string, rec handlog.HandRecord) (Entry, error) {
	now := s.clock.Now()
	e := Entry{ID: NewID(now), SessionID: sessionID, RecordedAt: now.UTC(), Hand: rec}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		line, err := marshalEntry(e)
		if err != nil {
			return e, apperr.Wrap(apperr.ErrInternal, "history_encode_failed", err)
		}
		if _, err := s.file.Write(append(line, '\n')); err != nil {
			return e, apperr.Wrap(apperr.ErrIO, "history_write_failed", err)
		}
	}
	s.push(e)
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Filter returns matching entries, newest first.
func (s *Store) Filter(f HandFilter) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		if f.Match(s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return out
}

// Stats summarises every stored hand.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Winners: map[string]int{}, Net: map[string]int64{}}
	sessions := map[string]bool{}
	var pot int64
	for _, e := range s.entries {
		st.Hands++
		sessions[e.SessionID] = true
		switch w := e.Hand.Winner(); w {
		case "split":
			st.Splits++
		case "":
		default:
			st.Winners[w]++
		}
		if e.Hand.Showdown != nil {
			st.Showdowns++
		}
		for id, v := range e.Hand.NetResult {
			st.Net[id] += v
		}
		pot += e.Hand.WonChips()
	}
	st.Sessions = len(sessions)
	if st.Hands > 0 {
		st.AvgPotWon = float64(pot) / float64(st.Hands)
	}
	return st
}

type Stats struct {
	Hands     int              `json:"hands"`
	Sessions  int              `json:"sessions"`
	Winners   map[string]int   `json:"winners"`
	Splits    int              `json:"splits"`
	Showdowns int              `json:"showdowns"`
	Net       map[string]int64 `json:"net"`
	AvgPotWon float64          `json:"avg_pot_won"`
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// SessionIDs lists the sessions with stored hands.
func (s *Store) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	for _, e := range s.entries {
		seen[e.SessionID] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
