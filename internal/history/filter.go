package history

import (
	"encoding/json"

	"axiomind/internal/apperr"
)

// HandFilter selects entries. Zero fields match everything.
type HandFilter struct {
	SessionID string `json:"session_id,omitempty"`
	// Winner is a player id or "split".
	Winner   string `json:"winner,omitempty"`
	Showdown *bool  `json:"showdown,omitempty"`
	MinPot   int64  `json:"min_pot,omitempty"`
	// FromHandID and ToHandID bound hand ids inclusively; ids sort by date.
	FromHandID string `json:"from_hand_id,omitempty"`
	ToHandID   string `json:"to_hand_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

func (f HandFilter) Validate() error {
	if f.Limit < 0 || f.MinPot < 0 {
		return apperr.New(apperr.ErrInvalidInput, "invalid_filter", "limit and min_pot must not be negative")
	}
	if f.FromHandID != "" && f.ToHandID != "" && f.FromHandID > f.ToHandID {
		return apperr.New(apperr.ErrInvalidInput, "invalid_filter", "from_hand_id is after to_hand_id")
	}
	return nil
}

func (f HandFilter) Match(e Entry) bool {
	h := e.Hand
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Winner != "" && h.Winner() != f.Winner {
		return false
	}
	if f.Showdown != nil && (h.Showdown != nil) != *f.Showdown {
		return false
	}
	if f.MinPot > 0 && h.WonChips() < f.MinPot {
		return false
	}
	if f.FromHandID != "" && h.HandID < f.FromHandID {
		return false
	}
	if f.ToHandID != "" && h.HandID > f.ToHandID {
		return false
	}
	return true
}

func marshalEntry(e Entry) ([]byte, error) { return json.Marshal(e) }

func unmarshalEntry(b []byte, e *Entry) error { return json.Unmarshal(b, e) }
