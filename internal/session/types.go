package session

import (
	"time"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
	"axiomind/internal/game/viewmodel"
)

const (
	OpponentHuman = "human"
	// AISeat is the seat an ai:<name> opponent occupies.
	AISeat = 1

	StatusActive = "active"
	StatusEnded  = "ended"
)

var (
	ErrNotFound    = apperr.New(apperr.ErrNotFound, "session_not_found", "session not found")
	ErrExpired     = apperr.New(apperr.ErrExpired, "session_expired", "session expired")
	ErrStaleTurn   = apperr.New(apperr.ErrInvalidInput, "stale_turn", "turn_id does not match the current turn")
	ErrGameOver    = apperr.New(apperr.ErrInvalidInput, "game_over", "the game has ended")
	ErrInvalidSeat = apperr.New(apperr.ErrInvalidInput, "invalid_seat", "seat must be 0 or 1")
	ErrAISeat      = apperr.New(apperr.ErrInvalidInput, "ai_seat", "seat is played by the ai opponent")
	ErrBadOpponent = apperr.New(apperr.ErrInvalidInput, "invalid_opponent", `opponent_type must be "human" or "ai:<name>"`)
)

// Config is the body of a create-session request. Zero values fall back to
// the current settings.
type Config struct {
	Seed         *uint64 `json:"seed,omitempty"`
	Level        int     `json:"level,omitempty"`
	OpponentType string  `json:"opponent_type,omitempty"`
}

type Info struct {
	ID            string    `json:"session_id"`
	Status        string    `json:"status"`
	Opponent      string    `json:"opponent_type"`
	Seed          *uint64   `json:"seed,omitempty"`
	Level         int       `json:"level"`
	HandNumber    int       `json:"hand_number"`
	HandID        string    `json:"hand_id,omitempty"`
	TurnID        string    `json:"turn_id,omitempty"`
	CurrentPlayer int       `json:"current_player"`
	Stacks        [2]int64  `json:"stacks"`
	Violations    int       `json:"ai_violations"`
	EndReason     string    `json:"end_reason,omitempty"`
	Winner        string    `json:"winner,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActive    time.Time `json:"last_active"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ActionRequest is one move. A nil Seat means the seat currently to act.
type ActionRequest struct {
	Seat   *int        `json:"seat,omitempty"`
	Action game.Action `json:"action"`
	TurnID string      `json:"turn_id,omitempty"`
}

type ActionResult struct {
	HandID string `json:"hand_id"`
	// HandCompleted is set when this action, or the ai replies it triggered,
	// finished the hand it was made in.
	HandCompleted bool                `json:"hand_completed"`
	GameOver      bool                `json:"game_over"`
	State         viewmodel.StateView `json:"state"`
}
