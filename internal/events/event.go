// Package events carries per-session game events to live subscribers.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"axiomind/internal/game"
)

type Type string

const (
	TypeGameStarted   Type = "GameStarted"
	TypeHandStarted   Type = "HandStarted"
	TypeCardsDealt    Type = "CardsDealt"
	TypePlayerAction  Type = "PlayerAction"
	TypeHandCompleted Type = "HandCompleted"
	TypeGameEnded     Type = "GameEnded"
)

// GameEnded reasons.
const (
	ReasonExpired      = "expired"
	ReasonDeleted      = "deleted"
	ReasonPlayerBusted = "player_busted"
)

// Event is one tagged game event. Payload is one of the payload structs
// below; it is flattened next to the tag when encoded.
type Event struct {
	Type      Type
	SessionID string
	Seq       uint64
	Payload   any
}

type GameStarted struct {
	Level    int     `json:"level"`
	Opponent string  `json:"opponent"`
	Seed     *uint64 `json:"seed,omitempty"`
}

type HandStarted struct {
	HandID     string          `json:"hand_id"`
	HandNumber int             `json:"hand_number"`
	Button     int             `json:"button"`
	Level      int             `json:"level"`
	Blinds     game.BlindLevel `json:"blinds"`
	Stacks     [2]int64        `json:"stacks"`
}

// CardsDealt is addressed to Seat; other subscribers see it without cards.
type CardsDealt struct {
	Seat  int         `json:"seat"`
	Cards []game.Card `json:"cards,omitempty"`
}

type PlayerAction struct {
	HandID        string      `json:"hand_id"`
	Seat          int         `json:"seat"`
	Street        game.Street `json:"street"`
	Action        game.Action `json:"action"`
	Pot           int64       `json:"pot"`
	CurrentPlayer int         `json:"current_player"`
}

type HandCompleted struct {
	HandID   string           `json:"hand_id"`
	Winner   string           `json:"winner"`
	Winners  []int            `json:"winners"`
	Pot      int64            `json:"pot"`
	Showdown bool             `json:"showdown"`
	Board    []game.Card      `json:"board"`
	Net      map[string]int64 `json:"net_result"`
}

type GameEnded struct {
	Reason string `json:"reason"`
	Winner string `json:"winner,omitempty"`
}

type header struct {
	Type      Type   `json:"type"`
	SessionID string `json:"session_id"`
	Seq       uint64 `json:"seq"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(header{Type: e.Type, SessionID: e.SessionID, Seq: e.Seq})
	if err != nil {
		return nil, err
	}
	if e.Payload == nil {
		return head, nil
	}
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("event payload %T is not an object", e.Payload)
	}
	if len(body) == 2 {
		return head, nil
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var h header
	if err := json.Unmarshal(b, &h); err != nil {
		return err
	}
	var payload any
	switch h.Type {
	case TypeGameStarted:
		payload = &GameStarted{}
	case TypeHandStarted:
		payload = &HandStarted{}
	case TypeCardsDealt:
		payload = &CardsDealt{}
	case TypePlayerAction:
		payload = &PlayerAction{}
	case TypeHandCompleted:
		payload = &HandCompleted{}
	case TypeGameEnded:
		payload = &GameEnded{}
	default:
		return fmt.Errorf("unknown event type %q", h.Type)
	}
	if err := json.Unmarshal(b, payload); err != nil {
		return err
	}
	*e = Event{Type: h.Type, SessionID: h.SessionID, Seq: h.Seq, Payload: deref(payload)}
	return nil
}

func deref(p any) any {
	switch v := p.(type) {
	case *GameStarted:
		return *v
	case *HandStarted:
		return *v
	case *CardsDealt:
		return *v
	case *PlayerAction:
		return *v
	case *HandCompleted:
		return *v
	case *GameEnded:
		return *v
	}
	return p
}

// forSeat returns the copy of e a subscriber bound to seat may see.
func (e Event) forSeat(seat int) Event {
	cd, ok := e.Payload.(CardsDealt)
	if !ok || cd.Seat == seat {
		return e
	}
	e.Payload = CardsDealt{Seat: cd.Seat}
	return e
}
