package game

import (
	"encoding/json"
	"fmt"
)

type Street uint8

const (
	StreetPreflop Street = iota
	StreetFlop
	StreetTurn
	StreetRiver
	StreetComplete
)

var streetNames = [...]string{
	StreetPreflop:  "Preflop",
	StreetFlop:     "Flop",
	StreetTurn:     "Turn",
	StreetRiver:    "River",
	StreetComplete: "Complete",
}

func (s Street) String() string {
	if int(s) >= len(streetNames) {
		return fmt.Sprintf("Street(%d)", uint8(s))
	}
	return streetNames[s]
}

// BoardSize is the number of community cards visible on the street.
func (s Street) BoardSize() int {
	switch s {
	case StreetPreflop:
		return 0
	case StreetFlop:
		return 3
	case StreetTurn:
		return 4
	}
	return 5
}

func (s Street) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Street) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseStreet(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseStreet(name string) (Street, error) {
	for i, n := range streetNames {
		if n == name {
			return Street(i), nil
		}
	}
	return 0, fmt.Errorf("unknown street %q", name)
}

type Position uint8

const (
	PositionButton Position = iota
	PositionBigBlind
)

func (p Position) String() string {
	if p == PositionButton {
		return "Button"
	}
	return "BigBlind"
}

func (p Position) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

type Player struct {
	ID       string   `json:"id"`
	Stack    int64    `json:"stack"`
	Position Position `json:"position"`
	Hole     []Card   `json:"hole_cards,omitempty"`
	Folded   bool     `json:"folded"`
}

// ActionRecord is one entry of a hand's action history.
type ActionRecord struct {
	Seat   int    `json:"player_id"`
	Street Street `json:"street"`
	Action Action `json:"action"`
}

// HandResult describes how the pot was distributed.
type HandResult struct {
	Winners   []int           `json:"winners"`
	Showdown  bool            `json:"showdown"`
	Pot       int64           `json:"pot"`
	Payouts   [2]int64        `json:"payouts"`
	Net       [2]int64        `json:"net"`
	Strengths [2]HandStrength `json:"strengths"`
}

// Split reports whether the pot was shared.
func (r HandResult) Split() bool { return len(r.Winners) > 1 }

// View is everything a policy may see when deciding for Seat.
type View struct {
	Seat          int    `json:"seat"`
	CurrentPlayer int    `json:"current_player"`
	Street        Street `json:"street"`
	Board         []Card `json:"board"`
	Pot           int64  `json:"pot"`
	ToCall        int64  `json:"to_call"`
	MinRaise      int64  `json:"min_raise"`
	Stack         int64  `json:"stack"`
	Hole          []Card `json:"hole_cards"`
}

// SeatState is the public per-seat part of a Snapshot.
type SeatState struct {
	Seat      int      `json:"seat"`
	ID        string   `json:"id"`
	Stack     int64    `json:"stack"`
	Position  Position `json:"position"`
	Committed int64    `json:"committed"`
	Folded    bool     `json:"folded"`
	AllIn     bool     `json:"all_in"`
	Hole      []Card   `json:"hole_cards,omitempty"`
}

// Snapshot is an unredacted copy of the engine state.
type Snapshot struct {
	Level         int            `json:"level"`
	Blinds        BlindLevel     `json:"blinds"`
	Street        Street         `json:"street"`
	Button        int            `json:"button"`
	CurrentPlayer int            `json:"current_player"`
	Pot           int64          `json:"pot"`
	CurrentBet    int64          `json:"current_bet"`
	MinRaise      int64          `json:"min_raise"`
	Board         []Card         `json:"board"`
	Seats         [2]SeatState   `json:"seats"`
	Actions       []ActionRecord `json:"actions"`
	Complete      bool           `json:"complete"`
	Result        *HandResult    `json:"result,omitempty"`
}
