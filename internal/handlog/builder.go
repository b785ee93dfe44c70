package handlog

import (
	"fmt"
	"time"

	"axiomind/internal/game"
)

// Stamp identifies a hand within its run.
type Stamp struct {
	HandID string
	TS     string
	Notes  string
}

// SeededStamp is the deterministic stamp for hand n (1-based) of a seeded run.
func SeededStamp(n int) Stamp {
	return Stamp{HandID: FormatHandID("19700101", n), TS: SeededTimestamp}
}

// ClockStamp stamps hand n with the wall clock.
func ClockStamp(now time.Time, n int) Stamp {
	now = now.UTC()
	return Stamp{HandID: FormatHandID(now.Format("20060102"), n), TS: now.Format(time.RFC3339)}
}

// FromEngine builds the record of the hand e has just completed.
func FromEngine(e *game.Engine, stamp Stamp) (HandRecord, error) {
	res, ok := e.Result()
	if !ok {
		return HandRecord{}, fmt.Errorf("hand %s is not complete", stamp.HandID)
	}
	players := e.Players()
	start := e.StartStacks()
	sb, bb := e.HandBlinds()
	level := e.Level()
	button := players[e.Button()].ID
	bigBlind := players[1-e.Button()].ID

	rec := HandRecord{
		HandID:    stamp.HandID,
		Level:     &level,
		Blinds:    &game.BlindLevel{SB: sb, BB: bb},
		Button:    &button,
		Board:     e.Board(),
		NetResult: map[string]int64{},
	}
	if seed, seeded := e.Seed(); seeded {
		rec.Seed = &seed
	}
	if stamp.TS != "" {
		ts := stamp.TS
		rec.TS = &ts
	}
	for q, p := range players {
		rec.Players = append(rec.Players, PlayerRecord{ID: p.ID, StackStart: start[q], HoleCards: p.Hole})
		rec.NetResult[p.ID] = res.Net[q]
	}
	history := e.ActionHistory()
	rec.Actions = make([]ActionEntry, 0, len(history))
	for _, a := range history {
		rec.Actions = append(rec.Actions, ActionEntry{PlayerID: SeatRef(a.Seat), Street: a.Street, Action: a.Action})
	}

	result := "split"
	if !res.Split() {
		result = players[res.Winners[0]].ID
	}
	rec.Result = &result
	if res.Showdown {
		notes := stamp.Notes
		if notes == "" {
			notes = fmt.Sprintf("%s %s; %s %s", players[0].ID, res.Strengths[0].Category, players[1].ID, res.Strengths[1].Category)
		}
		rec.Showdown = &Showdown{Winners: append([]int(nil), res.Winners...), Notes: &notes}
	}

	seq := e.DealSequence()
	meta := &Meta{
		SmallBlind:    &button,
		BigBlind:      &bigBlind,
		DealSequence:  make([]string, len(seq)),
		BurnPositions: e.BurnPositions(),
	}
	for i, seat := range seq {
		meta.DealSequence[i] = players[seat].ID
	}
	rec.Meta = meta
	return rec, nil
}

// FinalStacks returns each player's stack after the hand, keyed by id.
func (r HandRecord) FinalStacks() map[string]int64 {
	out := make(map[string]int64, len(r.Players))
	for _, p := range r.Players {
		out[p.ID] = p.StackStart + r.NetResult[p.ID]
	}
	return out
}
