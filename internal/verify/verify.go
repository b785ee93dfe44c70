// Package verify checks JSONL hand histories for integrity.
package verify

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/rs/zerolog/log"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
	"axiomind/internal/handlog"
)

var ErrVerifyFailed = apperr.New(apperr.ErrInvalidInput, "verify_failed", "hand history failed verification")

// Issue is one failed check. Hand is the 1-based position of the record.
type Issue struct {
	Hand   int    `json:"hand"`
	HandID string `json:"hand_id,omitempty"`
	Msg    string `json:"message"`
}

func (i Issue) String() string {
	if i.HandID != "" {
		return fmt.Sprintf("hand %d (%s): %s", i.Hand, i.HandID, i.Msg)
	}
	return fmt.Sprintf("hand %d: %s", i.Hand, i.Msg)
}

type Report struct {
	Hands  int     `json:"hands"`
	Issues []Issue `json:"issues"`
}

func (r Report) OK() bool { return len(r.Issues) == 0 }

// Err is nil for a clean report and ErrVerifyFailed otherwise.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	return ErrVerifyFailed
}

// Verifier carries the cross-hand state: roster, running stacks and seen ids.
type Verifier struct {
	report     Report
	seen       map[string]int
	stacks     map[string]int64
	eliminated string
	started    bool
}

func New() *Verifier {
	return &Verifier{seen: map[string]int{}, stacks: map[string]int64{}}
}

// File verifies every line of path.
func File(ctx context.Context, path string) (Report, error) {
	v := New()
	err := handlog.Each(path, func(l handlog.Line) error {
		if err := ctx.Err(); err != nil {
			return apperr.Wrap(apperr.ErrInterrupted, "interrupted", err)
		}
		v.Line(l.Raw)
		return nil
	})
	if err != nil {
		return v.Report(), err
	}
	rep := v.Report()
	log.Debug().Str("path", path).Int("hands", rep.Hands).Int("issues", len(rep.Issues)).Msg("verify_done")
	return rep, nil
}

// Records verifies already decoded records in order.
func Records(recs []handlog.HandRecord) Report {
	v := New()
	for _, rec := range recs {
		v.Record(rec)
	}
	return v.Report()
}

func (v *Verifier) Report() Report {
	out := v.report
	out.Issues = slices.Clone(v.report.Issues)
	return out
}

// Line decodes and checks one JSONL line.
func (v *Verifier) Line(raw []byte) {
	rec, err := handlog.Decode(raw)
	if err != nil {
		v.report.Hands++
		v.add(v.report.Hands, "", fmt.Sprintf("invalid record: %v", err))
		return
	}
	v.Record(rec)
}

// Record checks rec and every rule that spans it and the previous hands.
func (v *Verifier) Record(rec handlog.HandRecord) {
	v.report.Hands++
	n := v.report.Hands
	fail := func(format string, args ...any) {
		v.add(n, rec.HandID, fmt.Sprintf(format, args...))
	}

	if !handlog.ValidHandID(rec.HandID) {
		fail("hand_id %q does not match YYYYMMDD-NNNNNN", rec.HandID)
	} else if prev, dup := v.seen[rec.HandID]; dup {
		fail("duplicate hand_id, first seen at hand %d", prev)
	} else {
		v.seen[rec.HandID] = n
	}
	if len(rec.Board) != 5 {
		fail("board has %d cards, expected 5", len(rec.Board))
	}
	if len(rec.Players) > 0 && len(rec.Players) != 2 {
		fail("only heads-up hands are supported (found %d players)", len(rec.Players))
	}

	checkUniqueCards(rec, fail)
	checkChips(rec, fail)
	v.checkRoster(rec, fail)
	checkMeta(rec, fail)
	checkStreets(rec, fail)
	if len(rec.Players) == 2 {
		checkBetting(rec, fail)
	}
}

func (v *Verifier) add(hand int, id, msg string) {
	v.report.Issues = append(v.report.Issues, Issue{Hand: hand, HandID: id, Msg: msg})
}

func checkUniqueCards(rec handlog.HandRecord, fail func(string, ...any)) {
	seen := map[game.Card]bool{}
	cards := slices.Clone(rec.Board)
	for _, p := range rec.Players {
		cards = append(cards, p.HoleCards...)
	}
	for _, c := range cards {
		if seen[c] {
			fail("duplicate card %s", c)
		}
		seen[c] = true
	}
}

func checkChips(rec handlog.HandRecord, fail func(string, ...any)) {
	if rec.NetResult == nil {
		return
	}
	if sum := rec.NetSum(); sum != 0 {
		fail("Chip conservation violated: net_result sums to %d", sum)
	}
	if len(rec.Players) == 0 {
		return
	}
	known := map[string]bool{}
	for _, p := range rec.Players {
		known[p.ID] = true
	}
	keys := make([]string, 0, len(rec.NetResult))
	for id := range rec.NetResult {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	for _, id := range keys {
		if !known[id] {
			fail("net_result references unknown player %q", id)
		}
	}
}

// checkRoster enforces that players carry their stacks from hand to hand,
// nobody joins late, and nothing follows an elimination.
func (v *Verifier) checkRoster(rec handlog.HandRecord, fail func(string, ...any)) {
	if len(rec.Players) == 0 {
		return
	}
	if v.eliminated != "" {
		fail("hand recorded after %s was eliminated", v.eliminated)
		return
	}
	if v.started {
		present := map[string]bool{}
		for _, p := range rec.Players {
			present[p.ID] = true
			prev, ok := v.stacks[p.ID]
			switch {
			case !ok:
				fail("player %s joined mid-session", p.ID)
			case prev == 0:
				fail("busted player %s reappeared", p.ID)
			case prev != p.StackStart:
				fail("player %s starts with %d, expected %d from the previous hand", p.ID, p.StackStart, prev)
			}
		}
		ids := make([]string, 0, len(v.stacks))
		for id := range v.stacks {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if v.stacks[id] > 0 && !present[id] {
				fail("player %s with %d chips is missing", id, v.stacks[id])
			}
		}
	}
	v.started = true
	clear(v.stacks)
	for _, p := range rec.Players {
		after := p.StackStart + rec.NetResult[p.ID]
		v.stacks[p.ID] = after
		if after <= 0 && v.eliminated == "" {
			v.eliminated = p.ID
		}
	}
}

func checkMeta(rec handlog.HandRecord, fail func(string, ...any)) {
	m := rec.Meta
	if m == nil {
		return
	}
	p := len(rec.Players)
	if m.SmallBlind != nil && rec.Button != nil && *m.SmallBlind != *rec.Button {
		fail("small_blind %s is not the button %s", *m.SmallBlind, *rec.Button)
	}
	if m.SmallBlind != nil && m.BigBlind != nil {
		sb, bb := *m.SmallBlind, *m.BigBlind
		if sb == bb {
			fail("small_blind and big_blind are both %s", sb)
		}
		if p == 2 {
			seat, ok := handlog.IDRef(sb).Resolve(rec.Players)
			if !ok {
				fail("small_blind %s is not a player", sb)
			} else if other := rec.Players[1-seat].ID; bb != other {
				fail("big_blind %s should be %s", bb, other)
			}
		}
	}
	if m.DealSequence != nil && p > 0 {
		seq := m.DealSequence
		if len(seq) != 2*p {
			fail("deal_sequence has %d entries, expected %d", len(seq), 2*p)
		} else {
			if m.SmallBlind != nil && m.BigBlind != nil && p == 2 &&
				(seq[0] != *m.SmallBlind || seq[1] != *m.BigBlind) {
				fail("deal_sequence must start with [%s %s]", *m.SmallBlind, *m.BigBlind)
			}
			if !slices.Equal(seq[:p], seq[p:]) {
				fail("deal_sequence rounds differ: %v vs %v", seq[:p], seq[p:])
			}
		}
	}
	if m.BurnPositions != nil && p > 0 {
		want := []int{2*p + 1, 2*p + 5, 2*p + 7}
		if !slices.Equal(m.BurnPositions, want) {
			fail("burn_positions %v, expected %v", m.BurnPositions, want)
		}
	}
}

func checkStreets(rec handlog.HandRecord, fail func(string, ...any)) {
	current := game.StreetPreflop
	for i, a := range rec.Actions {
		switch {
		case a.Street > game.StreetRiver:
			fail("action %d has street %s", i+1, a.Street)
		case a.Street < current:
			fail("action %d goes back from %s to %s", i+1, current, a.Street)
		case a.Street > current+1:
			fail("action %d skips from %s to %s", i+1, current, a.Street)
		}
		if a.Street > current && a.Street <= game.StreetRiver {
			current = a.Street
		}
	}
}

func checkBetting(rec handlog.HandRecord, fail func(string, ...any)) {
	r, err := NewReplayer(rec)
	if err != nil {
		fail("cannot replay betting: %v", err)
		return
	}
	for i, a := range rec.Actions {
		if err := r.Apply(a); err != nil {
			if err == ErrReopen {
				fail("%v", err)
			} else {
				fail("action %d: %v", i+1, err)
			}
			return
		}
	}
}
