package verify

import (
	"errors"
	"fmt"

	"axiomind/internal/game"
	"axiomind/internal/handlog"
)

// ErrReopen is reported when a matched player raises after a short all-in.
var ErrReopen = errors.New("Betting illegally reopened after short all-in")

// Replayer rebuilds the chip flow of one hand from its recorded actions using
// the same betting rules as the engine. Turn order is not enforced.
type Replayer struct {
	players []handlog.PlayerRecord
	sb, bb  int64
	button  int

	street        game.Street
	stacks        []int64
	committed     []int64
	acted         []bool
	locked        []bool
	folded        []bool
	pot           int64
	currentBet    int64
	lastFullRaise int64
}

// NewReplayer posts the blinds for rec. The button comes from rec.button or,
// failing that, meta.small_blind; without either seat 0 holds it.
func NewReplayer(rec handlog.HandRecord) (*Replayer, error) {
	if len(rec.Players) != 2 {
		return nil, fmt.Errorf("only heads-up hands are supported (found %d players)", len(rec.Players))
	}
	r := &Replayer{
		players:   rec.Players,
		stacks:    make([]int64, 2),
		committed: make([]int64, 2),
		acted:     make([]bool, 2),
		locked:    make([]bool, 2),
		folded:    make([]bool, 2),
	}
	switch {
	case rec.Blinds != nil:
		r.sb, r.bb = rec.Blinds.SB, rec.Blinds.BB
	case rec.Level != nil:
		sb, bb, err := game.Blinds(*rec.Level)
		if err != nil {
			return nil, err
		}
		r.sb, r.bb = sb, bb
	default:
		return nil, fmt.Errorf("record has neither blinds nor level")
	}
	buttonID := ""
	if rec.Button != nil {
		buttonID = *rec.Button
	} else if rec.Meta != nil && rec.Meta.SmallBlind != nil {
		buttonID = *rec.Meta.SmallBlind
	}
	if buttonID != "" {
		seat, ok := handlog.IDRef(buttonID).Resolve(rec.Players)
		if !ok {
			return nil, fmt.Errorf("button %q is not a player", buttonID)
		}
		r.button = seat
	}
	for i, p := range rec.Players {
		r.stacks[i] = p.StackStart
	}
	r.move(r.button, min(r.sb, r.stacks[r.button]))
	r.move(1-r.button, min(r.bb, r.stacks[1-r.button]))
	r.currentBet = max(r.committed[0], r.committed[1])
	r.lastFullRaise = r.bb
	return r, nil
}

func (r *Replayer) move(seat int, amount int64) {
	r.stacks[seat] -= amount
	r.committed[seat] += amount
	r.pot += amount
}

func (r *Replayer) Street() game.Street { return r.street }
func (r *Replayer) Pot() int64          { return r.pot }
func (r *Replayer) Button() int         { return r.button }

func (r *Replayer) Stacks() []int64 { return append([]int64(nil), r.stacks...) }

func (r *Replayer) Committed() []int64 { return append([]int64(nil), r.committed...) }

func (r *Replayer) CurrentBet() int64 { return r.currentBet }

// Apply replays one action. After an error the hand should not be replayed
// further.
func (r *Replayer) Apply(entry handlog.ActionEntry) error {
	seat, ok := entry.PlayerID.Resolve(r.players)
	if !ok {
		return fmt.Errorf("action references unknown player %s", entry.PlayerID)
	}
	if entry.Street < r.street {
		return fmt.Errorf("street went back from %s to %s", r.street, entry.Street)
	}
	if r.folded[seat] {
		return fmt.Errorf("%s acted after folding", r.players[seat].ID)
	}
	if entry.Street > r.street {
		r.closeStreet(entry.Street)
	}

	a := entry.Action
	stack := r.stacks[seat]
	toCall := max(r.currentBet-r.committed[seat], 0)
	minRaise := max(r.lastFullRaise, r.bb, game.MinChipUnit)

	switch a.Kind {
	case game.ActionFold:
		r.folded[seat] = true
	case game.ActionCheck:
		if toCall != 0 {
			return fmt.Errorf("%s checked facing %d", r.players[seat].ID, toCall)
		}
	case game.ActionCall:
		if toCall == 0 {
			return fmt.Errorf("%s called with nothing to call", r.players[seat].ID)
		}
		r.move(seat, min(stack, toCall))
	case game.ActionBet:
		if r.currentBet != 0 {
			return fmt.Errorf("%s bet %d into an existing bet of %d", r.players[seat].ID, a.Amount, r.currentBet)
		}
		if a.Amount%game.MinChipUnit != 0 {
			return fmt.Errorf("bet %d is not a multiple of %d", a.Amount, game.MinChipUnit)
		}
		if a.Amount > stack {
			return fmt.Errorf("bet %d exceeds remaining stack %d", a.Amount, stack)
		}
		if floor := game.MinBet(r.bb); a.Amount < floor {
			return fmt.Errorf("bet %d below minimum %d", a.Amount, floor)
		}
		r.move(seat, a.Amount)
		r.currentBet = r.committed[seat]
		r.lastFullRaise = a.Amount
		r.reopen(seat)
	case game.ActionRaise:
		if r.currentBet == 0 {
			return fmt.Errorf("raise with no bet to raise")
		}
		if r.locked[seat] {
			return ErrReopen
		}
		if a.Amount%game.MinChipUnit != 0 {
			return fmt.Errorf("raise %d is not a multiple of %d", a.Amount, game.MinChipUnit)
		}
		moved := r.currentBet + a.Amount - r.committed[seat]
		if moved > stack {
			return fmt.Errorf("raise moves %d chips but only %d remain", moved, stack)
		}
		if a.Amount < minRaise && moved != stack {
			return fmt.Errorf("raise %d below minimum %d", a.Amount, minRaise)
		}
		r.move(seat, moved)
		r.currentBet = r.committed[seat]
		if a.Amount >= r.lastFullRaise {
			r.lastFullRaise = a.Amount
			r.reopen(seat)
		} else {
			r.blockReopen(seat, r.currentBet-a.Amount)
		}
	case game.ActionAllIn:
		if a.Amount > stack {
			return fmt.Errorf("all-in of %d exceeds remaining stack %d", a.Amount, stack)
		}
		if a.Amount != 0 && a.Amount != stack {
			return fmt.Errorf("all-in of %d does not match remaining stack %d", a.Amount, stack)
		}
		if stack == 0 {
			return fmt.Errorf("%s went all-in with no chips", r.players[seat].ID)
		}
		newCommit := r.committed[seat] + stack
		if newCommit > r.currentBet {
			if r.locked[seat] {
				return ErrReopen
			}
			increment := newCommit - r.currentBet
			prev := r.currentBet
			r.currentBet = newCommit
			if increment >= r.lastFullRaise {
				r.lastFullRaise = increment
				r.reopen(seat)
			} else {
				r.blockReopen(seat, prev)
			}
		}
		r.move(seat, stack)
	default:
		return fmt.Errorf("unknown action %v", a)
	}
	r.acted[seat] = true
	return nil
}

func (r *Replayer) reopen(seat int) {
	for q := range r.locked {
		r.locked[q] = false
		if q != seat {
			r.acted[q] = false
		}
	}
}

func (r *Replayer) blockReopen(seat int, prevBet int64) {
	for q := range r.locked {
		if q != seat && r.acted[q] && r.committed[q] == prevBet {
			r.locked[q] = true
		}
	}
}

// closeStreet returns any uncalled excess and opens next.
func (r *Replayer) closeStreet(next game.Street) {
	r.returnUncalled()
	for q := range r.committed {
		r.committed[q] = 0
		r.acted[q] = false
		r.locked[q] = false
	}
	r.currentBet = 0
	r.lastFullRaise = r.bb
	r.street = next
}

// Finish closes the last street; the pot then holds only matched chips.
func (r *Replayer) Finish() {
	if !r.folded[0] && !r.folded[1] {
		r.returnUncalled()
	}
}

func (r *Replayer) returnUncalled() {
	for q := range r.committed {
		other := 1 - q
		if r.folded[other] {
			continue
		}
		if excess := game.UncalledExcess(r.committed[q], r.committed[other]); excess > 0 {
			r.stacks[q] += excess
			r.committed[q] -= excess
			r.pot -= excess
		}
	}
}
