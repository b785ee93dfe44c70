package game

import (
	"errors"
	"fmt"

	"axiomind/internal/apperr"
)

var (
	ErrIllegalAction       = errors.New("illegal_action")
	ErrWrongTurn           = apperr.New(apperr.ErrInvalidInput, "wrong_turn", "not this seat's turn")
	ErrHandAlreadyComplete = apperr.New(apperr.ErrInvalidInput, "hand_complete", "hand already complete")
	ErrHandInProgress      = apperr.New(apperr.ErrInvalidInput, "hand_in_progress", "a hand is already in progress")
	ErrNoHand              = apperr.New(apperr.ErrInvalidInput, "no_hand", "no hand has been dealt")
	ErrPlayerBusted        = apperr.New(apperr.ErrInvalidInput, "player_busted", "a player has no chips left")
)

// ReasonReopen is reported when a matched player tries to raise after a
// short all-in.
const ReasonReopen = "illegal reopen after short all-in"

// IllegalActionError carries the reason an action was rejected. It matches
// both ErrIllegalAction and apperr.ErrInvalidInput.
type IllegalActionError struct {
	Reason string
}

func (e *IllegalActionError) Error() string {
	return "illegal action: " + e.Reason
}

func (e *IllegalActionError) Is(target error) bool {
	return target == ErrIllegalAction || target == apperr.ErrInvalidInput
}

func illegal(format string, args ...any) error {
	return &IllegalActionError{Reason: fmt.Sprintf(format, args...)}
}

// ValidateAction checks a against the current state without mutating it.
func (e *Engine) ValidateAction(seat int, a Action) error {
	if !e.dealt {
		return ErrNoHand
	}
	if e.complete {
		return ErrHandAlreadyComplete
	}
	if seat < 0 || seat > 1 {
		return illegal("unknown seat %d", seat)
	}
	if seat != e.toAct {
		return ErrWrongTurn
	}
	p := &e.players[seat]
	if p.Folded {
		return illegal("seat %d has folded", seat)
	}
	toCall := e.ToCall(seat)
	opponentLive := e.canAct(1 - seat)

	switch a.Kind {
	case ActionFold:
		return nil
	case ActionCheck:
		if toCall != 0 {
			return illegal("cannot check facing %d", toCall)
		}
		return nil
	case ActionCall:
		if toCall == 0 {
			return illegal("nothing to call")
		}
		return nil
	case ActionBet:
		if e.currentBet != 0 {
			return illegal("cannot bet into %d, raise instead", e.currentBet)
		}
		if !opponentLive {
			return illegal("opponent is all-in")
		}
		if floor := MinBet(e.bb); a.Amount < floor {
			return illegal("bet %d below minimum %d", a.Amount, floor)
		}
		if a.Amount%MinChipUnit != 0 {
			return illegal("bet %d is not a multiple of %d", a.Amount, MinChipUnit)
		}
		if a.Amount > p.Stack {
			return illegal("bet %d exceeds stack %d", a.Amount, p.Stack)
		}
		return nil
	case ActionRaise:
		if e.currentBet == 0 {
			return illegal("nothing to raise, bet instead")
		}
		if e.raiseLocked[seat] {
			return illegal(ReasonReopen)
		}
		if !opponentLive {
			return illegal("opponent is all-in")
		}
		if a.Amount < e.lastFullRaise {
			return illegal("raise %d below minimum %d", a.Amount, e.lastFullRaise)
		}
		if a.Amount%MinChipUnit != 0 {
			return illegal("raise %d is not a multiple of %d", a.Amount, MinChipUnit)
		}
		if target := e.currentBet + a.Amount; target > e.committed[seat]+p.Stack {
			return illegal("raise to %d exceeds stack %d", target, e.committed[seat]+p.Stack)
		}
		return nil
	case ActionAllIn:
		if p.Stack == 0 {
			return illegal("no chips left")
		}
		if p.Stack > toCall {
			if e.raiseLocked[seat] {
				return illegal(ReasonReopen)
			}
			if !opponentLive {
				return illegal("opponent is all-in, call instead")
			}
		}
		return nil
	}
	return illegal("unknown action kind %d", a.Kind)
}

// IsLegal is ValidateAction as a predicate.
func (e *Engine) IsLegal(seat int, a Action) bool {
	return e.ValidateAction(seat, a) == nil
}

// LegalKinds lists the action kinds currently open to seat.
func (e *Engine) LegalKinds(seat int) []ActionKind {
	out := make([]ActionKind, 0, 6)
	candidates := []Action{Fold(), Check(), Call(), Bet(MinBet(e.bb)), Raise(e.lastFullRaise), AllIn()}
	for _, a := range candidates {
		if e.IsLegal(seat, a) {
			out = append(out, a.Kind)
		}
	}
	return out
}
