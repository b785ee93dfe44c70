package ai

import (
	"errors"
	"testing"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
)

func TestResolve(t *testing.T) {
	for _, name := range []string{"baseline", "ai:baseline", "ai:calling", "aggressive", "random", "fold"} {
		p, err := Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", name, err)
		}
		if p.Name() == "" {
			t.Fatalf("Resolve(%q) returned unnamed policy", name)
		}
	}
	if _, err := Resolve("ai:genius"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown policy, got %v", err)
	}
}

func TestPoliciesAlwaysProduceLegalOrSubstitutedActions(t *testing.T) {
	for _, name := range Names() {
		p, _ := Resolve(name)
		seed := uint64(11)
		e, err := game.NewEngine(&seed, 1)
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		for hand := 0; hand < 30; hand++ {
			if err := e.DealHand(); err != nil {
				break
			}
			// Two min-raisers can trade raises until both stacks are in.
			maxSteps := int(2 * game.DefaultStartingStack / game.MinChipUnit)
			for steps := 0; !e.IsComplete(); steps++ {
				if steps > maxSteps {
					t.Fatalf("%s: hand did not finish", name)
				}
				seat := e.CurrentPlayer()
				d := Decide(e, p, seat)
				if err := e.ApplyAction(seat, d.Action); err != nil {
					t.Fatalf("%s: decided action %v rejected: %v", name, d.Action, err)
				}
			}
			if got := e.TotalChips(); got != 2*game.DefaultStartingStack {
				t.Fatalf("%s: chips not conserved: %d", name, got)
			}
		}
	}
}

func TestDecideSubstitutesIllegalChoice(t *testing.T) {
	seed := uint64(3)
	e, _ := game.NewEngine(&seed, 1)
	if err := e.DealHand(); err != nil {
		t.Fatalf("deal: %v", err)
	}
	// The button faces the big blind, so checking is illegal and the
	// substitute must be a fold.
	d := Decide(e, checker{}, e.CurrentPlayer())
	if d.Violation == nil || d.Action != game.Fold() {
		t.Fatalf("expected fold substitution, got %+v", d)
	}
	if err := e.ApplyAction(e.CurrentPlayer(), game.Call()); err != nil {
		t.Fatalf("call: %v", err)
	}
	d = Decide(e, folder{}, e.CurrentPlayer())
	if d.Violation != nil || d.Action != game.Fold() {
		t.Fatalf("fold is always legal, got %+v", d)
	}
	d = Decide(e, checker{}, e.CurrentPlayer())
	if d.Violation != nil || d.Action != game.Check() {
		t.Fatalf("big blind may check, got %+v", d)
	}
}

func TestRandomIsPure(t *testing.T) {
	v := game.View{
		Street:   game.StreetFlop,
		Board:    game.MustParseCards("As Kd 7c"),
		Hole:     game.MustParseCards("Qh Qs"),
		Pot:      400,
		ToCall:   100,
		MinRaise: 100,
		Stack:    5000,
	}
	first := Random{}.GetAction(v, 1)
	for i := 0; i < 10; i++ {
		if got := (Random{}).GetAction(v, 1); got != first {
			t.Fatalf("random policy not deterministic: %v vs %v", got, first)
		}
	}
}

func TestStrengthOrdering(t *testing.T) {
	aces := Strength(game.MustParseCards("As Ah"), nil)
	junk := Strength(game.MustParseCards("7c 2d"), nil)
	if aces <= junk || aces < 0.75 {
		t.Fatalf("expected aces (%v) to dominate 72o (%v)", aces, junk)
	}
	set := Strength(game.MustParseCards("9s 9h"), game.MustParseCards("9d Kc 2h"))
	air := Strength(game.MustParseCards("4s 5h"), game.MustParseCards("9d Kc 2h"))
	if set <= air {
		t.Fatalf("expected set (%v) above air (%v)", set, air)
	}
}

type checker struct{}

func (checker) Name() string                         { return "checker" }
func (checker) GetAction(game.View, int) game.Action { return game.Check() }

type folder struct{}

func (folder) Name() string                         { return "folder" }
func (folder) GetAction(game.View, int) game.Action { return game.Fold() }
