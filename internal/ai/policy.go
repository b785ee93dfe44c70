// Package ai holds the built-in seat policies and the contract they share.
package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
)

// Policy decides an action for seat from what that seat may observe. It must
// be a pure function of its inputs.
type Policy interface {
	Name() string
	GetAction(view game.View, seat int) game.Action
}

var registry = map[string]func() Policy{
	"baseline":   func() Policy { return Baseline{} },
	"calling":    func() Policy { return Calling{} },
	"aggressive": func() Policy { return Aggressive{} },
	"random":     func() Policy { return Random{} },
	"fold":       func() Policy { return Folding{} },
}

var ErrUnknownPolicy = apperr.New(apperr.ErrInvalidInput, "unknown_policy", "unknown ai policy")

// Resolve accepts "ai:<name>" or a bare name.
func Resolve(name string) (Policy, error) {
	key := strings.TrimPrefix(strings.TrimSpace(name), "ai:")
	build, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPolicy, name, strings.Join(Names(), ", "))
	}
	return build(), nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Decision is the action actually taken for a seat.
type Decision struct {
	Action    game.Action
	Proposed  game.Action
	Violation error
}

// Decide asks p for seat's action and checks it against e. An illegal choice
// is replaced by Check, or Fold when checking is not allowed.
func Decide(e *game.Engine, p Policy, seat int) Decision {
	proposed := p.GetAction(e.View(seat), seat)
	err := e.ValidateAction(seat, proposed)
	if err == nil {
		return Decision{Action: proposed, Proposed: proposed}
	}
	fallback := game.Fold()
	if e.IsLegal(seat, game.Check()) {
		fallback = game.Check()
	}
	log.Warn().
		Str("policy", p.Name()).
		Int("seat", seat).
		Str("proposed", proposed.String()).
		Str("substituted", fallback.String()).
		Err(err).
		Msg("policy_violation")
	return Decision{Action: fallback, Proposed: proposed, Violation: err}
}
