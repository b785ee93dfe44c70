package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ActionKind uint8

const (
	ActionFold ActionKind = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
)

var actionNames = [...]string{
	ActionFold:  "Fold",
	ActionCheck: "Check",
	ActionCall:  "Call",
	ActionBet:   "Bet",
	ActionRaise: "Raise",
	ActionAllIn: "AllIn",
}

func (k ActionKind) String() string {
	if int(k) >= len(actionNames) {
		return fmt.Sprintf("ActionKind(%d)", uint8(k))
	}
	return actionNames[k]
}

// Action is a betting decision. Amount is the bet size for Bet, the increase
// over the current bet for Raise, and the chips moved for a recorded AllIn.
type Action struct {
	Kind   ActionKind
	Amount int64
}

func Fold() Action             { return Action{Kind: ActionFold} }
func Check() Action            { return Action{Kind: ActionCheck} }
func Call() Action             { return Action{Kind: ActionCall} }
func Bet(x int64) Action       { return Action{Kind: ActionBet, Amount: x} }
func Raise(delta int64) Action { return Action{Kind: ActionRaise, Amount: delta} }
func AllIn() Action            { return Action{Kind: ActionAllIn} }

func (a Action) String() string {
	switch a.Kind {
	case ActionBet, ActionRaise:
		return fmt.Sprintf("%s %d", a.Kind, a.Amount)
	case ActionAllIn:
		if a.Amount > 0 {
			return fmt.Sprintf("%s %d", a.Kind, a.Amount)
		}
	}
	return a.Kind.String()
}

// MarshalJSON writes the externally tagged form: "Check" or {"Bet":100}.
func (a Action) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case ActionFold, ActionCheck, ActionCall:
		return json.Marshal(a.Kind.String())
	case ActionAllIn:
		if a.Amount == 0 {
			return json.Marshal(a.Kind.String())
		}
		return json.Marshal(map[string]int64{a.Kind.String(): a.Amount})
	case ActionBet, ActionRaise:
		return json.Marshal(map[string]int64{a.Kind.String(): a.Amount})
	}
	return nil, fmt.Errorf("unknown action kind %d", a.Kind)
}

func (a *Action) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		switch name {
		case "Fold":
			*a = Fold()
		case "Check":
			*a = Check()
		case "Call":
			*a = Call()
		case "AllIn":
			*a = AllIn()
		default:
			return fmt.Errorf("unknown action %q", name)
		}
		return nil
	}
	var tagged map[string]int64
	if err := json.Unmarshal(b, &tagged); err != nil {
		return fmt.Errorf("action: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("action must have exactly one tag, got %d", len(tagged))
	}
	for name, amount := range tagged {
		switch name {
		case "Bet":
			*a = Bet(amount)
		case "Raise":
			*a = Raise(amount)
		case "AllIn":
			*a = Action{Kind: ActionAllIn, Amount: amount}
		default:
			return fmt.Errorf("unknown action %q", name)
		}
	}
	return nil
}

// ParseAction reads the terminal form: "fold", "check", "call", "bet 200",
// "raise 300", "allin".
func ParseAction(s string) (Action, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) == 0 {
		return Action{}, fmt.Errorf("empty action")
	}
	amount := func() (int64, error) {
		if len(fields) != 2 {
			return 0, fmt.Errorf("%s needs an amount", fields[0])
		}
		return strconv.ParseInt(fields[1], 10, 64)
	}
	switch fields[0] {
	case "f", "fold":
		return Fold(), nil
	case "k", "check":
		return Check(), nil
	case "c", "call":
		return Call(), nil
	case "a", "allin", "all-in", "shove":
		return AllIn(), nil
	case "b", "bet":
		x, err := amount()
		if err != nil {
			return Action{}, err
		}
		return Bet(x), nil
	case "r", "raise":
		x, err := amount()
		if err != nil {
			return Action{}, err
		}
		return Raise(x), nil
	}
	return Action{}, fmt.Errorf("unknown action %q", fields[0])
}
