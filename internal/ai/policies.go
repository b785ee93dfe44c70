package ai

import (
	"encoding/binary"
	"encoding/json"

	"github.com/zeebo/blake3"

	"axiomind/internal/game"
)

// Folding gives up whenever it faces a bet.
type Folding struct{}

func (Folding) Name() string { return "fold" }

func (Folding) GetAction(v game.View, _ int) game.Action {
	if v.ToCall == 0 {
		return game.Check()
	}
	return game.Fold()
}

// Calling never folds and never raises.
type Calling struct{}

func (Calling) Name() string { return "calling" }

func (Calling) GetAction(v game.View, _ int) game.Action {
	if v.ToCall == 0 {
		return game.Check()
	}
	return game.Call()
}

// Aggressive bets or raises the minimum whenever it can afford to.
type Aggressive struct{}

func (Aggressive) Name() string { return "aggressive" }

func (Aggressive) GetAction(v game.View, _ int) game.Action {
	return pressure(v)
}

// Random picks among check/call, a minimum raise, and fold using a digest of
// the view, so the same view always yields the same choice.
type Random struct{}

func (Random) Name() string { return "random" }

func (Random) GetAction(v game.View, seat int) game.Action {
	switch viewCoin(v, seat) % 4 {
	case 0:
		if v.ToCall > 0 {
			return game.Fold()
		}
		return game.Check()
	case 1:
		return pressure(v)
	}
	return passive(v)
}

func viewCoin(v game.View, seat int) uint64 {
	b, _ := json.Marshal(v)
	h := blake3.New()
	_, _ = h.Write(b)
	var s [8]byte
	binary.LittleEndian.PutUint64(s[:], uint64(seat))
	_, _ = h.Write(s[:])
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// Baseline plays a simple strength threshold: raise strong holdings, call
// medium ones or cheap prices, otherwise check or fold.
type Baseline struct{}

func (Baseline) Name() string { return "baseline" }

func (Baseline) GetAction(v game.View, _ int) game.Action {
	s := Strength(v.Hole, v.Board)
	switch {
	case s >= 0.75:
		return pressure(v)
	case s >= 0.45:
		return passive(v)
	case v.ToCall == 0:
		return game.Check()
	case v.ToCall*4 <= v.Pot:
		return game.Call()
	}
	return game.Fold()
}

func passive(v game.View) game.Action {
	if v.ToCall == 0 {
		return game.Check()
	}
	return game.Call()
}

// pressure opens or raises by the minimum, shoving when the stack is short.
func pressure(v game.View) game.Action {
	amount := v.MinRaise
	if amount%game.MinChipUnit != 0 {
		amount += game.MinChipUnit - amount%game.MinChipUnit
	}
	if v.ToCall+amount >= v.Stack {
		if v.Stack == 0 {
			return passive(v)
		}
		return game.AllIn()
	}
	// Preflop the blinds are already in, so even an unopened pot is a raise.
	if v.ToCall == 0 && v.Street != game.StreetPreflop {
		return game.Bet(amount)
	}
	return game.Raise(amount)
}

// Strength scores hole cards against the visible board in [0, 1].
func Strength(hole, board []game.Card) float64 {
	if len(hole) != 2 {
		return 0
	}
	if len(board) == 0 {
		return preflopStrength(hole[0], hole[1])
	}
	return madeStrength(hole, board)
}

func preflopStrength(a, b game.Card) float64 {
	hi, lo := a.Rank, b.Rank
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi == lo {
		return 0.5 + float64(hi)/28
	}
	s := float64(hi+lo) / 32
	if a.Suit == b.Suit {
		s += 0.05
	}
	if hi-lo == 1 {
		s += 0.03
	}
	return s
}

func madeStrength(hole, board []game.Card) float64 {
	var counts [15]int
	var suits [4]int
	for _, c := range append(append([]game.Card(nil), hole...), board...) {
		counts[c.Rank]++
		suits[c.Suit]++
	}
	var pairs, trips, quads int
	for _, n := range counts {
		switch n {
		case 2:
			pairs++
		case 3:
			trips++
		case 4:
			quads++
		}
	}
	flush := false
	for _, n := range suits {
		if n >= 5 {
			flush = true
		}
	}
	// Pairs made only from the board do not count for us.
	holeConnects := counts[hole[0].Rank] >= 2 || counts[hole[1].Rank] >= 2
	switch {
	case quads > 0, trips > 0 && pairs > 0, flush:
		return 0.95
	case trips > 0 && holeConnects:
		return 0.85
	case pairs >= 2 && holeConnects:
		return 0.75
	case pairs == 1 && holeConnects:
		top := true
		for _, c := range board {
			if c.Rank > hole[0].Rank && c.Rank > hole[1].Rank {
				top = false
			}
		}
		if top {
			return 0.6
		}
		return 0.45
	}
	return 0.2
}
