package game

import (
	"fmt"
	"sort"
)

type Category uint8

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	HighCard:      "HighCard",
	OnePair:       "OnePair",
	TwoPair:       "TwoPair",
	ThreeOfAKind:  "ThreeOfAKind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "FullHouse",
	FourOfAKind:   "FourOfAKind",
	StraightFlush: "StraightFlush",
}

func (c Category) String() string {
	if int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// HandStrength ranks a 7-card hand. Kickers hold the ranks that decide ties
// within a category, most significant first, zero padded.
type HandStrength struct {
	Category Category `json:"category"`
	Kickers  [5]uint8 `json:"kickers"`
}

// Compare returns -1, 0 or 1 comparing (category, kickers) lexicographically.
func (h HandStrength) Compare(o HandStrength) int {
	if h.Category != o.Category {
		if h.Category > o.Category {
			return 1
		}
		return -1
	}
	for i := range h.Kickers {
		if h.Kickers[i] != o.Kickers[i] {
			if h.Kickers[i] > o.Kickers[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

func (h HandStrength) BetterThan(o HandStrength) bool { return h.Compare(o) > 0 }

func (h HandStrength) String() string {
	return fmt.Sprintf("%s%v", h.Category, h.Kickers)
}

// Evaluator ranks exactly seven cards.
type Evaluator interface {
	Name() string
	Evaluate(cards [7]Card) HandStrength
}

// DefaultEvaluator is used by the engine at showdown.
var DefaultEvaluator Evaluator = BitmaskEvaluator{}

// EvaluateHand ranks two hole cards with a five-card board.
func EvaluateHand(hole [2]Card, board [5]Card) HandStrength {
	return DefaultEvaluator.Evaluate(SevenCards(hole, board))
}

// SevenCards joins hole and board into one hand.
func SevenCards(hole [2]Card, board [5]Card) [7]Card {
	return [7]Card{hole[0], hole[1], board[0], board[1], board[2], board[3], board[4]}
}

// ReferenceEvaluator scores all 21 five-card subsets with a rank-count table
// and keeps the best. It is slow and obvious, which is the point.
type ReferenceEvaluator struct{}

func (ReferenceEvaluator) Name() string { return "reference" }

func (ReferenceEvaluator) Evaluate(cards [7]Card) HandStrength {
	var best HandStrength
	first := true
	for a := 0; a < 7; a++ {
		for b := a + 1; b < 7; b++ {
			for c := b + 1; c < 7; c++ {
				for d := c + 1; d < 7; d++ {
					for e := d + 1; e < 7; e++ {
						h := eval5([5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]})
						if first || h.BetterThan(best) {
							best = h
							first = false
						}
					}
				}
			}
		}
	}
	return best
}

type rankCount struct {
	rank  uint8
	count int
}

func eval5(cards [5]Card) HandStrength {
	var counts [15]int
	ranks := make([]int, 0, 5)
	flush := true
	for i, c := range cards {
		counts[c.Rank]++
		ranks = append(ranks, int(c.Rank))
		if i > 0 && c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	high, straight := straightHigh5(counts)

	if flush && straight {
		return HandStrength{Category: StraightFlush, Kickers: [5]uint8{high}}
	}

	groups := make([]rankCount, 0, 5)
	for r := int(Ace); r >= int(Two); r-- {
		if counts[r] > 0 {
			groups = append(groups, rankCount{rank: uint8(r), count: counts[r]})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})

	var k [5]uint8
	switch {
	case groups[0].count == 4:
		k[0], k[1] = groups[0].rank, groups[1].rank
		return HandStrength{Category: FourOfAKind, Kickers: k}
	case groups[0].count == 3 && groups[1].count == 2:
		k[0], k[1] = groups[0].rank, groups[1].rank
		return HandStrength{Category: FullHouse, Kickers: k}
	case flush:
		for i, r := range ranks {
			k[i] = uint8(r)
		}
		return HandStrength{Category: Flush, Kickers: k}
	case straight:
		return HandStrength{Category: Straight, Kickers: [5]uint8{high}}
	case groups[0].count == 3:
		k[0], k[1], k[2] = groups[0].rank, groups[1].rank, groups[2].rank
		return HandStrength{Category: ThreeOfAKind, Kickers: k}
	case groups[0].count == 2 && groups[1].count == 2:
		k[0], k[1], k[2] = groups[0].rank, groups[1].rank, groups[2].rank
		return HandStrength{Category: TwoPair, Kickers: k}
	case groups[0].count == 2:
		for i, g := range groups {
			k[i] = g.rank
		}
		return HandStrength{Category: OnePair, Kickers: k}
	}
	for i, r := range ranks {
		k[i] = uint8(r)
	}
	return HandStrength{Category: HighCard, Kickers: k}
}

// straightHigh5 expects five cards worth of counts.
func straightHigh5(counts [15]int) (uint8, bool) {
	for high := int(Ace); high >= int(Six); high-- {
		ok := true
		for r := high; r > high-5; r-- {
			if counts[r] != 1 {
				ok = false
				break
			}
		}
		if ok {
			return uint8(high), true
		}
	}
	if counts[Ace] == 1 && counts[Two] == 1 && counts[Three] == 1 && counts[Four] == 1 && counts[Five] == 1 {
		return uint8(Five), true
	}
	return 0, false
}
