package game

import "math/bits"

// BitmaskEvaluator works on per-rank counts and per-suit rank masks in a
// single pass over the seven cards.
type BitmaskEvaluator struct{}

func (BitmaskEvaluator) Name() string { return "bitmask" }

func (BitmaskEvaluator) Evaluate(cards [7]Card) HandStrength {
	var counts [15]uint8
	var suitMask [4]uint16
	var all uint16
	for _, c := range cards {
		counts[c.Rank]++
		suitMask[c.Suit] |= 1 << c.Rank
		all |= 1 << c.Rank
	}

	flushSuit := -1
	for s, m := range suitMask {
		if bits.OnesCount16(m) >= 5 {
			flushSuit = s
			break
		}
	}
	if flushSuit >= 0 {
		if high := straightHighMask(suitMask[flushSuit]); high > 0 {
			return HandStrength{Category: StraightFlush, Kickers: [5]uint8{high}}
		}
	}

	var quad, trip, trip2, pair, pair2 uint8
	for r := Ace; r >= Two; r-- {
		switch counts[r] {
		case 4:
			quad = uint8(r)
		case 3:
			if trip == 0 {
				trip = uint8(r)
			} else if trip2 == 0 {
				trip2 = uint8(r)
			}
		case 2:
			if pair == 0 {
				pair = uint8(r)
			} else if pair2 == 0 {
				pair2 = uint8(r)
			}
		}
	}

	if quad > 0 {
		return HandStrength{Category: FourOfAKind, Kickers: [5]uint8{quad, topRanks(all, 1, quad)[0]}}
	}
	if trip > 0 {
		second := pair
		if trip2 > second {
			second = trip2
		}
		if second > 0 {
			return HandStrength{Category: FullHouse, Kickers: [5]uint8{trip, second}}
		}
	}
	if flushSuit >= 0 {
		var k [5]uint8
		copy(k[:], topRanks(suitMask[flushSuit], 5))
		return HandStrength{Category: Flush, Kickers: k}
	}
	if high := straightHighMask(all); high > 0 {
		return HandStrength{Category: Straight, Kickers: [5]uint8{high}}
	}
	if trip > 0 {
		ks := topRanks(all, 2, trip)
		return HandStrength{Category: ThreeOfAKind, Kickers: [5]uint8{trip, ks[0], ks[1]}}
	}
	if pair > 0 && pair2 > 0 {
		ks := topRanks(all, 1, pair, pair2)
		return HandStrength{Category: TwoPair, Kickers: [5]uint8{pair, pair2, ks[0]}}
	}
	if pair > 0 {
		ks := topRanks(all, 3, pair)
		return HandStrength{Category: OnePair, Kickers: [5]uint8{pair, ks[0], ks[1], ks[2]}}
	}
	var k [5]uint8
	copy(k[:], topRanks(all, 5))
	return HandStrength{Category: HighCard, Kickers: k}
}

// straightHighMask slides a five-rank window from the top of mask. The ace is
// mirrored to bit 1 so the wheel reports a high card of five.
func straightHighMask(mask uint16) uint8 {
	if mask&(1<<Ace) != 0 {
		mask |= 1 << 1
	}
	for high := uint(Ace); high >= uint(Five); high-- {
		window := uint16(0x1f) << (high - 4)
		if mask&window == window {
			return uint8(high)
		}
	}
	return 0
}

// topRanks returns the n highest ranks present in mask, skipping excluded ones.
// The result is always n long, zero padded.
func topRanks(mask uint16, n int, exclude ...uint8) []uint8 {
	for _, e := range exclude {
		mask &^= 1 << e
	}
	out := make([]uint8, n)
	i := 0
	for r := Ace; r >= Two && i < n; r-- {
		if mask&(1<<r) != 0 {
			out[i] = uint8(r)
			i++
		}
	}
	return out
}
