package game

import (
	mrand "math/rand/v2"

	"axiomind/internal/apperr"
)

var ErrDeckExhausted = apperr.New(apperr.ErrInternal, "deck_exhausted", "deck exhausted")

// Deck is an ordered 52-card deck. Dealing walks forward from the top; cards
// are never removed so the deal position stays observable.
type Deck struct {
	cards [52]Card
	next  int
}

func NewDeck() *Deck {
	d := &Deck{}
	copy(d.cards[:], FullDeck())
	return d
}

// Shuffle restores canonical order and permutes it with rng.
func (d *Deck) Shuffle(rng *mrand.Rand) {
	copy(d.cards[:], FullDeck())
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	d.next = 0
}

// ShuffleSeed shuffles with a fresh generator for seed.
func (d *Deck) ShuffleSeed(seed uint64) {
	d.Shuffle(NewRand(seed))
}

func (d *Deck) DealOne() (Card, error) {
	if d.next >= len(d.cards) {
		return Card{}, ErrDeckExhausted
	}
	c := d.cards[d.next]
	d.next++
	return c, nil
}

func (d *Deck) Remaining() int { return len(d.cards) - d.next }

// Dealt reports how many cards have left the deck, burns included.
func (d *Deck) Dealt() int { return d.next }

// Cards returns the current order, dealt cards included.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards[:])
	return out
}
