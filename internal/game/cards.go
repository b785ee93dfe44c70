package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Suit uint8

type Rank uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

var rankNames = [...]string{
	Two: "Two", Three: "Three", Four: "Four", Five: "Five", Six: "Six", Seven: "Seven", Eight: "Eight",
	Nine: "Nine", Ten: "Ten", Jack: "Jack", Queen: "Queen", King: "King", Ace: "Ace",
}

var rankSymbols = [...]byte{
	Two: '2', Three: '3', Four: '4', Five: '5', Six: '6', Seven: '7', Eight: '8',
	Nine: '9', Ten: 'T', Jack: 'J', Queen: 'Q', King: 'K', Ace: 'A',
}

var suitNames = [...]string{Clubs: "Clubs", Diamonds: "Diamonds", Hearts: "Hearts", Spades: "Spades"}

var suitSymbols = [...]byte{Clubs: 'c', Diamonds: 'd', Hearts: 'h', Spades: 's'}

func (r Rank) Valid() bool { return r >= Two && r <= Ace }

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", uint8(r))
	}
	return rankNames[r]
}

func (s Suit) Valid() bool { return s <= Spades }

func (s Suit) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Suit(%d)", uint8(s))
	}
	return suitNames[s]
}

type Card struct {
	Rank Rank
	Suit Suit
}

// String renders the short form, e.g. "As" or "Td".
func (c Card) String() string {
	if !c.Rank.Valid() || !c.Suit.Valid() {
		return "??"
	}
	return string([]byte{rankSymbols[c.Rank], suitSymbols[c.Suit]})
}

// Less orders by rank, then suit.
func (c Card) Less(o Card) bool {
	if c.Rank != o.Rank {
		return c.Rank < o.Rank
	}
	return c.Suit < o.Suit
}

// Index maps a card onto 0..51.
func (c Card) Index() int {
	return int(c.Suit)*13 + int(c.Rank-Two)
}

type cardJSON struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Rank.Valid() || !c.Suit.Valid() {
		return nil, fmt.Errorf("invalid card %d/%d", c.Rank, c.Suit)
	}
	return json.Marshal(cardJSON{Rank: rankNames[c.Rank], Suit: suitNames[c.Suit]})
}

func (c *Card) UnmarshalJSON(b []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r, ok := rankByName(raw.Rank)
	if !ok {
		return fmt.Errorf("unknown rank %q", raw.Rank)
	}
	s, ok := suitByName(raw.Suit)
	if !ok {
		return fmt.Errorf("unknown suit %q", raw.Suit)
	}
	*c = Card{Rank: r, Suit: s}
	return nil
}

func rankByName(name string) (Rank, bool) {
	for r := Two; r <= Ace; r++ {
		if rankNames[r] == name {
			return r, true
		}
	}
	return 0, false
}

func suitByName(name string) (Suit, bool) {
	for s := Clubs; s <= Spades; s++ {
		if suitNames[s] == name {
			return s, true
		}
	}
	return 0, false
}

// ParseCard accepts the short form ("As", "td", "10h").
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "10") {
		s = "T" + s[2:]
	}
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	var card Card
	rs := strings.ToUpper(s[:1])[0]
	found := false
	for r := Two; r <= Ace; r++ {
		if rankSymbols[r] == rs {
			card.Rank = r
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid rank in %q", s)
	}
	ss := strings.ToLower(s[1:])[0]
	found = false
	for su := Clubs; su <= Spades; su++ {
		if suitSymbols[su] == ss {
			card.Suit = su
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid suit in %q", s)
	}
	return card, nil
}

// MustParseCards parses space separated short-form cards and panics on error.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

// FullDeck returns the 52 cards in canonical order.
func FullDeck() []Card {
	cards := make([]Card, 0, 52)
	for s := Clubs; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}
