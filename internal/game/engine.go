package game

import (
	mrand "math/rand/v2"
)

// Engine runs heads-up hands one at a time. It is not safe for concurrent
// use; callers serialise access.
type Engine struct {
	seed   uint64
	seeded bool
	rng    *mrand.Rand
	eval   Evaluator

	level  int
	sb, bb int64

	deck    *Deck
	players [2]Player
	board   []Card
	shown   int
	burns   []int
	dealSeq []int

	street        Street
	pot           int64
	currentBet    int64
	lastFullRaise int64
	committed     [2]int64
	contributed   [2]int64
	acted         [2]bool
	raiseLocked   [2]bool

	button      int
	nextButton  int
	toAct       int
	history     []ActionRecord
	folded      int
	dealt       bool
	complete    bool
	handsDealt  int
	startStacks [2]int64
	result      *HandResult
}

// NewEngine builds an engine for level. A nil seed draws one from the OS.
func NewEngine(seed *uint64, level int) (*Engine, error) {
	if _, _, err := Blinds(level); err != nil {
		return nil, err
	}
	s, seeded := RandomSeed(), false
	if seed != nil {
		s, seeded = *seed, true
	}
	e := &Engine{
		seed:   s,
		seeded: seeded,
		rng:    NewRand(s),
		eval:   DefaultEvaluator,
		level:  level,
		deck:   NewDeck(),
		folded: -1,
	}
	e.sb, e.bb, _ = Blinds(level)
	e.players[0] = Player{ID: "p0", Stack: DefaultStartingStack}
	e.players[1] = Player{ID: "p1", Stack: DefaultStartingStack}
	return e, nil
}

func (e *Engine) Seed() (uint64, bool) { return e.seed, e.seeded }

func (e *Engine) Level() int { return e.level }

// SetLevel changes the blind level used from the next deal on.
func (e *Engine) SetLevel(level int) error {
	if _, _, err := Blinds(level); err != nil {
		return err
	}
	e.level = level
	return nil
}

func (e *Engine) SetEvaluator(ev Evaluator) { e.eval = ev }

// SetStacks replaces both stacks between hands.
func (e *Engine) SetStacks(stacks [2]int64) error {
	if e.inHand() {
		return ErrHandInProgress
	}
	for i, s := range stacks {
		if s < 0 {
			return illegal("negative stack %d for seat %d", s, i)
		}
		e.players[i].Stack = s
	}
	return nil
}

// SetButton picks the seat holding the button on the next deal.
func (e *Engine) SetButton(seat int) {
	e.nextButton = seat & 1
}

// Shuffle reorders the deck from the engine's seeded stream.
func (e *Engine) Shuffle() {
	e.deck.Shuffle(e.rng)
}

// DealHand starts a new hand: rotates the button, shuffles, deals hole cards
// starting from the small blind, and posts blinds.
func (e *Engine) DealHand() error {
	if e.inHand() {
		return ErrHandInProgress
	}
	for i := range e.players {
		if e.players[i].Stack == 0 {
			return ErrPlayerBusted
		}
	}
	e.sb, e.bb, _ = Blinds(e.level)
	e.button = e.nextButton
	e.nextButton = 1 - e.button
	e.resetHand()

	e.players[e.button].Position = PositionButton
	e.players[1-e.button].Position = PositionBigBlind
	e.Shuffle()

	order := [2]int{e.button, 1 - e.button}
	for round := 0; round < 2; round++ {
		for _, seat := range order {
			c, err := e.deck.DealOne()
			if err != nil {
				return err
			}
			e.players[seat].Hole = append(e.players[seat].Hole, c)
			e.dealSeq = append(e.dealSeq, seat)
		}
	}

	e.post(e.button, e.sb)
	e.post(1-e.button, e.bb)
	e.currentBet = max(e.committed[0], e.committed[1])
	e.lastFullRaise = e.bb
	e.toAct = e.button
	e.dealt = true
	e.handsDealt++

	if e.roundClosed() {
		return e.closeRound()
	}
	return nil
}

func (e *Engine) resetHand() {
	for i := range e.players {
		e.startStacks[i] = e.players[i].Stack
		e.players[i].Hole = make([]Card, 0, 2)
		e.players[i].Folded = false
	}
	e.board = make([]Card, 0, 5)
	e.shown = 0
	e.burns = e.burns[:0]
	e.dealSeq = e.dealSeq[:0]
	e.street = StreetPreflop
	e.pot = 0
	e.currentBet = 0
	e.committed = [2]int64{}
	e.contributed = [2]int64{}
	e.acted = [2]bool{}
	e.raiseLocked = [2]bool{}
	e.history = nil
	e.folded = -1
	e.complete = false
	e.result = nil
}

func (e *Engine) post(seat int, blind int64) {
	e.commit(seat, min(blind, e.players[seat].Stack))
}

func (e *Engine) commit(seat int, amount int64) {
	if amount <= 0 {
		return
	}
	e.players[seat].Stack -= amount
	e.committed[seat] += amount
	e.contributed[seat] += amount
	e.pot += amount
}

// ApplyAction validates and applies a for seat. On error the state is
// unchanged.
func (e *Engine) ApplyAction(seat int, a Action) error {
	if err := e.ValidateAction(seat, a); err != nil {
		return err
	}
	p := &e.players[seat]
	recorded := a
	switch a.Kind {
	case ActionFold:
		p.Folded = true
		e.folded = seat
	case ActionCheck:
	case ActionCall:
		e.commit(seat, min(p.Stack, e.ToCall(seat)))
		recorded = Call()
	case ActionBet:
		e.commit(seat, a.Amount)
		e.currentBet = e.committed[seat]
		e.lastFullRaise = a.Amount
		e.reopen(seat)
	case ActionRaise:
		target := e.currentBet + a.Amount
		e.commit(seat, target-e.committed[seat])
		e.currentBet = target
		e.lastFullRaise = a.Amount
		e.reopen(seat)
	case ActionAllIn:
		amount := p.Stack
		newCommit := e.committed[seat] + amount
		if newCommit > e.currentBet {
			increment := newCommit - e.currentBet
			if increment >= e.lastFullRaise {
				e.lastFullRaise = increment
				e.reopen(seat)
			} else {
				e.blockReopen(seat, e.currentBet)
			}
			e.currentBet = newCommit
		}
		e.commit(seat, amount)
		recorded = Action{Kind: ActionAllIn, Amount: amount}
	}
	e.acted[seat] = true
	e.history = append(e.history, ActionRecord{Seat: seat, Street: e.street, Action: recorded})
	return e.advance(seat)
}

// reopen gives every other seat a fresh decision after a full bet or raise.
func (e *Engine) reopen(seat int) {
	for q := range e.players {
		e.raiseLocked[q] = false
		if q != seat {
			e.acted[q] = false
		}
	}
}

// blockReopen bars seats that had already acted and matched prevBet from
// raising again this street.
func (e *Engine) blockReopen(seat int, prevBet int64) {
	for q := range e.players {
		if q != seat && e.acted[q] && e.committed[q] == prevBet {
			e.raiseLocked[q] = true
		}
	}
}

func (e *Engine) advance(seat int) error {
	if e.folded >= 0 {
		return e.finish()
	}
	if !e.roundClosed() {
		e.toAct = 1 - seat
		if !e.canAct(e.toAct) {
			e.toAct = seat
		}
		return nil
	}
	return e.closeRound()
}

func (e *Engine) canAct(seat int) bool {
	p := &e.players[seat]
	return !p.Folded && p.Stack > 0
}

func (e *Engine) roundClosed() bool {
	able, last := 0, 0
	for q := range e.players {
		if e.canAct(q) {
			able++
			last = q
		}
	}
	switch able {
	case 0:
		return true
	case 1:
		return e.committed[last] >= e.committed[1-last]
	}
	return e.acted[0] && e.acted[1] &&
		e.committed[0] == e.currentBet && e.committed[1] == e.currentBet
}

func (e *Engine) closeRound() error {
	e.returnUncalled()
	for {
		if e.street == StreetRiver {
			return e.finish()
		}
		if err := e.nextStreet(); err != nil {
			return err
		}
		if e.canAct(0) && e.canAct(1) {
			e.toAct = 1 - e.button
			return nil
		}
	}
}

// returnUncalled hands back the part of a commitment the all-in opponent
// could not match.
func (e *Engine) returnUncalled() {
	for q := range e.players {
		other := 1 - q
		if e.players[other].Folded {
			continue
		}
		excess := UncalledExcess(e.committed[q], e.committed[other])
		if excess == 0 {
			continue
		}
		e.players[q].Stack += excess
		e.committed[q] -= excess
		e.contributed[q] -= excess
		e.pot -= excess
	}
}

func (e *Engine) nextStreet() error {
	e.committed = [2]int64{}
	e.acted = [2]bool{}
	e.raiseLocked = [2]bool{}
	e.currentBet = 0
	e.lastFullRaise = e.bb
	e.street++
	return e.dealStreet(e.street)
}

// dealStreet burns one card and turns the community cards for street.
func (e *Engine) dealStreet(street Street) error {
	if _, err := e.deck.DealOne(); err != nil {
		return err
	}
	e.burns = append(e.burns, e.deck.Dealt())
	n := 1
	if street == StreetFlop {
		n = 3
	}
	for i := 0; i < n; i++ {
		c, err := e.deck.DealOne()
		if err != nil {
			return err
		}
		e.board = append(e.board, c)
	}
	return nil
}

// runOut completes the board after an early finish so the record always
// carries five community cards dealt with the usual burns.
func (e *Engine) runOut() error {
	for len(e.board) < 5 {
		next := StreetTurn
		if len(e.board) == 0 {
			next = StreetFlop
		}
		if err := e.dealStreet(next); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) finish() error {
	e.shown = len(e.board)
	if err := e.runOut(); err != nil {
		return err
	}
	res := HandResult{Pot: e.pot}
	if e.folded >= 0 {
		w := 1 - e.folded
		res.Winners = []int{w}
		res.Payouts[w] = e.pot
	} else {
		res.Showdown = true
		board := [5]Card(e.board)
		for q := range e.players {
			res.Strengths[q] = e.eval.Evaluate(SevenCards([2]Card(e.players[q].Hole), board))
		}
		switch cmp := res.Strengths[0].Compare(res.Strengths[1]); {
		case cmp > 0:
			res.Winners = []int{0}
			res.Payouts[0] = e.pot
		case cmp < 0:
			res.Winners = []int{1}
			res.Payouts[1] = e.pot
		default:
			res.Winners = []int{0, 1}
			res.Payouts = SplitPot(e.pot, 1-e.button)
		}
	}
	for q := range e.players {
		e.players[q].Stack += res.Payouts[q]
		res.Net[q] = e.players[q].Stack - e.startStacks[q]
	}
	e.pot = 0
	e.street = StreetComplete
	e.complete = true
	e.result = &res
	return nil
}

func (e *Engine) inHand() bool { return e.dealt && !e.complete }

func (e *Engine) IsComplete() bool { return e.complete }

// CurrentPlayer returns the seat to act, or -1 when no decision is pending.
func (e *Engine) CurrentPlayer() int {
	if !e.inHand() {
		return -1
	}
	return e.toAct
}

func (e *Engine) Street() Street { return e.street }

func (e *Engine) Pot() int64 { return e.pot }

func (e *Engine) CurrentBet() int64 { return e.currentBet }

func (e *Engine) Button() int { return e.button }

// HandBlinds returns the blinds in force for the current hand.
func (e *Engine) HandBlinds() (sb, bb int64) { return e.sb, e.bb }

func (e *Engine) Board() []Card {
	out := make([]Card, len(e.board))
	copy(out, e.board)
	return out
}

// VisibleBoard is the part of the board players actually saw. After a fold
// the cards run out for the record stay hidden.
func (e *Engine) VisibleBoard() []Card {
	n := len(e.board)
	if e.complete {
		n = e.shown
	}
	out := make([]Card, n)
	copy(out, e.board[:n])
	return out
}

func (e *Engine) Players() [2]Player {
	out := e.players
	for i := range out {
		out[i].Hole = append([]Card(nil), e.players[i].Hole...)
	}
	return out
}

// ToCall is the chips seat must add to match the current bet.
func (e *Engine) ToCall(seat int) int64 {
	if d := e.currentBet - e.committed[seat]; d > 0 {
		return d
	}
	return 0
}

// MinRaise is the smallest legal raise increment, or the minimum opening bet
// when nothing has been bet on this street.
func (e *Engine) MinRaise() int64 {
	if e.currentBet == 0 {
		return MinBet(e.bb)
	}
	return e.lastFullRaise
}

func (e *Engine) ActionHistory() []ActionRecord {
	return append([]ActionRecord(nil), e.history...)
}

func (e *Engine) ReachedShowdown() bool { return e.result != nil && e.result.Showdown }

// FoldedPlayer reports the seat that folded this hand, if any.
func (e *Engine) FoldedPlayer() (int, bool) {
	return e.folded, e.folded >= 0
}

func (e *Engine) Result() (HandResult, bool) {
	if e.result == nil {
		return HandResult{}, false
	}
	r := *e.result
	r.Winners = append([]int(nil), e.result.Winners...)
	return r, true
}

func (e *Engine) HandsDealt() int { return e.handsDealt }

// BurnPositions are the 1-based deal positions burned this hand.
func (e *Engine) BurnPositions() []int { return append([]int(nil), e.burns...) }

// DealSequence lists the seat receiving each hole card in deal order.
func (e *Engine) DealSequence() []int { return append([]int(nil), e.dealSeq...) }

func (e *Engine) StartStacks() [2]int64 { return e.startStacks }

// TotalChips is stacks plus pot; constant within a match.
func (e *Engine) TotalChips() int64 {
	return e.players[0].Stack + e.players[1].Stack + e.pot
}

// View builds what a policy deciding for seat may observe.
func (e *Engine) View(seat int) View {
	return View{
		Seat:          seat,
		CurrentPlayer: e.CurrentPlayer(),
		Street:        e.street,
		Board:         e.VisibleBoard(),
		Pot:           e.pot,
		ToCall:        e.ToCall(seat),
		MinRaise:      e.MinRaise(),
		Stack:         e.players[seat].Stack,
		Hole:          append([]Card(nil), e.players[seat].Hole...),
	}
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Level:         e.level,
		Blinds:        BlindLevel{SB: e.sb, BB: e.bb},
		Street:        e.street,
		Button:        e.button,
		CurrentPlayer: e.CurrentPlayer(),
		Pot:           e.pot,
		CurrentBet:    e.currentBet,
		MinRaise:      e.MinRaise(),
		Board:         e.VisibleBoard(),
		Actions:       e.ActionHistory(),
		Complete:      e.complete,
	}
	for q, p := range e.players {
		s.Seats[q] = SeatState{
			Seat:      q,
			ID:        p.ID,
			Stack:     p.Stack,
			Position:  p.Position,
			Committed: e.committed[q],
			Folded:    p.Folded,
			AllIn:     e.dealt && !p.Folded && p.Stack == 0,
			Hole:      append([]Card(nil), p.Hole...),
		}
	}
	if r, ok := e.Result(); ok {
		s.Result = &r
	}
	return s
}
