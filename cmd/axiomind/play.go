package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"axiomind/internal/ai"
	"axiomind/internal/apperr"
	"axiomind/internal/game"
	"axiomind/internal/handlog"
)

var errNotTTY = apperr.New(apperr.ErrInvalidInput, "not_a_tty",
	"play needs an interactive terminal; set AXIOMIND_PLAY_SCRIPTED=1 to read moves from a pipe")

type PlayCmd struct {
	Vs     string  `default:"ai" enum:"ai,human" help:"Opponent kind (ai or human)."`
	AI     string  `name:"ai" default:"baseline" help:"Policy for the ai seat."`
	Hands  int     `default:"1" help:"Hands to play."`
	Seed   *uint64 `help:"Deal seed; random when unset."`
	Level  int     `default:"1" help:"Starting blind level."`
	Output string  `help:"Append played hands to this JSONL file."`
}

func (c *PlayCmd) Run(rc *runContext) error {
	if !rc.cfg.Pipeline.Play.Scripted && !rc.isTTY() {
		return errNotTTY
	}
	if c.Hands < 1 {
		return apperr.New(apperr.ErrInvalidInput, "invalid_hands", "hands must be at least 1")
	}
	var opponent ai.Policy
	if c.Vs == "ai" {
		p, err := ai.Resolve(c.AI)
		if err != nil {
			return err
		}
		opponent = p
	}
	eng, err := game.NewEngine(c.Seed, c.Level)
	if err != nil {
		return err
	}
	var w *handlog.Writer
	if c.Output != "" {
		if w, err = handlog.Create(c.Output, true, false); err != nil {
			return err
		}
		defer w.Close()
	}

	p := &player{rc: rc, in: bufio.NewScanner(rc.stdin), eng: eng, opponent: opponent}
	for n := 1; n <= c.Hands; n++ {
		if err := rc.ctx.Err(); err != nil {
			return apperr.Wrap(apperr.ErrInterrupted, "interrupted", err)
		}
		if err := eng.SetLevel(game.LevelAfter(c.Level, n-1)); err != nil {
			return err
		}
		rec, err := p.hand(n, c.Seed != nil)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(rc.stdout, "input closed")
			return nil
		}
		if err != nil {
			return err
		}
		if w != nil {
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		if busted := bustedSeat(eng); busted >= 0 {
			fmt.Fprintf(rc.stdout, "p%d is out of chips\n", busted)
			return nil
		}
	}
	return nil
}

type player struct {
	rc       *runContext
	in       *bufio.Scanner
	eng      *game.Engine
	opponent ai.Policy
}

func (p *player) hand(n int, seeded bool) (handlog.HandRecord, error) {
	out := p.rc.stdout
	if err := p.eng.DealHand(); err != nil {
		return handlog.HandRecord{}, err
	}
	sb, bb := p.eng.HandBlinds()
	fmt.Fprintf(out, "\nHand %d  level %d  blinds %d/%d  button p%d\n", n, p.eng.Level(), sb, bb, p.eng.Button())
	if p.opponent != nil {
		fmt.Fprintf(out, "p0 holds %s\n", cardList(p.eng.Players()[0].Hole))
	}

	street := game.StreetPreflop
	for !p.eng.IsComplete() {
		if s := p.eng.Street(); s != street {
			street = s
			fmt.Fprintf(out, "%s: %s\n", s, cardList(p.eng.VisibleBoard()))
		}
		seat := p.eng.CurrentPlayer()
		var a game.Action
		if p.opponent != nil && seat == 1 {
			a = ai.Decide(p.eng, p.opponent, seat).Action
		} else {
			var err error
			if a, err = p.prompt(seat); err != nil {
				return handlog.HandRecord{}, err
			}
		}
		if err := p.eng.ApplyAction(seat, a); err != nil {
			fmt.Fprintf(out, "illegal: %v\n", err)
			continue
		}
		hist := p.eng.ActionHistory()
		fmt.Fprintf(out, "p%d: %s\n", seat, hist[len(hist)-1].Action)
	}

	stamp := handlog.ClockStamp(time.Now(), n)
	if seeded {
		stamp = handlog.SeededStamp(n)
	}
	rec, err := handlog.FromEngine(p.eng, stamp)
	if err != nil {
		return rec, err
	}
	fmt.Fprintf(out, "Board: %s\n", cardList(rec.Board))
	if rec.Showdown != nil {
		for _, pl := range rec.Players {
			fmt.Fprintf(out, "%s shows %s\n", pl.ID, cardList(pl.HoleCards))
		}
	}
	if w := rec.Winner(); w == "split" {
		fmt.Fprintln(out, "Result: split pot")
	} else {
		fmt.Fprintf(out, "Result: %s wins %d\n", w, rec.NetResult[w])
	}
	stacks := p.eng.Players()
	fmt.Fprintf(out, "Stacks: p0 %d  p1 %d\n", stacks[0].Stack, stacks[1].Stack)
	return rec, nil
}

// prompt reads moves for seat until one parses. "q" ends the game.
func (p *player) prompt(seat int) (game.Action, error) {
	out := p.rc.stdout
	for {
		v := p.eng.View(seat)
		fmt.Fprintf(out, "p%d (%s) stack %d  to call %d  pot %d > ", seat, cardList(v.Hole), v.Stack, v.ToCall, v.Pot)
		if !p.in.Scan() {
			fmt.Fprintln(out)
			if err := p.in.Err(); err != nil {
				return game.Action{}, apperr.Wrap(apperr.ErrIO, "read_input", err)
			}
			return game.Action{}, io.EOF
		}
		line := strings.TrimSpace(p.in.Text())
		switch line {
		case "":
			continue
		case "q", "quit":
			return game.Action{}, apperr.New(apperr.ErrInterrupted, "quit", "game abandoned")
		}
		a, err := game.ParseAction(line)
		if err != nil {
			fmt.Fprintf(out, "unrecognised move: %v\n", err)
			continue
		}
		return a, nil
	}
}

func bustedSeat(e *game.Engine) int {
	for i, pl := range e.Players() {
		if pl.Stack == 0 {
			return i
		}
	}
	return -1
}

func cardList(cards []game.Card) string {
	if len(cards) == 0 {
		return "-"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
