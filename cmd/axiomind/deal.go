package main

import (
	"fmt"

	"axiomind/internal/ai"
	"axiomind/internal/game"
	"axiomind/internal/handlog"
)

// DealCmd deals one hand and checks it down so the whole board is shown.
type DealCmd struct {
	Seed  *uint64 `help:"Deal seed; random when unset."`
	Level int     `default:"1" help:"Blind level."`
	JSON  bool    `name:"json" help:"Print the hand record instead of a summary."`
}

func (c *DealCmd) Run(rc *runContext) error {
	eng, err := game.NewEngine(c.Seed, c.Level)
	if err != nil {
		return err
	}
	if err := eng.DealHand(); err != nil {
		return err
	}
	var passive ai.Calling
	for !eng.IsComplete() {
		seat := eng.CurrentPlayer()
		if err := eng.ApplyAction(seat, ai.Decide(eng, passive, seat).Action); err != nil {
			return err
		}
	}
	rec, err := handlog.FromEngine(eng, handlog.SeededStamp(1))
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(rc, rec)
	}

	seed, _ := eng.Seed()
	res, _ := eng.Result()
	fmt.Fprintf(rc.stdout, "Seed: %d\n", seed)
	fmt.Fprintf(rc.stdout, "Button: p%d\n", eng.Button())
	for i, pl := range eng.Players() {
		fmt.Fprintf(rc.stdout, "p%d: %s  (%s)\n", i, cardList(pl.Hole), res.Strengths[i])
	}
	fmt.Fprintf(rc.stdout, "Board: %s\n", cardList(rec.Board))
	fmt.Fprintf(rc.stdout, "Result: %s\n", rec.Winner())
	return nil
}
