package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"axiomind/internal/ai"
	"axiomind/internal/apperr"
	"axiomind/internal/pipeline"
	"axiomind/internal/verify"
)

type SimCmd struct {
	Hands  int     `default:"100" help:"Hands to simulate."`
	Output string  `short:"o" help:"Output JSONL file; a .zst suffix compresses."`
	Seed   *uint64 `help:"Match seed; random when unset."`
	Level  int     `default:"1" help:"Starting blind level."`
	Resume string  `help:"Continue the match stored in this file."`
	AIA    string  `name:"ai-a" default:"baseline" help:"Policy for seat p0."`
	AIB    string  `name:"ai-b" default:"baseline" help:"Policy for seat p1."`
}

func (c *SimCmd) Run(rc *runContext) error {
	a, err := ai.Resolve(c.AIA)
	if err != nil {
		return err
	}
	b, err := ai.Resolve(c.AIB)
	if err != nil {
		return err
	}
	res, err := pipeline.Simulate(rc.ctx, pipeline.SimOptions{
		Hands:    c.Hands,
		Seed:     c.Seed,
		Level:    c.Level,
		Output:   c.Output,
		Resume:   c.Resume,
		Policies: [2]ai.Policy{a, b},
		Config:   rc.cfg.Pipeline.Sim,
	})
	if err != nil && !errors.Is(err, apperr.ErrInterrupted) {
		return err
	}
	target := c.Output
	if target == "" {
		target = c.Resume
	}
	fmt.Fprintf(rc.stdout, "Simulated: %d hands -> %s", res.Written, target)
	if res.Skipped > 0 {
		fmt.Fprintf(rc.stdout, " (resumed after %d)", res.Skipped)
	}
	fmt.Fprintln(rc.stdout)
	if res.Busted != "" {
		fmt.Fprintf(rc.stdout, "%s busted\n", res.Busted)
	}
	if res.Violations > 0 {
		fmt.Fprintf(rc.stderr, "policy violations: %d\n", res.Violations)
	}
	return err
}

type StatsCmd struct {
	Input string `required:"" help:"JSONL file or directory of hand histories."`
}

func (c *StatsCmd) Run(rc *runContext) error {
	sum, err := pipeline.Stats(rc.ctx, c.Input)
	if err != nil {
		return err
	}
	if sum.Corrupted > 0 || sum.TornTail > 0 {
		fmt.Fprintf(rc.stderr, "skipped %d corrupted records and %d torn tails\n", sum.Corrupted, sum.TornTail)
	}
	return printJSON(rc, sum)
}

type VerifyCmd struct {
	Input string `required:"" help:"Hand history to check."`
}

func (c *VerifyCmd) Run(rc *runContext) error {
	rep, err := verify.File(rc.ctx, c.Input)
	if err != nil {
		return err
	}
	if rep.OK() {
		fmt.Fprintf(rc.stdout, "Verify: OK (hands=%d)\n", rep.Hands)
		return nil
	}
	fmt.Fprintf(rc.stdout, "Verify: FAIL (hands=%d)\n", rep.Hands)
	for _, issue := range rep.Issues {
		fmt.Fprintln(rc.stderr, issue.String())
	}
	return rep.Err()
}

type ReplayCmd struct {
	Input string  `required:"" help:"Hand history to replay."`
	Speed float64 `default:"1" help:"Playback speed; 0 prints without pausing."`
}

func (c *ReplayCmd) Run(rc *runContext) error {
	n, err := pipeline.Replay(rc.ctx, c.Input, rc.stdout, pipeline.ReplayOptions{Speed: c.Speed})
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.stdout, "Replayed: %d hands\n", n)
	return nil
}

type EvalCmd struct {
	AIA     string `name:"ai-a" required:"" help:"First policy."`
	AIB     string `name:"ai-b" required:"" help:"Second policy."`
	Hands   int    `default:"1000" help:"Hands to play."`
	Seed    uint64 `default:"0" help:"Base seed."`
	Level   int    `default:"1" help:"Blind level."`
	Workers int    `default:"0" help:"Parallel workers; 0 uses every CPU."`
	JSON    bool   `name:"json" help:"Print the summary as JSON."`
}

func (c *EvalCmd) Run(rc *runContext) error {
	a, err := ai.Resolve(c.AIA)
	if err != nil {
		return err
	}
	b, err := ai.Resolve(c.AIB)
	if err != nil {
		return err
	}
	sum, err := pipeline.Eval(rc.ctx, pipeline.EvalOptions{
		A: a, B: b, Hands: c.Hands, Seed: c.Seed, Level: c.Level, Workers: c.Workers,
	})
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(rc, sum)
	}
	fmt.Fprintf(rc.stdout, "Eval: %d hands, seed %d, level %d\n", sum.Hands, sum.Seed, sum.Level)
	for _, s := range []pipeline.PolicyStats{sum.A, sum.B} {
		fmt.Fprintf(rc.stdout, "  %-10s wins %d  losses %d  ties %d  chips %+d  violations %d\n",
			s.Name, s.Wins, s.Losses, s.Ties, s.ChipDelta, s.Violations)
	}
	return nil
}

type ExportCmd struct {
	Input  string `required:"" help:"Hand history to convert."`
	Format string `required:"" enum:"csv,json,sqlite" help:"Target format (csv, json, sqlite)."`
	Output string `required:"" short:"o" help:"Output file."`
}

func (c *ExportCmd) Run(rc *runContext) error {
	format, err := pipeline.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	n, err := pipeline.Export(rc.ctx, c.Input, format, c.Output, rc.cfg.Pipeline.SQLite)
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.stdout, "Exported: %d hands -> %s (%s)\n", n, c.Output, format)
	return nil
}

type DatasetCmd struct {
	Input  string  `required:"" help:"Hand history to split."`
	Outdir string  `required:"" help:"Directory for train/val/test files."`
	Train  float64 `default:"0.8" help:"Train share (values above 1 are percentages)."`
	Val    float64 `default:"0.1" help:"Validation share."`
	Test   float64 `default:"0.1" help:"Test share."`
	Seed   uint64  `default:"0" help:"Shuffle seed."`
}

func (c *DatasetCmd) Run(rc *runContext) error {
	res, err := pipeline.Split(rc.ctx, c.Input, c.Outdir,
		pipeline.Splits{Train: c.Train, Val: c.Val, Test: c.Test}, c.Seed, rc.cfg.Pipeline.Dataset)
	if err != nil {
		return err
	}
	mode := "in-memory"
	if res.Streaming {
		mode = "streaming"
	}
	fmt.Fprintf(rc.stdout, "Dataset: %d records -> train %d, val %d, test %d (%s) in %s\n",
		res.Records, res.Train, res.Val, res.Test, mode, res.OutDir)
	return nil
}

func printJSON(rc *runContext, v any) error {
	enc := json.NewEncoder(rc.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return apperr.Wrap(apperr.ErrIO, "write_output", err)
	}
	return nil
}
