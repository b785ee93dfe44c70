// Package pipeline implements the batch tools over JSONL hand histories:
// simulation, dataset splitting, export, stats, replay and head-to-head eval.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"axiomind/internal/ai"
	"axiomind/internal/apperr"
	"axiomind/internal/config"
	"axiomind/internal/game"
	"axiomind/internal/handlog"
)

type SimOptions struct {
	Hands  int
	Seed   *uint64
	Level  int
	Output string
	// Resume continues an existing match file instead of truncating Output.
	Resume   string
	Policies [2]ai.Policy
	Config   config.SimConfig
}

type SimResult struct {
	Written    int    `json:"written"`
	Skipped    int    `json:"skipped"`
	Duplicates int    `json:"duplicates"`
	Busted     string `json:"busted,omitempty"`
	Violations int    `json:"violations"`
}

// matchState is what a resumed run needs from the hands already on disk.
type matchState struct {
	played int
	stacks [2]int64
	busted string
	// torn is the length of an unterminated final line left by a crash.
	torn int
	// unterminated is set when the final record decodes but lacks its newline.
	unterminated bool
}

// Simulate plays one match of up to opts.Hands hands. Hand i is dealt by a
// fresh engine seeded with seed+i, stacks carry over and the button
// alternates. The run stops early when a player busts.
func Simulate(ctx context.Context, opts SimOptions) (res SimResult, err error) {
	if opts.Hands < 0 {
		return res, apperr.New(apperr.ErrInvalidInput, "invalid_hands", "hands must not be negative")
	}
	if _, _, err := game.Blinds(opts.Level); err != nil {
		return res, err
	}
	for i, p := range opts.Policies {
		if p == nil {
			return res, fmt.Errorf("seat %d has no policy", i)
		}
	}
	output := opts.Output
	if output == "" {
		output = opts.Resume
	}
	if output == "" {
		return res, apperr.New(apperr.ErrInvalidInput, "missing_output", "an output path is required")
	}

	state := matchState{stacks: [2]int64{game.DefaultStartingStack, game.DefaultStartingStack}}
	if opts.Resume != "" {
		state, res.Duplicates, err = loadMatch(opts.Resume)
		if err != nil {
			return res, err
		}
		res.Skipped = state.played
		if res.Duplicates > 0 {
			log.Warn().Str("path", opts.Resume).Int("duplicates", res.Duplicates).Msg("resume_duplicate_hand_ids")
		}
		if state.busted != "" {
			res.Busted = state.busted
			return res, nil
		}
		if state.torn > 0 && opts.Resume == output {
			if err := dropTornTail(output, state.torn); err != nil {
				return res, err
			}
		}
	}

	base := game.RandomSeed()
	if opts.Seed != nil {
		base = *opts.Seed
	}
	w, err := handlog.Create(output, opts.Resume != "" && opts.Resume == output, opts.Config.Fast)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if state.unterminated && opts.Resume == output {
		log.Warn().Str("path", output).Msg("resume_terminating_last_line")
		if err := w.WriteRaw(nil); err != nil {
			return res, err
		}
	}

	for i := state.played; i < opts.Hands; i++ {
		if err := ctx.Err(); err != nil {
			return res, apperr.Wrap(apperr.ErrInterrupted, "interrupted", err)
		}
		if opts.Config.BreakAfter > 0 && res.Written >= opts.Config.BreakAfter {
			return res, apperr.New(apperr.ErrInterrupted, "interrupted", fmt.Sprintf("stopped after %d hands", res.Written))
		}
		seed := base + uint64(i)
		rec, violations, err := playHand(seed, opts.Level, i%2, state.stacks, opts.Policies)
		if err != nil {
			return res, err
		}
		res.Violations += violations
		if opts.Seed != nil {
			rec = restamp(rec, handlog.SeededStamp(i+1))
		} else {
			rec = restamp(rec, handlog.ClockStamp(time.Now(), i+1))
		}
		if err := w.Write(rec); err != nil {
			return res, err
		}
		if !opts.Config.Fast {
			if err := w.Flush(); err != nil {
				return res, err
			}
		}
		res.Written++
		final := rec.FinalStacks()
		state.stacks = [2]int64{final["p0"], final["p1"]}
		if opts.Config.SleepMicros > 0 {
			time.Sleep(time.Duration(opts.Config.SleepMicros) * time.Microsecond)
		}
		if id := bustedPlayer(state.stacks); id != "" {
			res.Busted = id
			log.Info().Str("player", id).Int("hand", i+1).Msg("sim_player_busted")
			break
		}
	}
	return res, nil
}

func bustedPlayer(stacks [2]int64) string {
	for q, s := range stacks {
		if s <= 0 {
			return fmt.Sprintf("p%d", q)
		}
	}
	return ""
}

// playHand plays one complete hand and returns its record with a seeded stamp.
func playHand(seed uint64, level, button int, stacks [2]int64, policies [2]ai.Policy) (handlog.HandRecord, int, error) {
	e, err := game.NewEngine(&seed, level)
	if err != nil {
		return handlog.HandRecord{}, 0, err
	}
	if err := e.SetStacks(stacks); err != nil {
		return handlog.HandRecord{}, 0, err
	}
	e.SetButton(button)
	if err := e.DealHand(); err != nil {
		return handlog.HandRecord{}, 0, err
	}
	violations := 0
	for !e.IsComplete() {
		seat := e.CurrentPlayer()
		d := ai.Decide(e, policies[seat], seat)
		if d.Violation != nil {
			violations++
		}
		if err := e.ApplyAction(seat, d.Action); err != nil {
			return handlog.HandRecord{}, violations, apperr.Wrap(apperr.ErrInternal, "engine_rejected_fallback", err)
		}
	}
	rec, err := handlog.FromEngine(e, handlog.SeededStamp(1))
	return rec, violations, err
}

func restamp(rec handlog.HandRecord, s handlog.Stamp) handlog.HandRecord {
	rec.HandID = s.HandID
	ts := s.TS
	rec.TS = &ts
	return rec
}

// loadMatch counts the unique hands already written and recovers the stacks
// after the last one.
func loadMatch(path string) (matchState, int, error) {
	state := matchState{stacks: [2]int64{game.DefaultStartingStack, game.DefaultStartingStack}}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return state, 0, nil
	}
	seen := map[string]bool{}
	dups := 0
	err := handlog.Each(path, func(l handlog.Line) error {
		rec, err := handlog.Decode(l.Raw)
		if err != nil {
			if !l.Terminated {
				log.Warn().Str("path", path).Int("line", l.No).Msg("resume_dropping_torn_line")
				state.torn = len(l.Raw)
				return nil
			}
			return fmt.Errorf("%s line %d: %w", path, l.No, err)
		}
		if !l.Terminated {
			state.unterminated = true
		}
		if seen[rec.HandID] {
			dups++
			return nil
		}
		seen[rec.HandID] = true
		final := rec.FinalStacks()
		state.stacks = [2]int64{final["p0"], final["p1"]}
		return nil
	})
	if err != nil {
		return state, dups, err
	}
	state.played = len(seen)
	state.busted = bustedPlayer(state.stacks)
	return state, dups, nil
}

func dropTornTail(path string, n int) error {
	if handlog.IsCompressed(path) {
		return apperr.New(apperr.ErrInvalidInput, "torn_compressed_tail", "cannot resume a compressed file with a torn final record")
	}
	info, err := os.Stat(path)
	if err != nil {
		return apperr.Wrap(apperr.ErrIO, "stat_failed", err)
	}
	if err := os.Truncate(path, info.Size()-int64(n)); err != nil {
		return apperr.Wrap(apperr.ErrIO, "truncate_failed", err)
	}
	return nil
}
