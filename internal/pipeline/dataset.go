package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"axiomind/internal/apperr"
	"axiomind/internal/config"
	"axiomind/internal/game"
	"axiomind/internal/handlog"
)

// Splits are the train/val/test fractions.
type Splits struct {
	Train float64 `json:"train"`
	Val   float64 `json:"val"`
	Test  float64 `json:"test"`
}

// NormalizeSplits reads values above 1 as percentages and checks the result
// sums to one.
func NormalizeSplits(s Splits) (Splits, error) {
	vals := []*float64{&s.Train, &s.Val, &s.Test}
	for _, v := range vals {
		if *v < 0 || math.IsNaN(*v) {
			return s, apperr.New(apperr.ErrInvalidInput, "invalid_splits", "split values must not be negative")
		}
		if *v > 1 {
			*v /= 100
		}
	}
	if sum := s.Train + s.Val + s.Test; math.Abs(sum-1) > 1e-6 {
		return s, apperr.New(apperr.ErrInvalidInput, "invalid_splits", fmt.Sprintf("splits must sum to 1, got %g", sum))
	}
	return s, nil
}

// Sizes returns how many of n records each split receives.
func (s Splits) Sizes(n int) [3]int {
	train := int(math.Floor(float64(n) * s.Train))
	val := int(math.Floor(float64(n) * s.Val))
	if train+val > n {
		val = n - train
	}
	return [3]int{train, val, n - train - val}
}

var splitNames = [3]string{"train", "val", "test"}

type SplitResult struct {
	Records   int    `json:"records"`
	Train     int    `json:"train"`
	Val       int    `json:"val"`
	Test      int    `json:"test"`
	Streaming bool   `json:"streaming"`
	OutDir    string `json:"outdir"`
}

// assignSplits maps every record index to a split. The index array is
// shuffled with the seeded stream and cut at the split sizes.
func assignSplits(n int, s Splits, seed uint64) []uint8 {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := game.NewRand(seed)
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	sizes := s.Sizes(n)
	out := make([]uint8, n)
	pos := 0
	for bucket, size := range sizes {
		for _, i := range idx[pos : pos+size] {
			out[i] = uint8(bucket)
		}
		pos += size
	}
	return out
}

// Split partitions input into outdir/{train,val,test}.jsonl. Inputs below
// cfg.StreamThreshold records are held in memory; larger ones take two
// streaming passes. Both paths write identical files.
func Split(ctx context.Context, input, outdir string, splits Splits, seed uint64, cfg config.DatasetConfig) (SplitResult, error) {
	splits, err := NormalizeSplits(splits)
	if err != nil {
		return SplitResult{}, err
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return SplitResult{}, apperr.Wrap(apperr.ErrIO, "mkdir_failed", err)
	}
	n, err := countValid(ctx, input)
	if err != nil {
		return SplitResult{}, err
	}
	threshold := cfg.StreamThreshold
	if threshold <= 0 {
		threshold = 10000
	}
	res := SplitResult{Records: n, Streaming: n >= threshold, OutDir: outdir}
	assign := assignSplits(n, splits, seed)
	if res.Streaming {
		err = splitStreaming(ctx, input, outdir, assign, cfg.StreamTrace)
	} else {
		err = splitInMemory(ctx, input, outdir, assign)
	}
	if err != nil {
		return res, err
	}
	sizes := splits.Sizes(n)
	res.Train, res.Val, res.Test = sizes[0], sizes[1], sizes[2]
	return res, nil
}

// countValid is the first pass: every record must decode and validate.
func countValid(ctx context.Context, input string) (int, error) {
	n := 0
	err := handlog.Each(input, func(l handlog.Line) error {
		if err := ctx.Err(); err != nil {
			return apperr.Wrap(apperr.ErrInterrupted, "interrupted", err)
		}
		if _, err := decodeValid(l); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func decodeValid(l handlog.Line) (handlog.HandRecord, error) {
	rec, err := handlog.Decode(l.Raw)
	if err == nil {
		err = rec.Validate()
	}
	if err != nil {
		return rec, fmt.Errorf("line %d: %w", l.No, err)
	}
	return rec, nil
}

type splitWriters [3]*handlog.Writer

func openSplitWriters(outdir string) (splitWriters, error) {
	var ws splitWriters
	for i, name := range splitNames {
		w, err := handlog.Create(filepath.Join(outdir, name+".jsonl"), false, true)
		if err != nil {
			ws.close()
			return ws, err
		}
		ws[i] = w
	}
	return ws, nil
}

func (ws splitWriters) close() error {
	var first error
	for _, w := range ws {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func splitInMemory(ctx context.Context, input, outdir string, assign []uint8) error {
	var lines [][]byte
	err := handlog.Each(input, func(l handlog.Line) error {
		lines = append(lines, append([]byte(nil), l.Raw...))
		return nil
	})
	if err != nil {
		return err
	}
	if len(lines) != len(assign) {
		return apperr.New(apperr.ErrIO, "input_changed", "input changed between passes")
	}
	ws, err := openSplitWriters(outdir)
	if err != nil {
		return err
	}
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			ws.close()
			return apperr.Wrap(apperr.ErrInterrupted, "interrupted", err)
		}
		if err := ws[assign[i]].WriteRaw(line); err != nil {
			ws.close()
			return err
		}
	}
	return ws.close()
}

func splitStreaming(ctx context.Context, input, outdir string, assign []uint8, trace bool) error {
	ws, err := openSplitWriters(outdir)
	if err != nil {
		return err
	}
	i := 0
	err = handlog.Each(input, func(l handlog.Line) error {
		if err := ctx.Err(); err != nil {
			return apperr.Wrap(apperr.ErrInterrupted, "interrupted", err)
		}
		if i >= len(assign) {
			return apperr.New(apperr.ErrIO, "input_changed", "input changed between passes")
		}
		bucket := assign[i]
		if trace {
			log.Debug().Int("record", i).Int("line", l.No).Str("split", splitNames[bucket]).Msg("dataset_route")
		}
		i++
		return ws[bucket].WriteRaw(l.Raw)
	})
	if cerr := ws.close(); err == nil {
		err = cerr
	}
	if err == nil && i != len(assign) {
		err = apperr.New(apperr.ErrIO, "input_changed", "input changed between passes")
	}
	if trace {
		log.Info().Str("input", input).Int("records", i).Msg("dataset_stream_done")
	}
	return err
}
