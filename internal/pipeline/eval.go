package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"axiomind/internal/ai"
	"axiomind/internal/apperr"
	"axiomind/internal/game"
)

type EvalOptions struct {
	A, B    ai.Policy
	Hands   int
	Seed    uint64
	Level   int
	Workers int
}

type PolicyStats struct {
	Name       string         `json:"name"`
	Wins       int            `json:"wins"`
	Losses     int            `json:"losses"`
	Ties       int            `json:"ties"`
	ChipDelta  int64          `json:"chip_delta"`
	Actions    map[string]int `json:"actions"`
	Violations int            `json:"violations"`
}

type EvalSummary struct {
	Hands int         `json:"hands"`
	Seed  uint64      `json:"seed"`
	Level int         `json:"level"`
	A     PolicyStats `json:"a"`
	B     PolicyStats `json:"b"`
}

type handOutcome struct {
	net        [2]int64 // indexed A, B
	actions    [2]map[string]int
	violations [2]int
}

// Eval plays opts.Hands independent hands at full stacks. Policy A holds the
// button on even hands and B on odd ones. Hands run in parallel but results
// are folded in hand order, so the summary depends only on the options.
func Eval(ctx context.Context, opts EvalOptions) (EvalSummary, error) {
	if opts.A == nil || opts.B == nil {
		return EvalSummary{}, apperr.New(apperr.ErrInvalidInput, "missing_policy", "both policies are required")
	}
	if _, _, err := game.Blinds(opts.Level); err != nil {
		return EvalSummary{}, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	outcomes := make([]handOutcome, opts.Hands)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < opts.Hands; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return apperr.Wrap(apperr.ErrInterrupted, "interrupted", err)
			}
			o, err := evalHand(opts, i)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return EvalSummary{}, err
	}

	sum := EvalSummary{
		Hands: opts.Hands,
		Seed:  opts.Seed,
		Level: opts.Level,
		A:     PolicyStats{Name: opts.A.Name(), Actions: map[string]int{}},
		B:     PolicyStats{Name: opts.B.Name(), Actions: map[string]int{}},
	}
	for _, o := range outcomes {
		for k, ps := range []*PolicyStats{&sum.A, &sum.B} {
			ps.ChipDelta += o.net[k]
			ps.Violations += o.violations[k]
			switch {
			case o.net[k] > 0:
				ps.Wins++
			case o.net[k] < 0:
				ps.Losses++
			default:
				ps.Ties++
			}
			for kind, n := range o.actions[k] {
				ps.Actions[kind] += n
			}
		}
	}
	return sum, nil
}

func evalHand(opts EvalOptions, i int) (handOutcome, error) {
	seed := opts.Seed + uint64(i)
	e, err := game.NewEngine(&seed, opts.Level)
	if err != nil {
		return handOutcome{}, err
	}
	// seatOf[k] is the seat policy k sits in.
	seatOf := [2]int{i % 2, 1 - i%2}
	bySeat := [2]ai.Policy{}
	bySeat[seatOf[0]], bySeat[seatOf[1]] = opts.A, opts.B
	e.SetButton(0)
	if err := e.DealHand(); err != nil {
		return handOutcome{}, err
	}
	o := handOutcome{actions: [2]map[string]int{{}, {}}}
	for !e.IsComplete() {
		seat := e.CurrentPlayer()
		d := ai.Decide(e, bySeat[seat], seat)
		k := 0
		if seatOf[1] == seat {
			k = 1
		}
		if d.Violation != nil {
			o.violations[k]++
		}
		if err := e.ApplyAction(seat, d.Action); err != nil {
			return o, apperr.Wrap(apperr.ErrInternal, "engine_rejected_fallback", err)
		}
		o.actions[k][d.Action.Kind.String()]++
	}
	res, _ := e.Result()
	o.net[0], o.net[1] = res.Net[seatOf[0]], res.Net[seatOf[1]]
	return o, nil
}
