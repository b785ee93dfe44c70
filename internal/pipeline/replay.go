package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coder/quartz"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
	"axiomind/internal/handlog"
	"axiomind/internal/verify"
)

type ReplayOptions struct {
	// Speed scales the one second pause between hands; zero disables it.
	Speed float64
	Clock quartz.Clock
}

// Replay prints the pot and stack evolution of every hand in input,
// rebuilt from the actions alone.
func Replay(ctx context.Context, input string, out io.Writer, opts ReplayOptions) (int, error) {
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	hands := 0
	err := handlog.Each(input, func(l handlog.Line) error {
		rec, err := handlog.Decode(l.Raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", l.No, err)
		}
		if hands > 0 && opts.Speed > 0 {
			t := clock.NewTimer(time.Duration(float64(time.Second)/opts.Speed), "replay", "pause")
			select {
			case <-ctx.Done():
				t.Stop()
				return apperr.Wrap(apperr.ErrInterrupted, "interrupted", ctx.Err())
			case <-t.C:
			}
		}
		hands++
		return replayHand(out, rec)
	})
	return hands, err
}

func replayHand(out io.Writer, rec handlog.HandRecord) error {
	r, err := verify.NewReplayer(rec)
	if err != nil {
		return fmt.Errorf("hand %s: %w", rec.HandID, err)
	}
	ids := make([]string, len(rec.Players))
	for i, p := range rec.Players {
		ids[i] = p.ID
	}
	sb, bb := blindsOf(rec)
	fmt.Fprintf(out, "Hand %s  button %s  blinds %d/%d\n", rec.HandID, ids[r.Button()], sb, bb)
	street := game.Street(255)
	for _, a := range rec.Actions {
		if a.Street != street {
			street = a.Street
			fmt.Fprintf(out, "  %s %s\n", street, streetBoard(rec.Board, street))
		}
		if err := r.Apply(a); err != nil {
			return fmt.Errorf("hand %s: %w", rec.HandID, err)
		}
		seat, _ := a.PlayerID.Resolve(rec.Players)
		fmt.Fprintf(out, "    %s %s  pot %d  %s\n", ids[seat], a.Action, r.Pot(), stackLine(ids, r.Stacks()))
	}
	r.Finish()
	fmt.Fprintf(out, "  Board %s\n", streetBoard(rec.Board, game.StreetRiver))
	result := rec.Winner()
	if result == "" {
		result = "unknown"
	}
	net := make([]string, 0, len(ids))
	for _, id := range ids {
		net = append(net, fmt.Sprintf("%s=%+d", id, rec.NetResult[id]))
	}
	fmt.Fprintf(out, "  Result %s  pot %d  net %s\n", result, r.Pot(), strings.Join(net, " "))
	return nil
}

func blindsOf(rec handlog.HandRecord) (int64, int64) {
	if rec.Blinds != nil {
		return rec.Blinds.SB, rec.Blinds.BB
	}
	if rec.Level != nil {
		sb, bb, _ := game.Blinds(*rec.Level)
		return sb, bb
	}
	return 0, 0
}

func streetBoard(board []game.Card, street game.Street) string {
	n := min(street.BoardSize(), len(board))
	parts := make([]string, n)
	for i := range parts {
		parts[i] = board[i].String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func stackLine(ids []string, stacks []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s=%d", id, stacks[i])
	}
	return strings.Join(parts, " ")
}
