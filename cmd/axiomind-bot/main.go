// Command axiomind-bot plays a session against a running server over the
// REST API, submitting random legal-looking moves for seat 0.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	"axiomind/internal/config"
	"axiomind/internal/game"
	"axiomind/internal/game/viewmodel"
	"axiomind/internal/logging"
	"axiomind/internal/session"
)

type botConfig struct {
	ServerURL string        `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	Opponent  string        `env:"BOT_OPPONENT" envDefault:"ai:baseline"`
	Hands     int           `env:"BOT_HANDS" envDefault:"50"`
	Seed      uint64        `env:"BOT_SEED" envDefault:"1"`
	Timeout   time.Duration `env:"BOT_HTTP_TIMEOUT" envDefault:"10s"`
}

type summary struct {
	SessionID string
	Hands     int
	Actions   int
	GameOver  bool
	Stacks    [2]int64
}

func main() {
	var cfg botConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "axiomind-bot: %v\n", err)
		os.Exit(2)
	}
	logCfg, err := config.LoadLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "axiomind-bot: %v\n", err)
		os.Exit(2)
	}
	closeLog, err := logging.Init(logCfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "axiomind-bot: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sum, err := play(ctx, &http.Client{Timeout: cfg.Timeout}, cfg)
	if err != nil {
		log.Error().Err(err).Msg("bot stopped")
		stop()
		closeLog()
		os.Exit(2)
	}
	log.Info().
		Str("session_id", sum.SessionID).
		Int("hands", sum.Hands).
		Int("actions", sum.Actions).
		Bool("game_over", sum.GameOver).
		Int64("stack_p0", sum.Stacks[0]).
		Int64("stack_p1", sum.Stacks[1]).
		Msg("bot finished")
}

// apiError is a non-2xx reply decoded from the server's error body.
type apiError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type client struct {
	http *http.Client
	base string
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func play(ctx context.Context, hc *http.Client, cfg botConfig) (summary, error) {
	c := &client{http: hc, base: cfg.ServerURL}
	var info session.Info
	err := c.do(ctx, http.MethodPost, "/api/sessions", session.Config{Seed: &cfg.Seed, OpponentType: cfg.Opponent}, &info)
	if err != nil {
		return summary{}, fmt.Errorf("create session: %w", err)
	}
	sum := summary{SessionID: info.ID, Stacks: info.Stacks}
	log.Debug().Str("session_id", info.ID).Str("opponent", cfg.Opponent).Msg("session created")

	statePath := "/api/sessions/" + info.ID + "/state?seat=0"
	actionsPath := "/api/sessions/" + info.ID + "/actions"
	var state viewmodel.StateView
	if err := c.do(ctx, http.MethodGet, statePath, nil, &state); err != nil {
		return sum, fmt.Errorf("fetch state: %w", err)
	}

	rnd := game.NewRand(cfg.Seed)
	for sum.Hands < cfg.Hands {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := submit(ctx, c, actionsPath, state, decide(rnd, state))
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Code == "stale_turn" {
			if err := c.do(ctx, http.MethodGet, statePath, nil, &state); err != nil {
				return sum, fmt.Errorf("refresh state: %w", err)
			}
			continue
		}
		if err != nil {
			return sum, err
		}
		sum.Actions++
		if res.HandCompleted {
			sum.Hands++
		}
		state = res.State
		for i, s := range state.Seats {
			sum.Stacks[i] = s.Stack
		}
		if res.GameOver {
			sum.GameOver = true
			break
		}
	}
	if !sum.GameOver {
		if err := c.do(ctx, http.MethodDelete, "/api/sessions/"+info.ID, nil, nil); err != nil {
			return sum, fmt.Errorf("delete session: %w", err)
		}
	}
	return sum, nil
}

// submit posts a for the seat due to act, so a human-vs-human session is
// played from both sides. A move rejected as illegal is retried as a check or
// call, then as a fold.
func submit(ctx context.Context, c *client, path string, state viewmodel.StateView, a game.Action) (session.ActionResult, error) {
	toCall := seatToCall(state)
	passive := game.Check()
	if toCall > 0 {
		passive = game.Call()
	}
	var res session.ActionResult
	var err error
	for _, try := range []game.Action{a, passive, game.Fold()} {
		body := map[string]any{"action": try, "turn_id": state.TurnID, "seat": state.CurrentActorSeat}
		err = c.do(ctx, http.MethodPost, path, body, &res)
		var apiErr *apiError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Code == "stale_turn" {
			return res, err
		}
		log.Debug().Str("action", try.String()).Str("code", apiErr.Code).Msg("action rejected")
	}
	return res, err
}

func seatToCall(s viewmodel.StateView) int64 {
	for _, seat := range s.Seats {
		if seat.Seat == s.CurrentActorSeat {
			return seat.ToCall
		}
	}
	return 0
}

func decide(rnd *mrand.Rand, s viewmodel.StateView) game.Action {
	if seatToCall(s) == 0 {
		if rnd.IntN(2) == 0 {
			return game.Check()
		}
		return game.Bet(s.MinRaise)
	}
	switch rnd.IntN(3) {
	case 0:
		return game.Fold()
	case 1:
		return game.Call()
	default:
		return game.Raise(s.MinRaise)
	}
}
