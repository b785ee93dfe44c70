package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
)

type CfgCmd struct{}

func (c *CfgCmd) Run(rc *runContext) error {
	enc := yaml.NewEncoder(rc.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(rc.cfg); err != nil {
		return apperr.Wrap(apperr.ErrIO, "write_output", err)
	}
	return enc.Close()
}

type DoctorCmd struct{}

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type doctorReport struct {
	OK     bool          `json:"ok"`
	Checks []doctorCheck `json:"checks"`
}

// Run reports every check on stdout and fails when any required one fails.
// A missing terminal is reported but not a failure.
func (c *DoctorCmd) Run(rc *runContext) error {
	dir, err := os.MkdirTemp("", "axiomind-doctor-")
	if err != nil {
		return apperr.Wrap(apperr.ErrIO, "temp_dir", err)
	}
	defer os.RemoveAll(dir)

	rep := doctorReport{OK: true}
	add := func(name string, err error, detail string) {
		chk := doctorCheck{Name: name, OK: err == nil, Detail: detail}
		if err != nil {
			chk.Detail = err.Error()
			rep.OK = false
		}
		rep.Checks = append(rep.Checks, chk)
	}
	add("temp_dir_write", checkTempWrite(dir), dir)
	version, err := checkSQLite(filepath.Join(dir, "doctor.sqlite"))
	add("sqlite_open", err, "sqlite "+version)
	add("zstd_roundtrip", checkZstd(), "")
	tty := rc.isTTY()
	rep.Checks = append(rep.Checks, doctorCheck{Name: "stdin_tty", OK: tty, Detail: ttyDetail(tty, rc.cfg.Pipeline.Play.Scripted)})

	if err := printJSON(rc, rep); err != nil {
		return err
	}
	if !rep.OK {
		return apperr.New(apperr.ErrInternal, "doctor_failed", "environment checks failed")
	}
	return nil
}

func checkTempWrite(dir string) error {
	path := filepath.Join(dir, "diag.jsonl")
	want := []byte("{\"diag\":true}\n")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		return err
	}
	got, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("read back %d bytes, wrote %d", len(got), len(want))
	}
	return nil
}

func checkSQLite(path string) (string, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	var version string
	err = sqlitex.ExecuteTransient(conn, "SELECT sqlite_version();", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnText(0)
			return nil
		},
	})
	return version, err
}

func checkZstd() error {
	want := bytes.Repeat([]byte("{\"hand_id\":\"19700101-000001\"}\n"), 64)
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return err
	}
	if _, err := zw.Write(want); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	zr, err := zstd.NewReader(&buf)
	if err != nil {
		return err
	}
	defer zr.Close()
	got, err := io.ReadAll(zr)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("zstd round trip changed %d bytes", len(want))
	}
	return nil
}

func ttyDetail(tty, scripted bool) string {
	switch {
	case tty:
		return "interactive play available"
	case scripted:
		return "not a terminal; scripted play enabled"
	default:
		return "not a terminal; play refuses unless AXIOMIND_PLAY_SCRIPTED=1"
	}
}

// RNGCmd prints the deck order for a seed and a BLAKE3 digest of it, so two
// builds can be compared by fingerprint alone.
type RNGCmd struct {
	Seed *uint64 `help:"Shuffle seed; random when unset."`
}

func (c *RNGCmd) Run(rc *runContext) error {
	seed := game.RandomSeed()
	if c.Seed != nil {
		seed = *c.Seed
	}
	deck := game.NewDeck()
	deck.ShuffleSeed(seed)
	order := cardList(deck.Cards())
	sum := blake3.Sum256([]byte(order))
	fmt.Fprintf(rc.stdout, "Seed: %d\n", seed)
	fmt.Fprintf(rc.stdout, "Deck: %s\n", order)
	fmt.Fprintf(rc.stdout, "BLAKE3: %s\n", hex.EncodeToString(sum[:]))
	return nil
}

type BenchCmd struct {
	Hands int    `default:"200000" help:"Seven-card hands to evaluate."`
	Seed  uint64 `default:"1" help:"Seed for the sampled hands."`
}

func (c *BenchCmd) Run(rc *runContext) error {
	if c.Hands < 1 {
		return apperr.New(apperr.ErrInvalidInput, "invalid_hands", "hands must be at least 1")
	}
	hands := sampleHands(c.Hands, c.Seed)
	evaluators := []game.Evaluator{game.ReferenceEvaluator{}, game.BitmaskEvaluator{}}
	results := make([][]game.HandStrength, len(evaluators))
	for i, ev := range evaluators {
		out := make([]game.HandStrength, len(hands))
		start := time.Now()
		for j := range hands {
			out[j] = ev.Evaluate(hands[j])
		}
		elapsed := time.Since(start)
		results[i] = out
		rate := float64(len(hands)) / elapsed.Seconds()
		fmt.Fprintf(rc.stdout, "%-10s %d hands in %s (%.0f hands/s)\n", ev.Name(), len(hands), elapsed.Round(time.Microsecond), rate)
	}
	mismatches := 0
	for j := range hands {
		if results[0][j] != results[1][j] {
			mismatches++
		}
	}
	if mismatches > 0 {
		return apperr.New(apperr.ErrInternal, "evaluator_mismatch", fmt.Sprintf("evaluators disagree on %d of %d hands", mismatches, len(hands)))
	}
	fmt.Fprintln(rc.stdout, "evaluators agree")
	return nil
}

func sampleHands(n int, seed uint64) [][7]game.Card {
	rng := game.NewRand(seed)
	deck := game.NewDeck()
	hands := make([][7]game.Card, n)
	for i := range hands {
		deck.Shuffle(rng)
		copy(hands[i][:], deck.Cards())
	}
	return hands
}
