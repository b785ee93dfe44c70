package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"axiomind/internal/apperr"
	"axiomind/internal/config"
	"axiomind/internal/handlog"
)

type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatSQLite:
		return f, nil
	}
	return "", apperr.New(apperr.ErrInvalidInput, "invalid_format", fmt.Sprintf("unknown export format %q (csv, json, sqlite)", s))
}

type exportRow struct {
	rec handlog.HandRecord
	raw []byte
}

// Export converts input into format at output and returns the record count.
func Export(ctx context.Context, input string, format Format, output string, cfg config.SQLiteConfig) (int, error) {
	var rows []exportRow
	err := handlog.Each(input, func(l handlog.Line) error {
		rec, err := decodeValid(l)
		if err != nil {
			return err
		}
		rows = append(rows, exportRow{rec: rec, raw: append([]byte(nil), l.Raw...)})
		return nil
	})
	if err != nil {
		return 0, err
	}
	switch format {
	case FormatCSV:
		err = writeFile(output, func(w io.Writer) error { return exportCSV(w, rows) })
	case FormatJSON:
		err = writeFile(output, func(w io.Writer) error { return exportJSON(w, rows) })
	case FormatSQLite:
		err = exportSQLite(ctx, output, rows, cfg)
	default:
		_, err = ParseFormat(string(format))
	}
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.ErrIO, "create_failed", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return apperr.Wrap(apperr.ErrIO, "write_failed", err)
	}
	if err := f.Close(); err != nil {
		return apperr.Wrap(apperr.ErrIO, "close_failed", err)
	}
	return nil
}

func boardString(rec handlog.HandRecord) string {
	parts := make([]string, len(rec.Board))
	for i, c := range rec.Board {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func exportCSV(w io.Writer, rows []exportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hand_id", "seed", "result", "ts", "actions", "board"}); err != nil {
		return err
	}
	for _, row := range rows {
		seed := ""
		if row.rec.Seed != nil {
			seed = strconv.FormatUint(*row.rec.Seed, 10)
		}
		err := cw.Write([]string{
			row.rec.HandID,
			seed,
			optString(row.rec.Result),
			optString(row.rec.TS),
			strconv.Itoa(len(row.rec.Actions)),
			boardString(row.rec),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportJSON(w io.Writer, rows []exportRow) error {
	recs := make([]json.RawMessage, len(rows))
	for i, row := range rows {
		recs[i] = row.raw
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

const handsSchema = `
DROP TABLE IF EXISTS hands;
CREATE TABLE hands (
  hand_id TEXT PRIMARY KEY NOT NULL,
  seed    INTEGER,
  result  TEXT,
  ts      TEXT,
  actions INTEGER NOT NULL,
  board   INTEGER NOT NULL,
  raw_json TEXT NOT NULL
);
`

func isBusy(err error) bool {
	switch sqlite.ErrCode(err).ToPrimary() {
	case sqlite.ResultBusy, sqlite.ResultLocked:
		return true
	}
	return false
}

// exportSQLite writes every row in one immediate transaction. Busy and
// locked databases are retried with linear backoff.
func exportSQLite(ctx context.Context, path string, rows []exportRow, cfg config.SQLiteConfig) error {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return apperr.Wrap(apperr.ErrIO, "sqlite_open_failed", err)
	}
	defer conn.Close()

	return withBusyRetry(ctx, cfg, func() error { return writeHands(conn, rows) })
}

func withBusyRetry(ctx context.Context, cfg config.SQLiteConfig, fn func() error) error {
	attempts := int(cfg.MaxAttempts)
	if attempts <= 0 {
		attempts = 1
	}
	backoff := time.Duration(cfg.BackoffMS) * time.Millisecond
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("sqlite_busy_retry")
		if attempt == attempts {
			return apperr.Wrap(apperr.ErrBusy, "sqlite_busy", err)
		}
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.ErrInterrupted, "interrupted", ctx.Err())
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
	if err != nil {
		return apperr.Wrap(apperr.ErrIO, "sqlite_export_failed", err)
	}
	return nil
}

func writeHands(conn *sqlite.Conn, rows []exportRow) (err error) {
	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return err
	}
	defer endTransaction(&err)

	if err := sqlitex.ExecuteScript(conn, handsSchema, nil); err != nil {
		return err
	}
	for _, row := range rows {
		var seed any
		if row.rec.Seed != nil {
			seed = int64(*row.rec.Seed)
		}
		var result, ts any
		if row.rec.Result != nil {
			result = *row.rec.Result
		}
		if row.rec.TS != nil {
			ts = *row.rec.TS
		}
		err := sqlitex.Execute(conn,
			`INSERT INTO hands (hand_id, seed, result, ts, actions, board, raw_json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				row.rec.HandID, seed, result, ts,
				len(row.rec.Actions), len(row.rec.Board), string(row.raw),
			}})
		if err != nil {
			return err
		}
	}
	return nil
}
