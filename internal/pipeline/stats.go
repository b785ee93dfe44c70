package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"axiomind/internal/apperr"
	"axiomind/internal/handlog"
)

// Summary aggregates every hand history found under a path.
type Summary struct {
	Files         int            `json:"files"`
	Hands         int            `json:"hands"`
	Winners       map[string]int `json:"winners"`
	Splits        int            `json:"splits"`
	Showdowns     int            `json:"showdowns"`
	Actions       int            `json:"actions"`
	ChipsWon      int64          `json:"chips_won"`
	NetViolations int            `json:"net_violations"`
	Corrupted     int            `json:"corrupted"`
	TornTail      int            `json:"torn_tail"`
}

// IsHandLog reports whether path names a .jsonl or .jsonl.zst file.
func IsHandLog(path string) bool {
	return strings.HasSuffix(path, ".jsonl") || strings.HasSuffix(path, ".jsonl.zst")
}

// Collect lists the hand logs under input in lexical order. A file input is
// returned as is.
func Collect(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrNotFound, "input_not_found", err)
	}
	if !info.IsDir() {
		return []string{input}, nil
	}
	var out []string
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsHandLog(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIO, "walk_failed", err)
	}
	sort.Strings(out)
	return out, nil
}

// Stats reads every hand log under input. An unterminated, undecodable final
// line is tolerated; other bad lines are counted as corrupted.
func Stats(ctx context.Context, input string) (Summary, error) {
	files, err := Collect(input)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Winners: map[string]int{}}
	for _, path := range files {
		sum.Files++
		err := handlog.Each(path, func(l handlog.Line) error {
			if err := ctx.Err(); err != nil {
				return apperr.Wrap(apperr.ErrInterrupted, "interrupted", err)
			}
			rec, err := handlog.Decode(l.Raw)
			if err != nil {
				if !l.Terminated {
					sum.TornTail++
				} else {
					sum.Corrupted++
					log.Warn().Str("path", path).Int("line", l.No).Err(err).Msg("stats_corrupted_line")
				}
				return nil
			}
			sum.add(rec)
			return nil
		})
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (s *Summary) add(rec handlog.HandRecord) {
	s.Hands++
	s.Actions += len(rec.Actions)
	if rec.Showdown != nil {
		s.Showdowns++
	}
	switch w := rec.Winner(); w {
	case "":
	case "split":
		s.Splits++
	default:
		s.Winners[w]++
	}
	if rec.NetResult != nil {
		if rec.NetSum() != 0 {
			s.NetViolations++
		}
		s.ChipsWon += rec.WonChips()
	}
}
