package handlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"axiomind/internal/apperr"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Line is one non-blank line of a JSONL stream. Terminated is false only for
// a final line that ended without a newline.
type Line struct {
	No         int
	Raw        []byte
	Terminated bool
}

// Reader yields JSONL lines with the BOM stripped and CRLF normalised.
type Reader struct {
	br      *bufio.Reader
	no      int
	closers []func() error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// IsCompressed reports whether path names a zstd-compressed JSONL file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Open reads path, decompressing .zst files on the fly.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "input_not_found", err)
		}
		return nil, apperr.Wrap(apperr.ErrIO, "open_failed", err)
	}
	if !IsCompressed(path) {
		r := NewReader(f)
		r.closers = append(r.closers, f.Close)
		return r, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, apperr.Wrap(apperr.ErrIO, "zstd_open_failed", err)
	}
	r := NewReader(dec)
	r.closers = append(r.closers, func() error { dec.Close(); return nil }, f.Close)
	return r, nil
}

// Next returns the next non-blank line or io.EOF.
func (r *Reader) Next() (Line, error) {
	for {
		raw, err := r.br.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return Line{}, io.EOF
			}
			return Line{}, apperr.Wrap(apperr.ErrIO, "read_failed", err)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return Line{}, apperr.Wrap(apperr.ErrIO, "read_failed", err)
		}
		r.no++
		terminated := err == nil
		if r.no == 1 {
			raw = bytes.TrimPrefix(raw, utf8BOM)
		}
		raw = bytes.TrimRight(raw, "\r\n")
		if len(bytes.TrimSpace(raw)) == 0 {
			if !terminated {
				return Line{}, io.EOF
			}
			continue
		}
		return Line{No: r.no, Raw: raw, Terminated: terminated}, nil
	}
}

func (r *Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Each calls fn for every line of path.
func Each(path string, fn func(Line) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(line); err != nil {
			return err
		}
	}
}

// ReadAll decodes every record in path; the first undecodable line aborts.
func ReadAll(path string) ([]HandRecord, error) {
	var out []HandRecord
	err := Each(path, func(l Line) error {
		rec, err := Decode(l.Raw)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", path, l.No, err)
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}
