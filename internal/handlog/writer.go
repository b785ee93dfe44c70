package handlog

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"axiomind/internal/apperr"
)

// Writer appends records as JSONL. In buffered mode lines are batched in
// memory and flushed on Flush or Close; otherwise every record is written
// through immediately.
type Writer struct {
	f        *os.File
	bw       *bufio.Writer
	enc      *zstd.Encoder
	w        io.Writer
	buffered bool
}

// NewWriter writes through to w.
func NewWriter(w io.Writer, buffered bool) *Writer {
	out := &Writer{w: w, buffered: buffered}
	if buffered {
		out.bw = bufio.NewWriterSize(w, 256*1024)
		out.w = out.bw
	}
	return out
}

// Create opens path for writing, appending when appendMode is set. A .zst
// path is compressed; appends to it start a new zstd frame.
func Create(path string, appendMode, buffered bool) (*Writer, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIO, "create_failed", err)
	}
	var sink io.Writer = f
	var enc *zstd.Encoder
	if IsCompressed(path) {
		enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, apperr.Wrap(apperr.ErrIO, "zstd_create_failed", err)
		}
		sink = enc
	}
	w := NewWriter(sink, buffered)
	w.f = f
	w.enc = enc
	return w, nil
}

func (w *Writer) Write(rec HandRecord) error {
	line, err := Encode(rec)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, "encode_failed", err)
	}
	return w.WriteRaw(line)
}

// WriteRaw appends line followed by a newline.
func (w *Writer) WriteRaw(line []byte) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := w.w.Write(buf); err != nil {
		return apperr.Wrap(apperr.ErrIO, "write_failed", err)
	}
	return nil
}

// Flush pushes buffered lines to the file. For .zst outputs the pending
// compressed block is written too, so readers see every flushed record.
func (w *Writer) Flush() error {
	if w.bw != nil {
		if err := w.bw.Flush(); err != nil {
			return apperr.Wrap(apperr.ErrIO, "flush_failed", err)
		}
	}
	if w.enc != nil {
		if err := w.enc.Flush(); err != nil {
			return apperr.Wrap(apperr.ErrIO, "flush_failed", err)
		}
	}
	return nil
}

func (w *Writer) Close() error {
	errs := []error{w.Flush()}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return apperr.Wrap(apperr.ErrIO, "close_failed", err)
	}
	return nil
}
