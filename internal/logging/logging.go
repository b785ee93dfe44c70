package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"axiomind/internal/config"
)

var (
	writerMu sync.RWMutex
	writer   io.Writer = os.Stderr
)

// Writer is the raw sink installed by Init, for components that emit their
// own JSON lines such as the HTTP access log.
func Writer() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writer
}

// Init installs the global logger. Output goes to out and, when cfg.File is
// set, also to a size-capped file. The returned func closes the file.
func Init(cfg config.LogConfig, out io.Writer) (func() error, error) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var output io.Writer = out
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: out}
	}
	raw := out
	closer := func() error { return nil }
	if cfg.File != "" {
		fw, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB)
		if err != nil {
			return closer, err
		}
		output = zerolog.MultiLevelWriter(output, fw)
		raw = io.MultiWriter(out, fw)
		closer = fw.Close
	}
	writerMu.Lock()
	writer = raw
	writerMu.Unlock()

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if n := cfg.SampleEvery; n > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(n)})
	}
	log.Logger = logger
	return closer, nil
}
