package config

import "github.com/caarlos0/env/v11"

// SimConfig tunes the simulate loop.
type SimConfig struct {
	Fast        bool   `env:"AXIOMIND_SIM_FAST" envDefault:"false" yaml:"fast"`
	BreakAfter  int    `env:"AXIOMIND_SIM_BREAK_AFTER" envDefault:"0" yaml:"break_after"`
	SleepMicros uint64 `env:"AXIOMIND_SIM_SLEEP_MICROS" envDefault:"0" yaml:"sleep_micros"`
}

type DatasetConfig struct {
	StreamThreshold int  `env:"AXIOMIND_DATASET_STREAM_THRESHOLD" envDefault:"10000" yaml:"stream_threshold"`
	StreamTrace     bool `env:"AXIOMIND_DATASET_STREAM_TRACE" envDefault:"false" yaml:"stream_trace"`
}

type SQLiteConfig struct {
	BackoffMS   uint64 `env:"AXIOMIND_SQLITE_BACKOFF_MS" envDefault:"100" yaml:"backoff_ms"`
	MaxAttempts uint32 `env:"AXIOMIND_SQLITE_MAX_ATTEMPTS" envDefault:"50" yaml:"max_attempts"`
}

// PlayConfig holds the override that lets play read actions from a pipe.
type PlayConfig struct {
	Scripted bool `env:"AXIOMIND_PLAY_SCRIPTED" envDefault:"false" yaml:"scripted"`
}

type PipelineConfig struct {
	Sim     SimConfig     `yaml:"sim"`
	Dataset DatasetConfig `yaml:"dataset"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Play    PlayConfig    `yaml:"play"`
}

func LoadPipeline() (PipelineConfig, error) {
	var cfg PipelineConfig
	err := env.Parse(&cfg)
	return cfg, err
}
