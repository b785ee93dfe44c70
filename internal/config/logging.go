package config

import "github.com/caarlos0/env/v11"

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info" yaml:"level"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false" yaml:"pretty"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0" yaml:"sample_every"`
	File        string `env:"LOG_FILE" yaml:"file"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10" yaml:"max_mb"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
