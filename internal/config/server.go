package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080" yaml:"http_addr"`

	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"30m" yaml:"session_ttl"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m" yaml:"session_sweep_interval"`
	EventQueueCapacity   int           `env:"EVENT_QUEUE_CAPACITY" envDefault:"256" yaml:"event_queue_capacity"`

	HistoryPath       string `env:"HISTORY_PATH" yaml:"history_path"`
	HistoryMaxRecords int    `env:"HISTORY_MAX_RECORDS" envDefault:"10000" yaml:"history_max_records"`

	SSEPingInterval time.Duration `env:"SSE_PING_INTERVAL" envDefault:"15s" yaml:"sse_ping_interval"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s" yaml:"shutdown_timeout"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
