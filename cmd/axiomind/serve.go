package main

import (
	"github.com/coder/quartz"

	"axiomind/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Listen address; overrides HTTP_ADDR."`
}

func (c *ServeCmd) Run(rc *runContext) error {
	cfg := rc.cfg.Server
	if c.Addr != "" {
		cfg.HTTPAddr = c.Addr
	}
	srv, err := server.New(cfg, quartz.NewReal())
	if err != nil {
		return err
	}
	return srv.Run(rc.ctx)
}
