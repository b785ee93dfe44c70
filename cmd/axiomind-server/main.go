package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"

	"axiomind/internal/apperr"
	"axiomind/internal/config"
	"axiomind/internal/logging"
	"axiomind/internal/server"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	closeLog, err := logging.Init(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg.Server, quartz.NewReal())
	if err != nil {
		log.Error().Err(err).Msg("server init failed")
		closeLog()
		os.Exit(apperr.ExitCode(err))
	}
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		closeLog()
		os.Exit(apperr.ExitCode(err))
	}
}
