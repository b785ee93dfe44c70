// Package server assembles the HTTP server and its background work.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"axiomind/internal/config"
	"axiomind/internal/events"
	"axiomind/internal/history"
	"axiomind/internal/session"
	httptransport "axiomind/internal/transport/http"
)

type Server struct {
	cfg      config.ServerConfig
	History  *history.Store
	Settings *config.SettingsStore
	Sessions *session.Manager
	handler  http.Handler
}

func New(cfg config.ServerConfig, clock quartz.Clock) (*Server, error) {
	if clock == nil {
		clock = quartz.NewReal()
	}
	hist, err := history.Open(history.Options{
		MaxRecords: cfg.HistoryMaxRecords,
		Path:       cfg.HistoryPath,
		Clock:      clock,
	})
	if err != nil {
		return nil, err
	}
	settings := config.NewSettingsStore(config.DefaultSettings(cfg))
	mgr := session.NewManager(session.Options{
		Bus:      events.NewBus(cfg.EventQueueCapacity),
		History:  hist,
		Settings: settings,
		Clock:    clock,
	})
	router := httptransport.NewRouter(httptransport.Deps{
		Sessions: mgr,
		History:  hist,
		Settings: settings,
		Config:   cfg,
	})
	httptransport.LogRoutes(router)
	return &Server{cfg: cfg, History: hist, Settings: settings, Sessions: mgr, handler: router}, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx ends. Live event streams are cancelled with ctx and
// in-flight requests get the configured shutdown timeout to finish.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		_ = s.History.Close()
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}
	s.Sessions.StartJanitor(gctx, s.cfg.SessionSweepInterval)

	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("http listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		log.Info().Dur("timeout", timeout).Msg("http shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if cerr := s.History.Close(); cerr != nil && err == nil {
		err = cerr
	}
	log.Info().Err(err).Msg("server stopped")
	return err
}
