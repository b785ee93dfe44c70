// Package httptransport exposes sessions, history and settings over HTTP and
// server-sent events.
package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"axiomind/internal/config"
	"axiomind/internal/history"
	"axiomind/internal/session"
)

type Deps struct {
	Sessions *session.Manager
	History  *history.Store
	Settings *config.SettingsStore
	Config   config.ServerConfig
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/health", HealthHandler())
	r.Get("/debug/vars", expvar.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/sessions", SessionsCreateHandler(d.Sessions))
		r.Get("/sessions", SessionsListHandler(d.Sessions))
		r.Get("/sessions/{session_id}", SessionGetHandler(d.Sessions))
		r.Delete("/sessions/{session_id}", SessionsDeleteHandler(d.Sessions))
		r.Get("/sessions/{session_id}/state", StateHandler(d.Sessions))
		r.Post("/sessions/{session_id}/actions", ActionsHandler(d.Sessions))
		r.Get("/sessions/{session_id}/events", EventsSSEHandler(d.Sessions, d.Config.SSEPingInterval))

		r.Get("/history", HistoryRecentHandler(d.History))
		r.Post("/history/filter", HistoryFilterHandler(d.History))
		r.Get("/history/stats", HistoryStatsHandler(d.History))

		r.Get("/settings", SettingsGetHandler(d.Settings))
		r.Put("/settings", SettingsPutHandler(d.Settings))
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	log.Debug().Msg(strings.TrimRight(b.String(), "\n"))
}
