package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"axiomind/internal/session"
)

// EventsSSEHandler streams a session's events until the client leaves or the
// session's stream is dropped. Without ?seat= no hole cards are sent.
func EventsSSEHandler(mgr *session.Manager, pingInterval time.Duration) http.HandlerFunc {
	if pingInterval <= 0 {
		pingInterval = 15 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		seat, err := parseSeat(r, -1)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if _, err := mgr.Get(sessionID); err != nil {
			WriteError(w, r, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported", "response writer cannot flush")
			return
		}
		sub, err := mgr.Bus().Subscribe(sessionID, seat)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		defer func() {
			sub.Close()
			metricSSEDroppedEvents.Add(int64(sub.Dropped()))
		}()

		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("session_id", sessionID).
			Int("seat", seat).
			Msg("sse stream opened")

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				log.Info().
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("session_id", sessionID).
					Err(r.Context().Err()).
					Msg("sse stream closed")
				return
			case ev, ok := <-sub.Events():
				if !ok {
					log.Info().
						Str("request_id", chimw.GetReqID(r.Context())).
						Str("session_id", sessionID).
						Msg("sse stream channel closed")
					return
				}
				if err := WriteSSE(w, ev); err != nil {
					return
				}
				log.Debug().
					Str("session_id", sessionID).
					Str("event", string(ev.Type)).
					Uint64("seq", ev.Seq).
					Msg("sse event sent")
				flusher.Flush()
			case <-ticker.C:
				if err := writePing(w); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
