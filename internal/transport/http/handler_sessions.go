package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"axiomind/internal/game"
	"axiomind/internal/session"
)

func SessionsCreateHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricSessionCreateTotal.Add(1)
		var cfg session.Config
		if err := decodeBody(r, &cfg); err != nil {
			metricSessionCreateErrors.Add(1)
			WriteError(w, r, err)
			return
		}
		info, err := mgr.Create(cfg)
		if err != nil {
			metricSessionCreateErrors.Add(1)
			WriteError(w, r, err)
			return
		}
		log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("session_id", info.ID).
			Msg("session created")
		w.Header().Set("Location", "/api/sessions/"+info.ID)
		writeJSON(w, http.StatusCreated, info)
	}
}

func SessionsListHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		items := mgr.Active()
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	}
}

func SessionGetHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := mgr.Get(chi.URLParam(r, "session_id"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func SessionsDeleteHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.Delete(chi.URLParam(r, "session_id")); err != nil {
			WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// StateHandler serves the redacted state; ?seat= picks the viewer, seat 0
// by default.
func StateHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seat, err := parseSeat(r, 0)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		state, err := mgr.State(chi.URLParam(r, "session_id"), seat)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// ActionsHandler answers 200 while the hand goes on and 202 once the
// submitted action has completed it.
func ActionsHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricActionSubmitTotal.Add(1)
		var body struct {
			Seat   *int         `json:"seat,omitempty"`
			Action *game.Action `json:"action"`
			TurnID string       `json:"turn_id,omitempty"`
		}
		if err := decodeBody(r, &body); err != nil {
			metricActionSubmitErrors.Add(1)
			WriteError(w, r, err)
			return
		}
		if body.Action == nil {
			metricActionSubmitErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_action", "action is required")
			return
		}
		req := session.ActionRequest{Seat: body.Seat, Action: *body.Action, TurnID: body.TurnID}
		res, err := mgr.ProcessAction(chi.URLParam(r, "session_id"), req)
		if err != nil {
			metricActionSubmitErrors.Add(1)
			WriteError(w, r, err)
			return
		}
		status := http.StatusOK
		if res.HandCompleted {
			status = http.StatusAccepted
		}
		writeJSON(w, status, res)
	}
}
