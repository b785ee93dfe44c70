package httptransport

import (
	"net/http"

	"axiomind/internal/config"
)

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func SettingsGetHandler(store *config.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, store.Get())
	}
}

// SettingsPutHandler replaces the settings; an invalid body leaves the
// current value in place.
func SettingsPutHandler(store *config.SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next := store.Get()
		if err := decodeBody(r, &next); err != nil {
			WriteError(w, r, err)
			return
		}
		updated, err := store.Update(next)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}
