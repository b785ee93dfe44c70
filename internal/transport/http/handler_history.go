package httptransport

import (
	"net/http"

	"axiomind/internal/history"
)

func HistoryRecentHandler(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricHistoryQueryTotal.Add(1)
		limit := ParseLimit(r)
		writeJSON(w, http.StatusOK, map[string]any{"items": store.Recent(limit), "limit": limit})
	}
}

func HistoryFilterHandler(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricHistoryQueryTotal.Add(1)
		var f history.HandFilter
		if err := decodeBody(r, &f); err != nil {
			WriteError(w, r, err)
			return
		}
		if err := f.Validate(); err != nil {
			WriteError(w, r, err)
			return
		}
		items := store.Filter(f)
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	}
}

func HistoryStatsHandler(store *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		metricHistoryQueryTotal.Add(1)
		writeJSON(w, http.StatusOK, store.Stats())
	}
}
