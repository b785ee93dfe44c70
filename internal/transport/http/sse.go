package httptransport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"axiomind/internal/events"
)

const sseEventName = "game_event"

// SetSSEHeaders applies headers that keep event streams stable across proxies.
func SetSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
}

func WriteSSE(w io.Writer, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sseEventName, data)
	return err
}

func writePing(w io.Writer) error {
	_, err := io.WriteString(w, ": ping\n\n")
	return err
}
