package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"talentscout-engine/internal/events"
)

// EventsHandler streams pipeline activity to dashboards over SSE. Each
// frame's data line is one events.Event JSON payload.
type EventsHandler struct {
	Hub *events.Hub
}

// heartbeatEvery keeps proxies from reaping streams idle between jobs.
const heartbeatEvery = 25 * time.Second

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, codeStreamFailed, "response writer cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	// opening frame so clients can confirm the stream is live
	writeFrame(w, flusher, events.Make("", "hello", nil))

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			writeFrame(w, flusher, events.Make("", "ping", nil))
		case msg := <-ch:
			writeFrame(w, flusher, msg)
		}
	}
}

func writeFrame(w io.Writer, f http.Flusher, payload string) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	f.Flush()
}
