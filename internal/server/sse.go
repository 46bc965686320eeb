package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fsilva7456/commlink/internal/feed"
)

// keepAliveInterval bounds how long an idle SSE connection goes
// without traffic, so proxies don't reap it.
const keepAliveInterval = 25 * time.Second

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteComment sends an SSE comment line, used as a keep-alive
func (s *SSEWriter) WriteComment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// handleEvents streams every change as Server-Sent Events. Supports an
// optional ?table= filter.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter := feed.Filter{Table: r.URL.Query().Get("table")}
	s.streamEvents(w, r, filter)
}

// handleRunEvents streams one run's changes, including its dependent
// metric, model and episode records.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	// Reject unknown runs up front; a subscription to a nonexistent
	// run would just hang silently.
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.streamEvents(w, r, feed.Filter{EntityID: id})
}

// streamEvents bridges a feed subscription onto an SSE connection.
// When the subscriber's buffer overflowed, a resync event tells the
// client its view may have gaps and it should re-fetch state before
// trusting further deltas.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, filter feed.Filter) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub := s.feed.Subscribe(filter)
	defer sub.Cancel()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if sub.ResyncRequired() {
				if err := sse.WriteEvent("resync", map[string]string{
					"reason": "event buffer overflowed; refetch current state",
				}); err != nil {
					return
				}
			}
			if err := sse.WriteEvent("change", ev); err != nil {
				return
			}
		}
	}
}
