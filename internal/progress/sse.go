// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultHeartbeatInterval is the idle interval after which a keep-alive
// comment is written, independent of real progress. Long single suspensions
// (one slow model call) would otherwise let intermediaries time the
// connection out.
const DefaultHeartbeatInterval = 10 * time.Second

// WriteSSE streams events to w as server-sent events until the stream ends
// or the client disconnects. Each event is flushed immediately; no buffering
// or coalescing, since delivery order is part of the protocol.
func WriteSSE(w http.ResponseWriter, r *http.Request, events <-chan Event, heartbeat time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case ev, open := <-events:
			if !open {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("encoding event: %w", err)
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return fmt.Errorf("writing event: %w", err)
			}
			flusher.Flush()
			ticker.Reset(heartbeat)

		case <-ticker.C:
			// Comment line: keeps the connection alive without surfacing a
			// synthetic event to consumers.
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return fmt.Errorf("writing heartbeat: %w", err)
			}
			flusher.Flush()

		case <-r.Context().Done():
			return r.Context().Err()
		}
	}
}
