package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Stream pushes indexed-profile notifications as server-sent events. The
// producer side never blocks on this; slow clients just miss dropped
// entries.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	l := s.logger.With("handler", "Stream")

	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	l.Info("stream client connected")

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			l.Info("stream client disconnected")
			return
		case p := <-s.profiles.C():
			b, err := json.Marshal(p)
			if err != nil {
				l.Error("failed to marshal profile", "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			fl.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			fl.Flush()
		}
	}
}
