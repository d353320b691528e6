package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/llehouerou/hifi/internal/playback"
)

const heartbeatInterval = 25 * time.Second

// handleEvents streams playback events over SSE. Each event kind gets a
// named SSE event; a new client first receives a full snapshot (status,
// tracklist, volume, position) so it never renders from a blank slate.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := s.svc.Subscribe()
	defer s.svc.Unsubscribe(sub)

	// Snapshot first, then follow events.
	st := s.svc.State()
	writeSSE(w, "status", toStateJSON(st))
	writeSSE(w, "tracklist", toQueueJSON(s.svc.QueueTracks(), st.Index))
	writeSSE(w, "volume", volumeJSON{Level: st.Volume, Muted: st.Muted})
	writeSSE(w, "position", toPositionJSON(st.Position, st.Duration))
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done:
			return
		case <-heartbeat.C:
			// keep-alive comment so proxies don't cut the stream
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case e, ok := <-sub.Events:
			if !ok {
				return
			}
			name, payload := s.renderEvent(e)
			if name == "" {
				continue
			}
			writeSSE(w, name, payload)
			flusher.Flush()
		}
	}
}

// renderEvent maps a playback event to its SSE name and JSON payload.
// Status and track changes both resend the full status, which keeps
// clients trivially stateless.
func (s *Server) renderEvent(e playback.Event) (string, any) {
	switch ev := e.(type) {
	case playback.StatusChange, playback.TrackChange, playback.ModeChange:
		return "status", toStateJSON(s.svc.State())
	case playback.QueueChange:
		return "tracklist", toQueueJSON(ev.Tracks, ev.Index)
	case playback.PositionChange:
		return "position", toPositionJSON(ev.Position, ev.Duration)
	case playback.VolumeChange:
		return "volume", volumeJSON{Level: ev.Level, Muted: ev.Muted}
	case playback.Message:
		return "message", messageJSON{Level: ev.Level.String(), Text: ev.Text}
	default:
		return "", nil
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
}
