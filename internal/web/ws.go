package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/llehouerou/hifi/internal/playback"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is protected by the shared secret, not the origin.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// wsEnvelope wraps every outgoing WebSocket message.
type wsEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// wsCommand is an incoming control message.
type wsCommand struct {
	Action     string  `json:"action"`
	Index      int     `json:"index"`
	PositionMs int64   `json:"position_ms"`
	Level      float64 `json:"level"`
}

// handleWebSocket serves the bidirectional event stream: the same
// envelopes as SSE going out, simple control commands coming in.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logRequestError(r, err)
		return
	}
	defer conn.Close()

	sub := s.svc.Subscribe()
	defer s.svc.Unsubscribe(sub)

	// Reader side: control commands, plus close detection. gorilla allows
	// one writer at a time, so command failures go back through the main
	// loop instead of being written here.
	warnings := make(chan wsEnvelope, 8)
	go func() {
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if err := s.applyCommand(cmd); err != nil {
				select {
				case warnings <- wsEnvelope{Type: "message", Data: messageJSON{
					Level: playback.LevelWarning.String(),
					Text:  err.Error(),
				}}:
				default:
					// nobody is draining; the warning is advisory
				}
			}
		}
	}()

	// Snapshot first, mirroring the SSE stream.
	st := s.svc.State()
	if err := conn.WriteJSON(wsEnvelope{Type: "status", Data: toStateJSON(st)}); err != nil {
		return
	}
	_ = conn.WriteJSON(wsEnvelope{Type: "tracklist", Data: toQueueJSON(s.svc.QueueTracks(), st.Index)})
	_ = conn.WriteJSON(wsEnvelope{Type: "volume", Data: volumeJSON{Level: st.Volume, Muted: st.Muted}})

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done:
			return
		case env := <-warnings:
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case e, ok := <-sub.Events:
			if !ok {
				return
			}
			name, payload := s.renderEvent(e)
			if name == "" {
				continue
			}
			if err := conn.WriteJSON(wsEnvelope{Type: name, Data: payload}); err != nil {
				return
			}
		}
	}
}

func (s *Server) applyCommand(cmd wsCommand) error {
	switch cmd.Action {
	case "play":
		return s.svc.Play()
	case "pause":
		return s.svc.Pause()
	case "toggle":
		return s.svc.Toggle()
	case "stop":
		return s.svc.Stop()
	case "next":
		return s.svc.Next()
	case "previous":
		return s.svc.Previous()
	case "jump":
		return s.svc.JumpTo(cmd.Index)
	case "seek":
		return s.svc.SeekTo(time.Duration(cmd.PositionMs) * time.Millisecond)
	case "volume":
		return s.svc.SetVolume(cmd.Level)
	case "mute":
		return s.svc.ToggleMute()
	default:
		log.Printf("web: unknown ws action %q", cmd.Action)
		return nil
	}
}
