package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/playback"
	"github.com/llehouerou/hifi/internal/state"
)

// TagLinker arms the RFID reader so the next scanned tag is bound to a
// playable target. Nil when no reader is attached.
type TagLinker interface {
	ArmLink(link state.RfidLink)
	LinkArmed() bool
}

// Server is the HTTP front-end: a JSON control API plus SSE and WebSocket
// event streams, all driven by the playback service.
type Server struct {
	svc     playback.Service
	catalog catalog.Client
	store   state.Interface
	linker  TagLinker
	secret  string

	httpSrv *http.Server
}

// Config carries the server dependencies.
type Config struct {
	Service playback.Service
	Catalog catalog.Client
	Store   state.Interface
	Linker  TagLinker // optional
	Secret  string    // optional shared secret for the API
}

func NewServer(cfg Config) *Server {
	return &Server{
		svc:     cfg.Service,
		catalog: cfg.Catalog,
		store:   cfg.Store,
		linker:  cfg.Linker,
		secret:  cfg.Secret,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Event streams
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	// Playback control
	s.handlePost(mux, "/api/play", func() error { return s.svc.Play() })
	s.handlePost(mux, "/api/pause", func() error { return s.svc.Pause() })
	s.handlePost(mux, "/api/toggle", func() error { return s.svc.Toggle() })
	s.handlePost(mux, "/api/stop", func() error { return s.svc.Stop() })
	s.handlePost(mux, "/api/next", func() error { return s.svc.Next() })
	s.handlePost(mux, "/api/previous", func() error { return s.svc.Previous() })
	mux.HandleFunc("/api/seek", s.handleSeek)
	mux.HandleFunc("/api/volume", s.handleVolume)
	s.handlePost(mux, "/api/mute", func() error { return s.svc.ToggleMute() })

	// State and queue
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/queue", s.handleQueue)
	mux.HandleFunc("/api/queue/jump", s.handleQueueJump)
	mux.HandleFunc("/api/queue/remove", s.handleQueueRemove)
	mux.HandleFunc("/api/queue/move", s.handleQueueMove)
	s.handlePost(mux, "/api/queue/clear", func() error { return s.svc.Clear() })
	mux.HandleFunc("/api/queue/shuffle", s.handleShuffle)
	mux.HandleFunc("/api/queue/repeat", s.handleRepeat)

	// Catalog-backed starts and additions
	mux.HandleFunc("/api/play/track", s.handlePlayTrack)
	mux.HandleFunc("/api/play/album", s.handlePlayAlbum)
	mux.HandleFunc("/api/play/playlist", s.handlePlayPlaylist)
	mux.HandleFunc("/api/queue/add", s.handleQueueAdd)

	// Browse
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/favorites", s.handleFavorites)

	// RFID link management
	mux.HandleFunc("/api/rfid/links", s.handleRfidLinks)
	mux.HandleFunc("/api/rfid/link", s.handleRfidLink)
	mux.HandleFunc("/api/rfid/unlink", s.handleRfidUnlink)

	return s.auth(mux)
}

// Run serves the API until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// auth enforces the shared secret when one is configured. The secret
// travels in the X-Api-Key header, or as a query parameter for the event
// streams (EventSource cannot set headers).
func (s *Server) auth(next http.Handler) http.Handler {
	if s.secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Api-Key")
		if key == "" {
			key = r.URL.Query().Get("key")
		}
		if key != s.secret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handlePost registers a bare command endpoint.
func (s *Server) handlePost(mux *http.ServeMux, pattern string, fn func() error) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := fn(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})
}

func logRequestError(r *http.Request, err error) {
	log.Printf("web: %s %s: %v", r.Method, r.URL.Path, err)
}
