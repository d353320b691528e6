package web

import (
	"net/http"
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/queue"
	"github.com/llehouerou/hifi/internal/state"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, toStateJSON(s.svc.State()))
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, toQueueJSON(s.svc.QueueTracks(), s.svc.QueueIndex()))
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		PositionMs int64 `json:"position_ms"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.SeekTo(time.Duration(req.PositionMs) * time.Millisecond); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, volumeJSON{Level: s.svc.Volume(), Muted: s.svc.Muted()})
	case http.MethodPost:
		var req struct {
			Level float64 `json:"level"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := s.svc.SetVolume(req.Level); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, volumeJSON{Level: s.svc.Volume(), Muted: s.svc.Muted()})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleQueueJump(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.JumpTo(req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.Remove(req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleQueueMove(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.Move(req.From, req.To); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, map[string]bool{"shuffle": s.svc.ToggleShuffle()})
}

func (s *Server) handleRepeat(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, map[string]string{"repeat": s.svc.CycleRepeat().String()})
}

// --- catalog-backed operations ---

func (s *Server) handlePlayTrack(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.catalog.Track(r.Context(), req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.PlayTracks([]queue.Track{queue.FromCatalog(*t)}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePlayAlbum(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	album, err := s.catalog.Album(r.Context(), req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.PlayTracks(fromCatalogTracks(album.Tracks)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePlayPlaylist(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	pl, err := s.catalog.Playlist(r.Context(), req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.PlayTracks(fromCatalogTracks(pl.Tracks)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleQueueAdd appends a track, album or playlist to the queue without
// interrupting playback.
func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Kind string `json:"kind"` // track, album or playlist
		ID   string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var tracks []queue.Track
	switch req.Kind {
	case "", "track":
		t, err := s.catalog.Track(r.Context(), req.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		tracks = []queue.Track{queue.FromCatalog(*t)}
	case "album":
		album, err := s.catalog.Album(r.Context(), req.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		tracks = fromCatalogTracks(album.Tracks)
	case "playlist":
		pl, err := s.catalog.Playlist(r.Context(), req.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		tracks = fromCatalogTracks(pl.Tracks)
	default:
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}

	if err := s.svc.Append(tracks...); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]int{"added": len(tracks)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing query", http.StatusBadRequest)
		return
	}
	results, err := s.catalog.Search(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	out := struct {
		Tracks    []trackJSON       `json:"tracks"`
		Albums    []catalog.Album   `json:"albums"`
		Playlists []catalog.Playlist `json:"playlists"`
	}{
		Tracks:    make([]trackJSON, len(results.Tracks)),
		Albums:    results.Albums,
		Playlists: results.Playlists,
	}
	for i, t := range results.Tracks {
		out.Tracks[i] = catalogTrackJSON(t)
	}
	writeJSON(w, out)
}

// handleFavorites reads the local favorites list, or toggles one entry
// both locally and on the streaming catalog.
func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		kind := r.URL.Query().Get("kind")
		if kind == "" {
			kind = string(catalog.FavoriteTrack)
		}
		favs, err := s.store.ListFavorites(kind)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, favs)

	case http.MethodPost:
		var req struct {
			Kind     string `json:"kind"`
			ID       string `json:"id"`
			Favorite bool   `json:"favorite"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		kind := catalog.FavoriteKind(req.Kind)
		switch kind {
		case catalog.FavoriteTrack, catalog.FavoriteAlbum, catalog.FavoritePlaylist:
		default:
			http.Error(w, "unknown kind", http.StatusBadRequest)
			return
		}

		if err := s.catalog.SetFavorite(r.Context(), kind, req.ID, req.Favorite); err != nil {
			writeError(w, err)
			return
		}
		if req.Favorite {
			err := s.store.AddFavorite(state.Favorite{Kind: req.Kind, TargetID: req.ID})
			if err != nil {
				writeError(w, err)
				return
			}
		} else if err := s.store.RemoveFavorite(req.Kind, req.ID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- RFID link management ---

func (s *Server) handleRfidLinks(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	links, err := s.store.ListRfidLinks()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, links)
}

// handleRfidLink arms the reader: the next scanned tag is bound to the
// given target.
func (s *Server) handleRfidLink(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if s.linker == nil {
		http.Error(w, "no RFID reader attached", http.StatusNotImplemented)
		return
	}
	var req struct {
		Kind     string `json:"kind"`
		TargetID string `json:"target_id"`
		Label    string `json:"label"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Kind == "" || req.TargetID == "" {
		http.Error(w, "missing kind or target_id", http.StatusBadRequest)
		return
	}
	s.linker.ArmLink(state.RfidLink{Kind: req.Kind, TargetID: req.TargetID, Label: req.Label})
	writeJSON(w, map[string]string{"status": "armed"})
}

func (s *Server) handleRfidUnlink(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		TagID string `json:"tag_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.DeleteRfidLink(req.TagID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func fromCatalogTracks(in []catalog.Track) []queue.Track {
	out := make([]queue.Track, len(in))
	for i, t := range in {
		out[i] = queue.FromCatalog(t)
	}
	return out
}
