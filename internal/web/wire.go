package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/playback"
	"github.com/llehouerou/hifi/internal/queue"
)

// JSON wire types for the API.

type trackJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	TrackNumber int    `json:"track_number,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
	CoverURL    string `json:"cover_url,omitempty"`
}

type stateJSON struct {
	Status     string     `json:"status"`
	Track      *trackJSON `json:"track,omitempty"`
	Index      int        `json:"index"`
	PositionMs int64      `json:"position_ms"`
	DurationMs int64      `json:"duration_ms"`
	Volume     float64    `json:"volume"`
	Muted      bool       `json:"muted"`
	Repeat     string     `json:"repeat"`
	Shuffle    bool       `json:"shuffle"`
	Error      string     `json:"error,omitempty"`
}

type queueJSON struct {
	Tracks []trackJSON `json:"tracks"`
	Index  int         `json:"index"`
}

type positionJSON struct {
	PositionMs int64 `json:"position_ms"`
	DurationMs int64 `json:"duration_ms"`
}

type volumeJSON struct {
	Level float64 `json:"level"`
	Muted bool    `json:"muted"`
}

type messageJSON struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func toTrackJSON(t queue.Track) trackJSON {
	return trackJSON{
		ID:          t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		TrackNumber: t.TrackNumber,
		DurationMs:  t.Duration.Milliseconds(),
		CoverURL:    t.CoverURL,
	}
}

func catalogTrackJSON(t catalog.Track) trackJSON {
	return toTrackJSON(queue.FromCatalog(t))
}

func toStateJSON(st playback.State) stateJSON {
	out := stateJSON{
		Status:     st.Status.String(),
		Index:      st.Index,
		PositionMs: st.Position.Milliseconds(),
		DurationMs: st.Duration.Milliseconds(),
		Volume:     st.Volume,
		Muted:      st.Muted,
		Repeat:     st.Repeat.String(),
		Shuffle:    st.Shuffle,
	}
	if st.Track != nil {
		t := toTrackJSON(*st.Track)
		out.Track = &t
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	return out
}

func toQueueJSON(tracks []queue.Track, index int) queueJSON {
	out := queueJSON{Tracks: make([]trackJSON, len(tracks)), Index: index}
	for i, t := range tracks {
		out.Tracks[i] = toTrackJSON(t)
	}
	return out
}

func toPositionJSON(pos, dur time.Duration) positionJSON {
	return positionJSON{PositionMs: pos.Milliseconds(), DurationMs: dur.Milliseconds()}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps playback errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, playback.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.Is(err, playback.ErrInvalidInState), errors.Is(err, playback.ErrEmptyQueue):
		status = http.StatusConflict
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
