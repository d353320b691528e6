package catalog

import "time"

// Track is a streamable catalog item with display metadata.
type Track struct {
	ID          string
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    time.Duration
	CoverURL    string
	HiresAvail  bool
}

// StreamDescriptor is the resolved, playable form of a track.
// Descriptors are immutable once obtained; signed URLs expire at ExpiresAt.
type StreamDescriptor struct {
	TrackID    string
	URL        string
	Codec      string // "flac" or "mp3"
	SampleRate int
	BitDepth   int
	Duration   time.Duration
	ExpiresAt  time.Time
}

// Expired reports whether the descriptor's signed URL is past the given margin.
func (d StreamDescriptor) Expired(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(d.ExpiresAt)
}

// Album groups tracks under one release.
type Album struct {
	ID       string
	Title    string
	Artist   string
	Year     int
	CoverURL string
	Tracks   []Track
}

// Playlist is a service-side user playlist.
type Playlist struct {
	ID       string
	Title    string
	CoverURL string
	Tracks   []Track
}

// SearchResults holds one page of catalog search hits.
type SearchResults struct {
	Tracks    []Track
	Albums    []Album
	Playlists []Playlist
}

// FavoriteKind distinguishes favorite entries.
type FavoriteKind string

const (
	FavoriteTrack    FavoriteKind = "track"
	FavoriteAlbum    FavoriteKind = "album"
	FavoritePlaylist FavoriteKind = "playlist"
)

// Favorites holds the user's favorites, grouped by kind.
type Favorites struct {
	Tracks    []Track
	Albums    []Album
	Playlists []Playlist
}
