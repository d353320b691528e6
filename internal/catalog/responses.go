package catalog

import (
	"strconv"
	"time"
)

// Wire types for the catalog API. Only the fields the player needs are
// decoded; everything else in the payloads is ignored.

type trackResponse struct {
	ID          json64 `json:"id"`
	Title       string `json:"title"`
	TrackNumber int    `json:"track_number"`
	Duration    int    `json:"duration"` // seconds
	Hires       bool   `json:"hires_streamable"`
	Performer   struct {
		Name string `json:"name"`
	} `json:"performer"`
	Album struct {
		Title string `json:"title"`
		Image struct {
			Large string `json:"large"`
		} `json:"image"`
	} `json:"album"`
}

func (r trackResponse) toTrack() Track {
	return Track{
		ID:          string(r.ID),
		Title:       r.Title,
		Artist:      r.Performer.Name,
		Album:       r.Album.Title,
		TrackNumber: r.TrackNumber,
		Duration:    time.Duration(r.Duration) * time.Second,
		CoverURL:    r.Album.Image.Large,
		HiresAvail:  r.Hires,
	}
}

type albumResponse struct {
	ID     json64 `json:"id"`
	Title  string `json:"title"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
	ReleaseDate string `json:"release_date_original"`
	Image       struct {
		Large string `json:"large"`
	} `json:"image"`
	Tracks struct {
		Items []trackResponse `json:"items"`
	} `json:"tracks"`
}

func (r albumResponse) toAlbum() Album {
	a := Album{
		ID:       string(r.ID),
		Title:    r.Title,
		Artist:   r.Artist.Name,
		CoverURL: r.Image.Large,
	}
	if len(r.ReleaseDate) >= 4 {
		a.Year, _ = strconv.Atoi(r.ReleaseDate[:4])
	}
	for _, t := range r.Tracks.Items {
		track := t.toTrack()
		// nested album payloads omit the album block
		if track.Album == "" {
			track.Album = r.Title
		}
		if track.Artist == "" {
			track.Artist = r.Artist.Name
		}
		if track.CoverURL == "" {
			track.CoverURL = r.Image.Large
		}
		a.Tracks = append(a.Tracks, track)
	}
	return a
}

type playlistResponse struct {
	ID     json64 `json:"id"`
	Name   string   `json:"name"`
	Images []string `json:"images"`
	Tracks struct {
		Items []trackResponse `json:"items"`
	} `json:"tracks"`
}

func (r playlistResponse) toPlaylist() Playlist {
	p := Playlist{
		ID:    string(r.ID),
		Title: r.Name,
	}
	if len(r.Images) > 0 {
		p.CoverURL = r.Images[0]
	}
	for _, t := range r.Tracks.Items {
		p.Tracks = append(p.Tracks, t.toTrack())
	}
	return p
}

type searchResponse struct {
	Tracks struct {
		Items []trackResponse `json:"items"`
	} `json:"tracks"`
	Albums struct {
		Items []albumResponse `json:"items"`
	} `json:"albums"`
	Playlists struct {
		Items []playlistResponse `json:"items"`
	} `json:"playlists"`
}

func (r searchResponse) toResults() *SearchResults {
	res := &SearchResults{}
	for _, t := range r.Tracks.Items {
		res.Tracks = append(res.Tracks, t.toTrack())
	}
	for _, a := range r.Albums.Items {
		res.Albums = append(res.Albums, a.toAlbum())
	}
	for _, p := range r.Playlists.Items {
		res.Playlists = append(res.Playlists, p.toPlaylist())
	}
	return res
}

type favoritesResponse struct {
	Tracks struct {
		Items []trackResponse `json:"items"`
	} `json:"tracks"`
	Albums struct {
		Items []albumResponse `json:"items"`
	} `json:"albums"`
	Playlists struct {
		Items []playlistResponse `json:"items"`
	} `json:"playlists"`
}

func (r favoritesResponse) toFavorites() *Favorites {
	fav := &Favorites{}
	for _, t := range r.Tracks.Items {
		fav.Tracks = append(fav.Tracks, t.toTrack())
	}
	for _, a := range r.Albums.Items {
		fav.Albums = append(fav.Albums, a.toAlbum())
	}
	for _, p := range r.Playlists.Items {
		fav.Playlists = append(fav.Playlists, p.toPlaylist())
	}
	return fav
}

type streamResponse struct {
	URL          string  `json:"url"`
	MimeType     string  `json:"mime_type"`
	SamplingRate float64 `json:"sampling_rate"` // kHz
	BitDepth     int     `json:"bit_depth"`
	Duration     int     `json:"duration"` // seconds
}

// streamURLLifespan is how long a signed URL without an explicit expiry is
// considered usable.
const streamURLLifespan = 20 * time.Minute

func (r streamResponse) toDescriptor(trackID string) *StreamDescriptor {
	codec := "flac"
	if r.MimeType == "audio/mpeg" {
		codec = "mp3"
	}
	return &StreamDescriptor{
		TrackID:    trackID,
		URL:        r.URL,
		Codec:      codec,
		SampleRate: int(r.SamplingRate * 1000),
		BitDepth:   r.BitDepth,
		Duration:   time.Duration(r.Duration) * time.Second,
		ExpiresAt:  time.Now().Add(streamURLLifespan),
	}
}

// json64 decodes ids that the service sends as either strings or numbers.
type json64 string

func (j *json64) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	*j = json64(s)
	return nil
}
