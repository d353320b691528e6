package queue

import (
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/state"
)

// Track is a queue entry. This is a copy of the catalog data, not a
// reference to it; the queue owns its entries.
type Track struct {
	ID          string
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    time.Duration
	CoverURL    string
}

// FromCatalog converts a catalog track into a queue entry.
func FromCatalog(t catalog.Track) Track {
	return Track{
		ID:          t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		TrackNumber: t.TrackNumber,
		Duration:    t.Duration,
		CoverURL:    t.CoverURL,
	}
}

func fromState(t state.QueueTrack) Track {
	return Track{
		ID:          t.TrackID,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		TrackNumber: t.TrackNumber,
		Duration:    time.Duration(t.DurationMs) * time.Millisecond,
		CoverURL:    t.CoverURL,
	}
}

func toState(t Track) state.QueueTrack {
	return state.QueueTrack{
		TrackID:     t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		TrackNumber: t.TrackNumber,
		DurationMs:  t.Duration.Milliseconds(),
		CoverURL:    t.CoverURL,
	}
}
