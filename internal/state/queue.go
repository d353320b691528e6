package state

import (
	"database/sql"
	"errors"

	dbutil "github.com/llehouerou/hifi/internal/db"
)

// QueueTrack represents a track in the saved queue.
type QueueTrack struct {
	TrackID     string
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	DurationMs  int64
	CoverURL    string
}

// QueueState represents the saved queue state.
type QueueState struct {
	CurrentIndex int
	RepeatMode   int
	Shuffle      bool
	Tracks       []QueueTrack
}

// GetQueue returns the persisted queue, or an empty one on first run.
func (m *Manager) GetQueue() (*QueueState, error) {
	var currentIndex, repeatMode int
	var shuffle bool
	row := m.db.QueryRow(`SELECT current_index, repeat_mode, shuffle FROM queue_state WHERE id = 1`)
	err := row.Scan(&currentIndex, &repeatMode, &shuffle)
	if errors.Is(err, sql.ErrNoRows) {
		return &QueueState{CurrentIndex: -1}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := m.db.Query(`
		SELECT track_id, title, artist, album, track_number, duration_ms, cover_url
		FROM queue_tracks
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []QueueTrack
	for rows.Next() {
		var t QueueTrack
		var artist, album, coverURL sql.NullString
		var trackNumber, durationMs sql.NullInt64

		err := rows.Scan(&t.TrackID, &t.Title, &artist, &album, &trackNumber, &durationMs, &coverURL)
		if err != nil {
			return nil, err
		}

		t.Artist = dbutil.NullStringValue(artist)
		t.Album = dbutil.NullStringValue(album)
		t.TrackNumber = int(dbutil.NullInt64Value(trackNumber))
		t.DurationMs = dbutil.NullInt64Value(durationMs)
		t.CoverURL = dbutil.NullStringValue(coverURL)
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueueState{
		CurrentIndex: currentIndex,
		RepeatMode:   repeatMode,
		Shuffle:      shuffle,
		Tracks:       tracks,
	}, nil
}

// SaveQueue atomically replaces the persisted queue. The write is
// synchronous: when SaveQueue returns nil the mutation is durable.
func (m *Manager) SaveQueue(state QueueState) error {
	return dbutil.WithTx(m.db, func(tx *sql.Tx) error {
		// Clear existing queue
		_, err := tx.Exec(`DELETE FROM queue_tracks`)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO queue_state (id, current_index, repeat_mode, shuffle)
			VALUES (1, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				repeat_mode = excluded.repeat_mode,
				shuffle = excluded.shuffle
		`, state.CurrentIndex, state.RepeatMode, state.Shuffle)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_tracks (position, track_id, title, artist, album, track_number, duration_ms, cover_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range state.Tracks {
			_, err = stmt.Exec(i, t.TrackID, t.Title, t.Artist, t.Album, t.TrackNumber, t.DurationMs, t.CoverURL)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
