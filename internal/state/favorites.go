package state

import (
	"time"
)

// Favorite is a locally cached favorite entry.
type Favorite struct {
	Kind     string
	TargetID string
	Title    string
	Artist   string
	AddedAt  time.Time
}

// ListFavorites returns favorites, newest first, optionally filtered by kind.
func (m *Manager) ListFavorites(kind string) ([]Favorite, error) {
	query := `SELECT kind, target_id, title, artist, added_at FROM favorites`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY added_at DESC`

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favs []Favorite
	for rows.Next() {
		var f Favorite
		var addedAt int64
		if err := rows.Scan(&f.Kind, &f.TargetID, &f.Title, &f.Artist, &addedAt); err != nil {
			return nil, err
		}
		f.AddedAt = time.Unix(addedAt, 0)
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

// AddFavorite inserts or refreshes a favorite entry.
func (m *Manager) AddFavorite(f Favorite) error {
	addedAt := f.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	_, err := m.db.Exec(`
		INSERT INTO favorites (kind, target_id, title, artist, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, target_id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist
	`, f.Kind, f.TargetID, f.Title, f.Artist, addedAt.Unix())
	return err
}

// RemoveFavorite deletes a favorite entry.
func (m *Manager) RemoveFavorite(kind, targetID string) error {
	_, err := m.db.Exec(`DELETE FROM favorites WHERE kind = ? AND target_id = ?`, kind, targetID)
	return err
}
