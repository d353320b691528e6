package state

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/hifi/internal/db"
)

// RfidLink binds a physical tag to a playable target.
type RfidLink struct {
	TagID    string
	Kind     string // "track", "album" or "playlist"
	TargetID string
	Label    string
}

// GetRfidLink looks up the target bound to a tag. Returns nil when the tag
// is unknown.
func (m *Manager) GetRfidLink(tagID string) (*RfidLink, error) {
	var link RfidLink
	var label sql.NullString
	row := m.db.QueryRow(`SELECT tag_id, kind, target_id, label FROM rfid_links WHERE tag_id = ?`, tagID)
	err := row.Scan(&link.TagID, &link.Kind, &link.TargetID, &label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	link.Label = dbutil.NullStringValue(label)
	return &link, nil
}

// SaveRfidLink binds (or rebinds) a tag to a target.
func (m *Manager) SaveRfidLink(link RfidLink) error {
	_, err := m.db.Exec(`
		INSERT INTO rfid_links (tag_id, kind, target_id, label, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tag_id) DO UPDATE SET
			kind = excluded.kind,
			target_id = excluded.target_id,
			label = excluded.label
	`, link.TagID, link.Kind, link.TargetID, link.Label, time.Now().Unix())
	return err
}

// DeleteRfidLink unbinds a tag.
func (m *Manager) DeleteRfidLink(tagID string) error {
	_, err := m.db.Exec(`DELETE FROM rfid_links WHERE tag_id = ?`, tagID)
	return err
}

// ListRfidLinks returns all tag bindings.
func (m *Manager) ListRfidLinks() ([]RfidLink, error) {
	rows, err := m.db.Query(`SELECT tag_id, kind, target_id, label FROM rfid_links ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []RfidLink
	for rows.Next() {
		var link RfidLink
		var label sql.NullString
		if err := rows.Scan(&link.TagID, &link.Kind, &link.TargetID, &label); err != nil {
			return nil, err
		}
		link.Label = dbutil.NullStringValue(label)
		links = append(links, link)
	}
	return links, rows.Err()
}
