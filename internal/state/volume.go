package state

import (
	"database/sql"
	"errors"
)

// VolumeState is the persisted volume, restored at startup so a restart
// does not blast the room at full level.
type VolumeState struct {
	Volume float64
	Muted  bool
}

// GetVolume returns the saved volume, or the full-level default when
// nothing has been persisted yet.
func (m *Manager) GetVolume() (*VolumeState, error) {
	v := &VolumeState{Volume: 1.0}

	row := m.db.QueryRow(`SELECT volume, muted FROM queue_state WHERE id = 1`)
	switch err := row.Scan(&v.Volume, &v.Muted); {
	case errors.Is(err, sql.ErrNoRows):
		return v, nil
	case err != nil:
		return nil, err
	}
	return v, nil
}

// SaveVolume persists level and mute together; mute keeps the underlying
// level so unmute restores it.
func (m *Manager) SaveVolume(volume float64, muted bool) error {
	_, err := m.db.Exec(`
		INSERT INTO queue_state (id, current_index, repeat_mode, shuffle, volume, muted)
		VALUES (1, -1, 0, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			muted = excluded.muted
	`, volume, muted)
	return err
}
