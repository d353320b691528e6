package state

import (
	"database/sql"
)

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	DB() *sql.DB
	SaveQueue(state QueueState) error
	GetQueue() (*QueueState, error)
	SaveVolume(volume float64, muted bool) error
	GetVolume() (*VolumeState, error)
	ListFavorites(kind string) ([]Favorite, error)
	AddFavorite(f Favorite) error
	RemoveFavorite(kind, targetID string) error
	GetRfidLink(tagID string) (*RfidLink, error)
	SaveRfidLink(link RfidLink) error
	DeleteRfidLink(tagID string) error
	ListRfidLinks() ([]RfidLink, error)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
