package league

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrSnapshotNotFound = errors.New("league: snapshot not found")
	ErrValueNotSet      = errors.New("league: value not set")
)

// A Snapshot is the last payload successfully fetched from a league API path.
type Snapshot struct {
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
	Fetched time.Time       `json:"fetched"`
	Updated time.Time       `json:"updated"`
}

type Store interface {
	// Snapshots
	UpsertSnapshot(s *Snapshot) error
	LoadSnapshot(key string) (*Snapshot, error)
	ListSnapshots() ([]*Snapshot, error)
	DeleteSnapshot(key string) error

	// Meta
	SetMeta(key string, value interface{}) error
	GetMeta(key string, out interface{}) error
}
