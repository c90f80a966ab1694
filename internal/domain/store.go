package domain

import (
	"encoding/json"
	"time"
)

// CachedSong is the stored wrapper around an opaque song payload
type CachedSong struct {
	ID       string          `json:"id"`
	Payload  json.RawMessage `json:"payload"`
	Version  int             `json:"version"`
	CachedAt time.Time       `json:"cachedAt"`
}

// CachedSetlist is the stored wrapper around an opaque setlist payload and its ordered items
type CachedSetlist struct {
	ID       string            `json:"id"`
	Payload  json.RawMessage   `json:"payload"`
	Items    []json.RawMessage `json:"items"`
	Version  int               `json:"version"`
	CachedAt time.Time         `json:"cachedAt"`
}

// SetlistEntry is what a setlist read hands back: payload and items, no wrapper metadata
type SetlistEntry struct {
	Payload json.RawMessage
	Items   []json.RawMessage
}

// Store handles the local offline cache (BoltDB + memory).
// Reads report a miss with ok=false; errors are reserved for store failures.
type Store interface {
	Initialize() error

	// === Songs ===
	PutSong(id string, payload json.RawMessage, version int) error
	GetSong(id string) (json.RawMessage, bool, error)
	SongRecord(id string) (*CachedSong, bool, error)

	// === Setlists ===
	PutSetlist(id string, payload json.RawMessage, items []json.RawMessage, version int) error
	GetSetlist(id string) (*SetlistEntry, bool, error)
	PreloadSetlist(id string, payload json.RawMessage, items []json.RawMessage) error
	SetlistRecord(id string) (*CachedSetlist, bool, error)
	ListSetlists() ([]*CachedSetlist, error)

	Close() error
}
