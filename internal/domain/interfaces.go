package domain

import (
	"context"
	"encoding/json"
)

// Remote is read access to the backend collections.
// Payloads are returned verbatim so they can be cached opaquely.
type Remote interface {
	// FetchSetlist returns the setlist record
	FetchSetlist(ctx context.Context, setlistID string) (json.RawMessage, error)

	// FetchSetlistItems returns the setlist's items ordered by position
	FetchSetlistItems(ctx context.Context, setlistID string) ([]json.RawMessage, error)

	// FetchSong returns the song record
	FetchSong(ctx context.Context, songID string) (json.RawMessage, error)
}

// SetlistDirectory lists and edits setlist headers on the backend
type SetlistDirectory interface {
	FetchSetlists(ctx context.Context) ([]json.RawMessage, error)
	UpdateSetlist(ctx context.Context, setlistID string, patch map[string]any) error
}

// Connectivity reports whether the backend is currently reachable
type Connectivity interface {
	IsOnline() bool
}
