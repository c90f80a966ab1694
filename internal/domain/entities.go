package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Song is the rendered view of a song payload.
// The cache never decodes payloads; only the stage layer does.
type Song struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ArtistName    string `json:"artist_name,omitempty"`
	OriginalKey   string `json:"original_key,omitempty"`
	BPM           int    `json:"bpm,omitempty"`
	TimeSignature string `json:"time_signature,omitempty"`
	Lyrics        string `json:"lyrics,omitempty"`
	Chords        string `json:"chords,omitempty"`
}

// Setlist is the header record of a show's running order
type Setlist struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	ShowDate  string     `json:"show_date,omitempty"`
	Venue     string     `json:"venue,omitempty"`
	Locked    bool       `json:"locked"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// GetDescription returns secondary info for list display (e.g., "2026-10-31 · The Roxy")
func (s *Setlist) GetDescription() string {
	switch {
	case s.ShowDate != "" && s.Venue != "":
		return s.ShowDate + " · " + s.Venue
	case s.ShowDate != "":
		return s.ShowDate
	default:
		return s.Venue
	}
}

// SetlistItem is one slot in a setlist.
// Position is 1-based and defines playback order.
type SetlistItem struct {
	ID            string `json:"id,omitempty"`
	SongID        string `json:"song_id"`
	Position      int    `json:"position"`
	KeyOverride   string `json:"key_override,omitempty"`
	TempoOverride int    `json:"tempo_override,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Cues          string `json:"cues,omitempty"`
	IsEncore      bool   `json:"is_encore"`
	SegueToNext   bool   `json:"segue_to_next"`
}

// Key returns the key to perform the item in, preferring the per-show override
func (i SetlistItem) Key(song *Song) string {
	if i.KeyOverride != "" {
		return i.KeyOverride
	}
	if song != nil {
		return song.OriginalKey
	}
	return ""
}

// Tempo returns the BPM to perform the item at, preferring the per-show override
func (i SetlistItem) Tempo(song *Song) int {
	if i.TempoOverride > 0 {
		return i.TempoOverride
	}
	if song != nil {
		return song.BPM
	}
	return 0
}

// DecodeSong decodes an opaque song payload
func DecodeSong(payload json.RawMessage) (*Song, error) {
	var s Song
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to decode song: %w", err)
	}
	return &s, nil
}

// DecodeSetlist decodes an opaque setlist payload
func DecodeSetlist(payload json.RawMessage) (*Setlist, error) {
	var s Setlist
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to decode setlist: %w", err)
	}
	return &s, nil
}

// DecodeItems decodes setlist item records, keeping their order
func DecodeItems(raw []json.RawMessage) ([]SetlistItem, error) {
	items := make([]SetlistItem, 0, len(raw))
	for i, r := range raw {
		var item SetlistItem
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("failed to decode setlist item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// DistinctSongIDs returns each referenced song id once, in first-seen order
func DistinctSongIDs(items []SetlistItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.SongID == "" || seen[item.SongID] {
			continue
		}
		seen[item.SongID] = true
		ids = append(ids, item.SongID)
	}
	return ids
}
