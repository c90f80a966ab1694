package stage

import "strings"

// FontSize is one of the discrete display scales, ordered smallest first
type FontSize int

const (
	FontSmall FontSize = iota
	FontMedium
	FontLarge
	FontXLarge
)

var fontSizeNames = [...]string{"small", "medium", "large", "xlarge"}

func (f FontSize) String() string {
	if f < FontSmall || f > FontXLarge {
		return "unknown"
	}
	return fontSizeNames[f]
}

// ParseFontSize maps a config value to a FontSize, falling back to large
func ParseFontSize(s string) FontSize {
	for i, name := range fontSizeNames {
		if strings.EqualFold(s, name) {
			return FontSize(i)
		}
	}
	return FontLarge
}

// MaxTranspose bounds transposition in either direction (one octave minus a semitone)
const MaxTranspose = 11

// Settings are the per-session display settings. They are not persisted.
type Settings struct {
	FontSize    FontSize
	DarkMode    bool
	ShowChords  bool
	ShowLyrics  bool
	AutoScroll  bool
	ScrollSpeed float64
	Transpose   int
	Metronome   bool
	BPM         int // Metronome tempo; 0 follows the current song
}

// DefaultSettings returns the settings a fresh stage session starts with
func DefaultSettings() Settings {
	return Settings{
		FontSize:    FontLarge,
		DarkMode:    true,
		ShowChords:  true,
		ShowLyrics:  true,
		AutoScroll:  false,
		ScrollSpeed: 1,
		Transpose:   0,
		Metronome:   false,
	}
}
