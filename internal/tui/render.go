package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/encore/internal/chords"
	"github.com/mmcdole/encore/internal/domain"
	"github.com/mmcdole/encore/internal/stage"
	"github.com/mmcdole/encore/internal/tui/styles"
)

var sectionWords = []string{
	"verse", "chorus", "pre-chorus", "prechorus", "bridge", "intro", "outro",
	"solo", "tag", "interlude", "instrumental", "refrain", "coda", "ending",
}

var inlineChord = regexp.MustCompile(`\[([^\]\s]+)\]`)

// isSectionHeader matches "Verse 1", "[Chorus]", "Bridge:" and the like
func isSectionHeader(line string) bool {
	s := strings.ToLower(strings.TrimSpace(line))
	s = strings.Trim(s, "[]:")
	for _, w := range sectionWords {
		if s == w || strings.HasPrefix(s, w+" ") {
			rest := strings.TrimSpace(strings.TrimPrefix(s, w))
			return len(rest) <= 3
		}
	}
	return false
}

// chartSource picks the text to show: the chord chart when chords are on
// (or when it is all there is), plain lyrics otherwise
func chartSource(song *domain.Song, s stage.Settings) string {
	if song.Chords != "" && (s.ShowChords || song.Lyrics == "") {
		return chords.Transpose(song.Chords, s.Transpose)
	}
	return song.Lyrics
}

// RenderSong renders the content panel for one song.
// A nil song renders nothing.
func RenderSong(item domain.SetlistItem, song *domain.Song, s stage.Settings, width int) string {
	if song == nil {
		return ""
	}

	theme := styles.ThemeFor(s.DarkMode)
	scale := styles.ScaleFor(int(s.FontSize))
	margin := strings.Repeat(" ", scale.Margin)
	lyric := theme.Lyric.Bold(scale.BoldLyrics)

	var lines []string
	emit := func(text string, gap int) {
		lines = append(lines, margin+text)
		for i := 0; i < gap; i++ {
			lines = append(lines, "")
		}
	}

	if item.Cues != "" {
		emit(theme.Cue.Render("▶ "+item.Cues), 1)
	}
	if item.Notes != "" {
		emit(theme.Meta.Render(item.Notes), 1)
	}

	for _, line := range strings.Split(chartSource(song, s), "\n") {
		line = strings.TrimRight(line, " \t\r")
		switch {
		case line == "":
			emit("", 0)

		case isSectionHeader(line):
			emit(theme.Section.Render(strings.Trim(strings.TrimSpace(line), "[]:")), 0)

		case chords.IsChordLine(line):
			if s.ShowChords {
				emit(theme.Chord.Render(line), 0)
			}

		case inlineChord.MatchString(line):
			emit(renderInline(line, s, theme, lyric), scale.LineGap)

		default:
			if s.ShowLyrics {
				emit(lyric.Render(line), scale.LineGap)
			}
		}
	}

	if s.ShowChords && !s.ShowLyrics && song.Chords == "" {
		emit(theme.Dim.Render("No chord chart for this song"), 0)
	}

	return wrapLines(lines, width)
}

// renderInline handles "[G]Amazing [C]grace" lines
func renderInline(line string, s stage.Settings, theme styles.Theme, lyric lipgloss.Style) string {
	if !s.ShowChords {
		return lyric.Render(inlineChord.ReplaceAllString(line, ""))
	}
	if !s.ShowLyrics {
		found := inlineChord.FindAllStringSubmatch(line, -1)
		names := make([]string, len(found))
		for i, m := range found {
			names[i] = m[1]
		}
		return theme.Chord.Render(strings.Join(names, "  "))
	}

	var b strings.Builder
	last := 0
	for _, loc := range inlineChord.FindAllStringSubmatchIndex(line, -1) {
		b.WriteString(lyric.Render(line[last:loc[0]]))
		b.WriteString(theme.Chord.Render(line[loc[2]:loc[3]]))
		last = loc[1]
	}
	b.WriteString(lyric.Render(line[last:]))
	return b.String()
}

// wrapLines joins lines, hard-wrapping anything wider than width
func wrapLines(lines []string, width int) string {
	out := strings.Join(lines, "\n")
	if width <= 0 {
		return out
	}
	return lipgloss.NewStyle().Width(width).Render(out)
}

// SongHeading renders the title line of the chrome for the current item
func SongHeading(item domain.SetlistItem, song *domain.Song, s stage.Settings) (title, meta string) {
	scale := styles.ScaleFor(int(s.FontSize))

	if song == nil {
		return "Song unavailable", "not in the offline cache"
	}

	title = song.Title
	if scale.UpperTitles {
		title = strings.ToUpper(title)
	}

	var parts []string
	if song.ArtistName != "" {
		parts = append(parts, song.ArtistName)
	}
	if key := item.Key(song); key != "" {
		if s.Transpose != 0 {
			parts = append(parts, fmt.Sprintf("Key %s → %s (%+d)", key, chords.Key(key, s.Transpose), s.Transpose))
		} else {
			parts = append(parts, "Key "+key)
		}
	}
	if bpm := item.Tempo(song); bpm > 0 {
		parts = append(parts, fmt.Sprintf("%d BPM", bpm))
	}
	if song.TimeSignature != "" {
		parts = append(parts, song.TimeSignature)
	}
	return title, strings.Join(parts, " · ")
}
