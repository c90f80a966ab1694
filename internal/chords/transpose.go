// Package chords transposes chord charts.
//
// Two chart styles are recognised: inline chords in brackets
// ("[G]Amazing [C]grace") and chord lines above lyrics, where every
// whitespace-separated token on the line is a chord.
package chords

import (
	"regexp"
	"strings"
)

var sharps = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
var flats = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

var noteIndex = map[string]int{
	"C": 0, "B#": 0,
	"C#": 1, "Db": 1,
	"D": 2,
	"D#": 3, "Eb": 3,
	"E": 4, "Fb": 4,
	"F": 5, "E#": 5,
	"F#": 6, "Gb": 6,
	"G": 7,
	"G#": 8, "Ab": 8,
	"A": 9,
	"A#": 10, "Bb": 10,
	"B": 11, "Cb": 11,
}

// root, quality, optional slash bass
var chordPattern = regexp.MustCompile(`^([A-G][#b]?)((?:maj|min|m|dim|aug|sus|add|[0-9]|[#b+°ø()-])*)(?:/([A-G][#b]?))?$`)

var bracketPattern = regexp.MustCompile(`\[([^\]\s]+)\]`)

// IsChord reports whether token is a chord symbol
func IsChord(token string) bool {
	return chordPattern.MatchString(token)
}

// Chord transposes a single chord symbol by semitones.
// Tokens that are not chords are returned unchanged.
func Chord(token string, semitones int) string {
	m := chordPattern.FindStringSubmatch(token)
	if m == nil {
		return token
	}
	useFlats := strings.Contains(m[1], "b")
	out := shift(m[1], semitones, useFlats) + m[2]
	if m[3] != "" {
		out += "/" + shift(m[3], semitones, useFlats)
	}
	return out
}

// Key transposes a key name such as "G" or "Bbm"
func Key(key string, semitones int) string {
	if key == "" {
		return ""
	}
	return Chord(key, semitones)
}

func shift(note string, semitones int, useFlats bool) string {
	idx, ok := noteIndex[note]
	if !ok {
		return note
	}
	idx = ((idx+semitones)%12 + 12) % 12
	if useFlats {
		return flats[idx]
	}
	return sharps[idx]
}

// Transpose shifts every chord in chart by semitones
func Transpose(chart string, semitones int) string {
	if semitones%12 == 0 || chart == "" {
		return chart
	}

	lines := strings.Split(chart, "\n")
	for i, line := range lines {
		if IsChordLine(line) {
			lines[i] = transposeChordLine(line, semitones)
			continue
		}
		lines[i] = bracketPattern.ReplaceAllStringFunc(line, func(s string) string {
			return "[" + Chord(s[1:len(s)-1], semitones) + "]"
		})
	}
	return strings.Join(lines, "\n")
}

// IsChordLine reports whether every token on line is a chord
func IsChordLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if f != "|" && !IsChord(f) {
			return false
		}
	}
	return true
}

// transposeChordLine keeps chords roughly above the syllables they were written over
func transposeChordLine(line string, semitones int) string {
	var b strings.Builder
	drift := 0 // columns the output is ahead of the input

	i := 0
	for i < len(line) {
		j := i
		if line[i] == ' ' {
			for j < len(line) && line[j] == ' ' {
				j++
			}
			gap := j - i - drift
			if i > 0 && gap < 1 {
				gap = 1 // never glue two chords together
			}
			if gap < 0 {
				gap = 0
			}
			drift += gap - (j - i)
			b.WriteString(strings.Repeat(" ", gap))
			i = j
			continue
		}
		for j < len(line) && line[j] != ' ' {
			j++
		}
		token := line[i:j]
		out := Chord(token, semitones)
		b.WriteString(out)
		drift += len(out) - len(token)
		i = j
	}
	return b.String()
}
