// Package waltz generates 16-measure waltzes from Mozart's musical dice game.
//
// A corpus of 176 pre-composed measures is parsed from (pitch, onset, duration)
// records, two dice are rolled for each of the 16 output slots and the outcome
// selects a measure through a fixed lookup table. The selected measures are
// shifted in time so that they line up one after the other.
package waltz

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BeatsPerMeasure is fixed by the 3/4 meter of the corpus.
const BeatsPerMeasure = 3

// NoteEvent is a single sounded pitch. Onset is relative to the start of the
// corpus before composition and to the start of the piece afterwards.
type NoteEvent struct {
	Pitch    string
	Onset    float64 // in beats
	Duration float64 // in beats
}

func (n NoteEvent) End() float64 { return n.Onset + n.Duration }

func (n NoteEvent) String() string {
	return fmt.Sprintf("%s@%s", n.Pitch, formatBeat(n.Onset))
}

// Measure is an ordered group of note events sharing one 3-beat window.
// Index is 1-based.
type Measure struct {
	Index  int
	Events []NoteEvent
}

// Window returns the index k of the window [3k, 3k+3) the measure starts in.
func (m Measure) Window() int {
	if len(m.Events) == 0 {
		return 0
	}
	return int(math.Floor(m.Events[0].Onset / BeatsPerMeasure))
}

func (m Measure) clone() Measure {
	events := make([]NoteEvent, len(m.Events))
	copy(events, m.Events)
	return Measure{Index: m.Index, Events: events}
}

func formatBeat(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}

var pitchClasses = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

var classNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Pitch is a scale step and octave in scientific pitch notation.
type Pitch struct {
	Class  int // semitones above C, 0-11
	Octave int
}

// ParsePitch parses names like "C3", "F#4" or "Bb2".
func ParsePitch(name string) (Pitch, error) {
	s := strings.TrimSpace(name)
	if len(s) < 2 {
		return Pitch{}, &PitchError{Pitch: name, Slot: -1}
	}
	class, ok := pitchClasses[s[0]]
	if !ok {
		return Pitch{}, &PitchError{Pitch: name, Slot: -1}
	}
	s = s[1:]
	switch s[0] {
	case '#':
		class++
		s = s[1:]
	case 'b':
		class--
		s = s[1:]
	}
	octave, err := strconv.Atoi(s)
	if err != nil {
		return Pitch{}, &PitchError{Pitch: name, Slot: -1}
	}
	// B#3 is C4, Cb4 is B3
	switch {
	case class < 0:
		class += 12
		octave--
	case class > 11:
		class -= 12
		octave++
	}
	return Pitch{Class: class, Octave: octave}, nil
}

// Key returns the midi note number, C4 being 60.
func (p Pitch) Key() int {
	return (p.Octave+1)*12 + p.Class
}

// Freq returns the equal temperament frequency with A4 at 440Hz.
func (p Pitch) Freq() float64 {
	return 440 * math.Pow(2, float64(p.Key()-69)/12.0)
}

func (p Pitch) String() string {
	return classNames[p.Class] + strconv.Itoa(p.Octave)
}
