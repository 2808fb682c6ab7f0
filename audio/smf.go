package audio

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/mrdg/waltz/waltz"
)

const (
	ticksPerBeat = 960
	midiVelocity = 100
)

type midiEvent struct {
	tick uint32
	on   bool
	key  uint8
}

// WriteSMF writes song as a single track Standard MIDI File in 3/4 at bpm.
func WriteSMF(w io.Writer, song *waltz.Song, bpm float64) error {
	if err := ValidateTempo(bpm); err != nil {
		return err
	}
	var events []midiEvent
	for _, m := range song.Measures {
		for _, ev := range m.Events {
			p, err := waltz.ParsePitch(ev.Pitch)
			if err != nil {
				return &waltz.PitchError{Pitch: ev.Pitch, Slot: m.Slot}
			}
			key := p.Key()
			if key < 0 || key > 127 {
				return &waltz.PitchError{Pitch: ev.Pitch, Slot: m.Slot}
			}
			events = append(events,
				midiEvent{tick: beatTicks(ev.Onset), on: true, key: uint8(key)},
				midiEvent{tick: beatTicks(ev.End()), key: uint8(key)},
			)
		}
	}
	// Note offs sort before note ons on the same tick so repeated keys retrigger.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	var tr smf.Track
	tr.Add(0, smf.MetaMeter(waltz.BeatsPerMeasure, 4))
	tr.Add(0, smf.MetaTempo(bpm))
	var last uint32
	for _, ev := range events {
		delta := ev.tick - last
		last = ev.tick
		if ev.on {
			tr.Add(delta, midi.NoteOn(0, ev.key, midiVelocity))
		} else {
			tr.Add(delta, midi.NoteOff(0, ev.key))
		}
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerBeat)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("smf: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("smf: %w", err)
	}
	return nil
}

func beatTicks(beats float64) uint32 {
	return uint32(math.Round(beats * ticksPerBeat))
}
