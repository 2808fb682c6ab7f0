package audio

import (
	"bytes"
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/mrdg/waltz/waltz"
)

func TestWriteSMF(t *testing.T) {
	song := waltzSong(t)
	var buf bytes.Buffer
	if err := WriteSMF(&buf, song, 90); err != nil {
		t.Fatal(err)
	}

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if want, got := smf.MetricTicks(ticksPerBeat), s.TimeFormat; want != got {
		t.Errorf("want time format %v, got %v", want, got)
	}
	if want, got := 1, len(s.Tracks); want != got {
		t.Fatalf("want %v track, got %v", want, got)
	}

	var (
		tick       uint32
		starts     []uint32
		ends       int
		bpm        float64
		num, denom uint8
	)
	for _, ev := range s.Tracks[0] {
		tick += ev.Delta
		var ch, key, vel uint8
		msg := midi.Message(ev.Message)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			starts = append(starts, tick)
		case msg.GetNoteEnd(&ch, &key):
			ends++
		case ev.Message.GetMetaTempo(&bpm):
		case ev.Message.GetMetaMeter(&num, &denom):
		}
	}

	events := song.Events()
	if want, got := len(events), len(starts); want != got {
		t.Fatalf("want %v note starts, got %v", want, got)
	}
	if want, got := len(events), ends; want != got {
		t.Errorf("want %v note ends, got %v", want, got)
	}
	for i, ev := range events {
		if want, got := beatTicks(ev.Onset), starts[i]; want != got {
			t.Errorf("note %d: want start tick %v, got %v", i, want, got)
		}
	}
	if bpm < 89.99 || bpm > 90.01 {
		t.Errorf("want tempo 90, got %v", bpm)
	}
	if num != 3 || denom != 4 {
		t.Errorf("want 3/4 meter, got %d/%d", num, denom)
	}
}

func TestWriteSMFErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSMF(&buf, twoSlotSong(t), 0); !errors.Is(err, waltz.ErrInvalidTempo) {
		t.Errorf("want ErrInvalidTempo, got %v", err)
	}
	song := &waltz.Song{Measures: []waltz.SlotMeasure{
		{Slot: 4, Events: []waltz.NoteEvent{{Pitch: "H2", Onset: 12, Duration: 1}}},
	}}
	var perr *waltz.PitchError
	if err := WriteSMF(&buf, song, 120); !errors.As(err, &perr) || perr.Slot != 4 {
		t.Errorf("want PitchError in slot 4, got %v", err)
	}
}
