package main

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mrdg/waltz/history"
	"github.com/mrdg/waltz/waltz"
)

func TestRenderSong(t *testing.T) {
	song := &waltz.Song{Measures: []waltz.SlotMeasure{
		{Slot: 0, Roll: 7, Source: 104, Events: []waltz.NoteEvent{
			{Pitch: "C3", Onset: 0, Duration: 3},
			{Pitch: "E4", Onset: 1.5, Duration: 0.5},
		}},
	}}
	var out strings.Builder
	renderSong(&out, song)
	for _, want := range []string{"slot", "104", "C3@0", "E4@1.5"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}

func TestRenderTable(t *testing.T) {
	var out strings.Builder
	renderTable(&out, waltz.MozartTable)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// top border, header, separator, 16 rows, bottom border
	if want, got := waltz.Slots+4, len(lines); want != got {
		t.Fatalf("wrong number of lines: want %v, got %v\n%s", want, got, out.String())
	}
}

func TestRenderHistory(t *testing.T) {
	var out strings.Builder
	renderHistory(&out, nil)
	if !strings.Contains(out.String(), "no waltzes") {
		t.Fatalf("unexpected output for empty history: %q", out.String())
	}

	id := uuid.Must(uuid.NewV7())
	out.Reset()
	renderHistory(&out, []history.Entry{{ID: id, Created: time.Now(), Tempo: 96, Rolls: []int{2, 12, 7}}})
	for _, want := range []string{id.String(), "96", "2,12,7"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}
