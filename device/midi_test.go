package device

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/mrdg/waltz/waltz"
)

type wire struct {
	mu   sync.Mutex
	msgs []midi.Message
}

func (w *wire) send(msg midi.Message) error {
	w.mu.Lock()
	w.msgs = append(w.msgs, msg)
	w.mu.Unlock()
	return nil
}

func (w *wire) messages() []midi.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]midi.Message(nil), w.msgs...)
}

func TestMIDIOutNoteOff(t *testing.T) {
	var w wire
	out := NewMIDIOut(w.send, 2)
	out.SetTempo(6000) // a beat is 10ms

	if err := out.Play("A4", 1); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(w.messages()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	msgs := w.messages()
	if want, got := 2, len(msgs); want != got {
		t.Fatalf("want %v messages, got %v", want, got)
	}
	var ch, key, vel uint8
	if !msgs[0].GetNoteStart(&ch, &key, &vel) || ch != 2 || key != 69 || vel != velocity {
		t.Errorf("want note on for key 69, got %v", msgs[0])
	}
	if !msgs[1].GetNoteEnd(&ch, &key) || key != 69 {
		t.Errorf("want note off for key 69, got %v", msgs[1])
	}
}

func TestMIDIOutClose(t *testing.T) {
	var w wire
	out := NewMIDIOut(w.send, 0)
	for _, pitch := range []string{"C3", "E3", "G3"} {
		if err := out.Play(pitch, 1000); err != nil {
			t.Fatal(err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	var ends int
	for _, msg := range w.messages() {
		var ch, key uint8
		if msg.GetNoteEnd(&ch, &key) {
			ends++
		}
	}
	if want, got := 3, ends; want != got {
		t.Errorf("want %v note offs on close, got %v", want, got)
	}
	if err := out.Play("C3", 1); err == nil {
		t.Error("expected error playing on a closed output")
	}
}

func TestMIDIOutUnknownPitch(t *testing.T) {
	var w wire
	out := NewMIDIOut(w.send, 0)
	if err := out.Play("Q1", 1); !errors.Is(err, waltz.ErrUnknownPitch) {
		t.Errorf("want ErrUnknownPitch, got %v", err)
	}
	if err := out.Play("C10", 1); !errors.Is(err, waltz.ErrUnknownPitch) {
		t.Errorf("want ErrUnknownPitch for key out of range, got %v", err)
	}
	if len(w.messages()) != 0 {
		t.Error("messages sent for rejected pitches")
	}
}

func TestMIDIOutRetriggerHeldKey(t *testing.T) {
	var w wire
	out := NewMIDIOut(w.send, 0)
	out.SetTempo(6000) // a beat is 10ms

	if err := out.Play("C3", 0.5); err != nil {
		t.Fatal(err)
	}
	if err := out.Play("C3", 30); err != nil {
		t.Fatal(err)
	}
	// the first note's timer would have fired by now
	time.Sleep(100 * time.Millisecond)

	msgs := w.messages()
	if want, got := 3, len(msgs); want != got {
		t.Fatalf("want %v messages while the second note sounds, got %v: %v", want, got, msgs)
	}
	var ch, key, vel uint8
	if !msgs[0].GetNoteStart(&ch, &key, &vel) || key != 48 {
		t.Errorf("want note on for key 48, got %v", msgs[0])
	}
	if !msgs[1].GetNoteEnd(&ch, &key) || key != 48 {
		t.Errorf("want note off before the retrigger, got %v", msgs[1])
	}
	if !msgs[2].GetNoteStart(&ch, &key, &vel) || key != 48 {
		t.Errorf("want second note on for key 48, got %v", msgs[2])
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(w.messages()) < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	msgs = w.messages()
	if want, got := 4, len(msgs); want != got {
		t.Fatalf("want %v messages after the second note ends, got %v", want, got)
	}
	if !msgs[3].GetNoteEnd(&ch, &key) || key != 48 {
		t.Errorf("want final note off for key 48, got %v", msgs[3])
	}
}

func TestMIDIOutNoteOffError(t *testing.T) {
	failed := make(chan struct{})
	send := func(msg midi.Message) error {
		var ch, key uint8
		if msg.GetNoteEnd(&ch, &key) {
			close(failed)
			return errors.New("port gone")
		}
		return nil
	}
	out := NewMIDIOut(send, 0)
	var logs strings.Builder
	var logMu sync.Mutex
	out.SetLogger(slog.New(slog.NewTextHandler(&lockedWriter{w: &logs, mu: &logMu}, nil)))
	out.SetTempo(6000)
	if err := out.Play("E4", 1); err != nil {
		t.Fatal(err)
	}
	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("note off was not sent")
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		logMu.Lock()
		s := logs.String()
		logMu.Unlock()
		if strings.Contains(s, "note off failed") {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("failed note off was not logged")
}

type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
