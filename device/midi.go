package device

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/mrdg/waltz/audio"
	"github.com/mrdg/waltz/waltz"
)

const velocity = 100

// MIDIOut plays notes on a MIDI output port. A driver such as rtmididrv must
// be registered by the program. Note offs are sent from timers
// so Play never waits for a note to end. Each key has at most one pending
// note off: playing a sounding key again ends it and restarts it.
type MIDIOut struct {
	send    func(midi.Message) error
	channel uint8
	bpm     atomic.Value
	log     *slog.Logger
	mu      sync.Mutex
	timers  map[uint8]*time.Timer
	closed  bool
}

// OutPorts lists the names of the available MIDI output ports.
func OutPorts() []string {
	var names []string
	for _, port := range midi.GetOutPorts() {
		names = append(names, port.String())
	}
	return names
}

// OpenMIDI opens the first output port whose name contains name. An empty
// name selects the first port.
func OpenMIDI(name string, channel uint8) (*MIDIOut, error) {
	port, err := findOutPort(name)
	if err != nil {
		return nil, err
	}
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open midi port %s: %w", port, err)
	}
	return NewMIDIOut(send, channel), nil
}

func findOutPort(name string) (drivers.Out, error) {
	ports := midi.GetOutPorts()
	for _, port := range ports {
		if name == "" || strings.Contains(strings.ToLower(port.String()), strings.ToLower(name)) {
			return port, nil
		}
	}
	if name == "" {
		return nil, fmt.Errorf("no midi output ports")
	}
	return nil, fmt.Errorf("no midi output port matching %q", name)
}

// NewMIDIOut returns a MIDIOut writing messages with send.
func NewMIDIOut(send func(midi.Message) error, channel uint8) *MIDIOut {
	m := &MIDIOut{
		send:    send,
		channel: channel,
		log:     slog.Default(),
		timers:  make(map[uint8]*time.Timer),
	}
	m.bpm.Store(120.0)
	return m
}

// SetLogger replaces the logger used for note offs sent from timers.
func (m *MIDIOut) SetLogger(l *slog.Logger) { m.log = l }

func (m *MIDIOut) SetTempo(bpm float64) {
	m.bpm.Store(bpm)
}

func (m *MIDIOut) Play(pitch string, beats float64) error {
	p, err := waltz.ParsePitch(pitch)
	if err != nil {
		return err
	}
	key := p.Key()
	if key < 0 || key > 127 {
		return &waltz.PitchError{Pitch: pitch, Slot: -1}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("midi output closed")
	}
	k := uint8(key)
	if t, ok := m.timers[k]; ok {
		t.Stop()
		delete(m.timers, k)
		if err := m.send(midi.NoteOff(m.channel, k)); err != nil {
			return err
		}
	}
	if err := m.send(midi.NoteOn(m.channel, k, velocity)); err != nil {
		return err
	}
	var t *time.Timer
	t = time.AfterFunc(audio.BeatDuration(beats, m.bpm.Load().(float64)), func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.timers[k] != t {
			return
		}
		delete(m.timers, k)
		if err := m.send(midi.NoteOff(m.channel, k)); err != nil {
			m.log.Warn("midi: note off failed", "key", k, "err", err)
		}
	})
	m.timers[k] = t
	return nil
}

// Close sends note offs for every sounding note.
func (m *MIDIOut) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	var err error
	for key, t := range m.timers {
		t.Stop()
		if serr := m.send(midi.NoteOff(m.channel, key)); err == nil {
			err = serr
		}
	}
	clear(m.timers)
	return err
}

// CloseDriver releases the MIDI driver. Call it once before exiting.
func CloseDriver() {
	midi.CloseDriver()
}
