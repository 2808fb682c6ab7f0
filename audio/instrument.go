package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/mrdg/waltz/waltz"
)

const (
	blockSize  = 16 // this gives about 0.35ms accuracy for triggered notes
	sampleRate = 44100
	bufferSize = 512
)

// SampleRate is the output rate of every instrument, in frames per second.
const SampleRate = sampleRate

// BufferSize is the number of frames requested per audio callback.
const BufferSize = bufferSize

const (
	numVoices = 24
	queueSize = 256
)

// ErrQueueFull is returned by Play when the audio callback has fallen behind.
var ErrQueueFull = errors.New("trigger queue full")

type voiceState int

const (
	stateFree voiceState = iota
	stateActive
	stateReleased
)

type event struct {
	key      int // midi key number
	duration int // frames before release
}

type Voice interface {
	Start(key, duration int)
	Process(buf []float64)
	State() voiceState
}

// Instrument mixes a pool of voices. Play may be called from one goroutine
// while the audio callback calls Process from another.
type Instrument struct {
	*Props
	voices []Voice
	events *eventBuffer
	buf    []float64
	level  *atomic.Value
	bpm    atomic.Value
	has    func(key int) bool
	log    *slog.Logger
}

const (
	propLevel      = "level"
	propEnvRelease = "env.release"
)

func NewInstrument(props *Props, voices []Voice, has func(key int) bool) *Instrument {
	instrument := &Instrument{
		Props:  props,
		voices: voices,
		events: newEventBuffer(queueSize),
		buf:    make([]float64, bufferSize),
		level:  props.MustRegister(propLevel, setLevel, 0.),
		has:    has,
		log:    slog.Default(),
	}
	instrument.bpm.Store(120.0)
	return instrument
}

// SetLogger replaces the logger used by the audio callback.
func (i *Instrument) SetLogger(l *slog.Logger) { i.log = l }

// SetTempo sets the tempo used to convert note lengths from beats to frames.
func (i *Instrument) SetTempo(bpm float64) {
	i.bpm.Store(bpm)
}

// Play queues pitch to start at the next audio block and release after beats.
func (i *Instrument) Play(pitch string, beats float64) error {
	p, err := waltz.ParsePitch(pitch)
	if err != nil {
		return err
	}
	key := p.Key()
	if !i.has(key) {
		return &waltz.PitchError{Pitch: pitch, Slot: -1}
	}
	bpm := i.bpm.Load().(float64)
	ev := event{
		key:      key,
		duration: int(math.Round(beats * 60 / bpm * sampleRate)),
	}
	if !i.events.push(ev) {
		return fmt.Errorf("play %s: %w", pitch, ErrQueueFull)
	}
	return nil
}

// Process adds the instrument output to both channels of samples. Queued
// notes start at the beginning of the buffer.
func (i *Instrument) Process(samples [][]float32) {
	frames := len(samples[0])
	if len(i.buf) < frames {
		i.buf = make([]float64, frames)
	}
	buf := i.buf[:frames]
	i.events.drain(i.start)
	for n := 0; n < frames; n += blockSize {
		end := min(n+blockSize, frames)
		for _, voice := range i.voices {
			if voice.State() == stateFree {
				continue
			}
			voice.Process(buf[n:end])
		}
	}
	gain := math.Pow(10, loadFloat(i.level)/20.0)
	for n := range buf {
		sample := float32(gain * buf[n])
		samples[0][n] += sample
		samples[1][n] += sample
		buf[n] = 0
	}
}

func (i *Instrument) start(ev event) {
	voice := i.findFreeVoice()
	if voice == nil {
		i.log.Warn("instrument: no free voice available", "key", ev.key)
		return
	}
	voice.Start(ev.key, ev.duration)
}

func (i *Instrument) findFreeVoice() Voice {
	for _, voice := range i.voices {
		if voice.State() == stateFree {
			return voice
		}
	}
	return nil
}

// Active reports whether any voice is still sounding.
func (i *Instrument) Active() bool {
	if i.events.len() > 0 {
		return true
	}
	for _, voice := range i.voices {
		if voice.State() != stateFree {
			return true
		}
	}
	return false
}
