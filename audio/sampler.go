package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/youpy/go-wav"

	"github.com/mrdg/waltz/waltz"
)

// Sample is a mono recording of a single pitch.
type Sample struct {
	buf  []float64
	file string
}

// SampleBank maps midi key numbers to samples.
type SampleBank map[int]*Sample

// Pitches returns the names of the pitches in the bank in ascending order.
func (b SampleBank) Pitches() []string {
	keys := make([]int, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = waltz.Pitch{Class: k % 12, Octave: k/12 - 1}.String()
	}
	return names
}

func (b SampleBank) has(key int) bool {
	_, ok := b[key]
	return ok
}

// LoadSampleDir loads every <pitch>.wav file in dir, e.g. "F#4.wav". Files
// whose names are not pitches are skipped.
func LoadSampleDir(dir string) (SampleBank, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	if err != nil {
		return nil, err
	}
	bank := make(SampleBank)
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		pitch, err := waltz.ParsePitch(name)
		if err != nil {
			slog.Debug("sampler: skipping file", "file", file)
			continue
		}
		snd, err := LoadSample(file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		bank[pitch.Key()] = snd
	}
	if len(bank) == 0 {
		return nil, fmt.Errorf("no samples found in %s", dir)
	}
	return bank, nil
}

func LoadSample(file string) (*Sample, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snd := Sample{file: file}
	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return nil, err
	}
	if format.SampleRate != sampleRate {
		slog.Warn("sampler: sample rate mismatch", "file", file, "rate", format.SampleRate)
	}
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, sample := range samples {
			snd.buf = append(snd.buf, r.FloatValue(sample, 0))
		}
	}
	return &snd, nil
}

// Sampler plays the samples in bank. Pitches missing from the bank are
// rejected by Play.
func Sampler(props *Props, bank SampleBank) *Instrument {
	release := props.MustRegister(propEnvRelease, setEnvParam, 0.06)
	voices := make([]Voice, numVoices)
	for n := range voices {
		voices[n] = &samplerVoice{
			bank:    bank,
			release: release,
			state:   stateFree,
		}
	}
	return NewInstrument(props, voices, bank.has)
}

type samplerVoice struct {
	bank      SampleBank
	release   *atomic.Value
	env       envelope
	state     voiceState
	buf       []float64
	pos       int
	remaining int
}

func (v *samplerVoice) Start(key, duration int) {
	snd := v.bank[key]
	if snd == nil {
		return
	}
	v.buf = snd.buf
	v.pos = 0
	v.remaining = duration
	v.env = envelope{
		attack:  0.0005,
		decay:   0.0005,
		sustain: 1,
		release: loadFloat(v.release),
	}
	v.env.startAttack()
	v.state = stateActive
}

func (v *samplerVoice) Process(buf []float64) {
	for i := range buf {
		if v.state == stateActive && v.remaining <= 0 {
			v.state = stateReleased
			v.env.startRelease()
		}
		if v.pos >= len(v.buf) || (v.state == stateReleased && v.env.idle()) {
			v.reset()
			return
		}
		buf[i] += v.buf[v.pos] * v.env.value()
		v.pos++
		v.remaining--
	}
}

func (v *samplerVoice) reset() {
	v.buf = nil
	v.pos = 0
	v.state = stateFree
}

func (v *samplerVoice) State() voiceState { return v.state }
