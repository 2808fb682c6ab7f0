package audio

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	propCutoff     = "cutoff"
	propEnvAttack  = "env.attack"
	propEnvDecay   = "env.decay"
	propEnvSustain = "env.sustain"
	propWave       = "wave"
)

// Synth is a subtractive synthesizer that can play any midi key, used when
// no samples are available.
func Synth(props *Props) *Instrument {
	params := synthParams{
		cutoff:     props.MustRegister(propCutoff, setFloat64(20, 20_000), 2400.0),
		envAttack:  props.MustRegister(propEnvAttack, setEnvParam, 0.005),
		envDecay:   props.MustRegister(propEnvDecay, setEnvParam, 0.8),
		envSustain: props.MustRegister(propEnvSustain, setFloat64(0, 1), 0.4),
		envRelease: props.MustRegister(propEnvRelease, setEnvParam, 0.06),
		wave:       props.MustRegister(propWave, setWaveform, "triangle"),
	}
	voices := make([]Voice, numVoices)
	for n := range voices {
		voices[n] = &synthVoice{
			params: params,
			state:  stateFree,
			filter: &filter{},
			buf:    make([]float64, blockSize),
		}
	}
	return NewInstrument(props, voices, func(key int) bool {
		return key >= 0 && key <= 127
	})
}

type synthParams struct {
	cutoff     *atomic.Value
	envAttack  *atomic.Value
	envDecay   *atomic.Value
	envSustain *atomic.Value
	envRelease *atomic.Value
	wave       *atomic.Value
}

type synthVoice struct {
	params    synthParams
	buf       []float64
	osc       osc
	filter    *filter
	env       envelope
	state     voiceState
	remaining int
}

func (v *synthVoice) Start(key, duration int) {
	freq := keyFreq(key)
	v.remaining = duration
	v.env = envelope{
		attack:  loadFloat(v.params.envAttack),
		decay:   loadFloat(v.params.envDecay),
		sustain: loadFloat(v.params.envSustain),
		release: loadFloat(v.params.envRelease),
	}
	v.env.startAttack()
	v.osc.start(freq, v.params.wave.Load().(string))
	v.filter.reset()
	v.filter.lowpass(loadFloat(v.params.cutoff))
	v.state = stateActive
}

func (v *synthVoice) Process(buf []float64) {
	if len(v.buf) < len(buf) {
		v.buf = make([]float64, len(buf))
	}
	tmp := v.buf[:len(buf)]
	v.osc.process(tmp)
	v.filter.process(tmp)
	v.env.process(tmp)
	for n := range tmp {
		buf[n] += 0.2 * tmp[n]
		tmp[n] = 0
	}
	v.remaining -= len(buf)
	if v.remaining <= 0 && v.state == stateActive {
		v.state = stateReleased
		v.env.startRelease()
	}
	if v.env.idle() {
		v.state = stateFree
	}
}

func (v *synthVoice) State() voiceState { return v.state }

// osc is a naive oscillator. phase counts cycles in [0, 1).
type osc struct {
	phase float64
	inc   float64
	wave  func(phase float64) float64
}

var waveforms = map[string]func(float64) float64{
	"sine": func(p float64) float64 {
		return math.Sin(2 * math.Pi * p)
	},
	"triangle": func(p float64) float64 {
		return 1 - 4*math.Abs(p-0.5)
	},
	"saw": func(p float64) float64 {
		return 2*p - 1
	},
	"square": func(p float64) float64 {
		if p < 0.5 {
			return 1
		}
		return -1
	},
}

func (o *osc) start(freq float64, wave string) {
	o.phase = 0
	o.inc = freq / sampleRate
	o.wave = waveforms[wave]
}

func (o *osc) process(buf []float64) {
	for n := range buf {
		buf[n] += o.wave(o.phase)
		o.phase += o.inc
		if o.phase >= 1 {
			o.phase--
		}
	}
}

func setWaveform(v any, dest *atomic.Value) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("value is not a string: %v", v)
	}
	if _, ok := waveforms[s]; !ok {
		return fmt.Errorf("not a valid waveform type: %v", s)
	}
	dest.Store(s)
	return nil
}

// filter is a biquad lowpass based on https://www.w3.org/2011/audio/audio-eq-cookbook.html
type filter struct {
	b0, b1, b2, a1, a2 float64
	y1, y2             float64
}

func (f *filter) process(buf []float64) {
	for n := range buf {
		in := buf[n]
		out := f.b0*in + f.y1
		buf[n] = out
		f.y1 = f.b1*in - f.a1*out + f.y2
		f.y2 = f.b2*in - f.a2*out
	}
}

func (f *filter) reset() {
	f.y1, f.y2 = 0, 0
}

// lowpass sets the coefficients for a second order lowpass at cutoff Hz
// with a Q of 1.
func (f *filter) lowpass(cutoff float64) {
	w := 2 * math.Pi * cutoff / sampleRate
	cosw := math.Cos(w)
	alpha := math.Sin(w) / 2
	norm := 1 / (1 + alpha)

	f.b1 = (1 - cosw) * norm
	f.b0 = f.b1 / 2
	f.b2 = f.b0
	f.a1 = -2 * cosw * norm
	f.a2 = (1 - alpha) * norm
}

func keyFreq(key int) float64 {
	return math.Pow(2, float64(key-69)/12.0) * 440
}
