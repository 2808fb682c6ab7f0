package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/youpy/go-wav"
)

// Source produces stereo audio into the buffers it is given.
type Source interface {
	Process([][]float32)
}

// Renderer is a Clock that renders its source instead of waiting, so a
// Scheduler driven by it produces a recording as fast as the CPU allows.
type Renderer struct {
	src    Source
	frames int
	block  [][]float32
	out    [2][]float32
}

func NewRenderer(src Source) *Renderer {
	return &Renderer{
		src:   src,
		block: [][]float32{make([]float32, blockSize), make([]float32, blockSize)},
	}
}

func (r *Renderer) Now() time.Duration {
	return framesToDuration(r.frames)
}

// Sleep renders d worth of audio, rounded up to whole blocks. At least one
// block is rendered so that time always advances.
func (r *Renderer) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := max(durationToFrames(r.Now()+d), r.frames+blockSize)
	for r.frames < target {
		r.render()
	}
	return nil
}

// Tail renders until the source goes quiet or limit has passed.
func (r *Renderer) Tail(limit time.Duration) {
	type activer interface{ Active() bool }
	end := r.frames + durationToFrames(limit)
	a, ok := r.src.(activer)
	for r.frames < end && (!ok || a.Active()) {
		r.render()
	}
}

func (r *Renderer) render() {
	for ch := range r.block {
		clear(r.block[ch])
	}
	r.src.Process(r.block)
	r.out[0] = append(r.out[0], r.block[0]...)
	r.out[1] = append(r.out[1], r.block[1]...)
	r.frames += blockSize
}

// Frames returns the number of rendered frames.
func (r *Renderer) Frames() int { return r.frames }

// Samples returns the rendered left and right channels.
func (r *Renderer) Samples() [2][]float32 { return r.out }

// WriteWAV encodes the rendered audio as 16 bit stereo PCM.
func (r *Renderer) WriteWAV(w io.Writer) error {
	return WriteWAV(w, r.out[0], r.out[1])
}

// WriteWAV encodes two channels of equal length as 16 bit stereo PCM.
func WriteWAV(w io.Writer, left, right []float32) error {
	if len(left) != len(right) {
		return fmt.Errorf("channel length mismatch: %d != %d", len(left), len(right))
	}
	samples := make([]wav.Sample, len(left))
	for i := range samples {
		samples[i].Values[0] = pcm16(left[i])
		samples[i].Values[1] = pcm16(right[i])
	}
	ww := wav.NewWriter(w, uint32(len(samples)), 2, sampleRate, 16)
	return ww.WriteSamples(samples)
}

func pcm16(v float32) int {
	const scale = 1<<15 - 1
	f := math.Max(-1, math.Min(1, float64(v)))
	return int(math.Round(f * scale))
}

func durationToFrames(d time.Duration) int {
	n := int(math.Ceil(d.Seconds() * sampleRate))
	if rem := n % blockSize; rem != 0 {
		n += blockSize - rem
	}
	return n
}

func framesToDuration(frames int) time.Duration {
	return time.Duration(float64(frames) / sampleRate * float64(time.Second))
}
