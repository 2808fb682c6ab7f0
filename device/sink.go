// Package device connects instruments to audio and MIDI hardware.
package device

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/mrdg/waltz/audio"
)

// Sink is the default portaudio output stream. Sources added to it are mixed
// on every audio callback.
type Sink struct {
	mu      sync.Mutex
	sources []audio.Source
	stream  *portaudio.Stream
}

func NewSink() (*Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	var s Sink
	stream, err := portaudio.OpenDefaultStream(0, 2, audio.SampleRate, audio.BufferSize, s.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	s.stream = stream
	return &s, nil
}

func (s *Sink) Start() error {
	return s.stream.Start()
}

// Close stops the stream and releases portaudio.
func (s *Sink) Close() error {
	err := s.stream.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

func (s *Sink) AddSources(sources ...audio.Source) {
	s.mu.Lock()
	s.sources = append(s.sources, sources...)
	s.mu.Unlock()
}

func (s *Sink) Process(samples [][]float32) {
	for i := range samples {
		clear(samples[i])
	}
	s.mu.Lock()
	sources := s.sources
	s.mu.Unlock()
	for _, source := range sources {
		source.Process(samples)
	}
}
