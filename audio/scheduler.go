package audio

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mrdg/waltz/waltz"
)

// Sound starts a pitch sounding for a number of beats. Play must return
// quickly; it is called from the scheduler loop.
type Sound interface {
	Play(pitch string, beats float64) error
}

// TempoSetter is implemented by sounds that need the playback tempo to
// convert beats to time.
type TempoSetter interface {
	SetTempo(bpm float64)
}

// Trigger records one fired note.
type Trigger struct {
	Slot  int
	Pitch string
	Beats float64
	Onset float64       // beat position in the song
	Due   time.Duration // scheduled time since the start of playback
	At    time.Duration // time the note was actually triggered
	Err   error         // non-nil if the sound rejected the note
}

// Late returns how far behind schedule the trigger fired.
func (t Trigger) Late() time.Duration { return t.At - t.Due }

// Report summarizes a playback.
type Report struct {
	Triggers []Trigger
	Elapsed  time.Duration
}

// Failed returns the triggers the sound rejected.
func (r Report) Failed() []Trigger {
	var failed []Trigger
	for _, t := range r.Triggers {
		if t.Err != nil {
			failed = append(failed, t)
		}
	}
	return failed
}

// MaxLateness returns the largest trigger delay.
func (r Report) MaxLateness() time.Duration {
	var late time.Duration
	for _, t := range r.Triggers {
		late = max(late, t.Late())
	}
	return late
}

const (
	DefaultPollInterval = 2 * time.Millisecond
	MinPollInterval     = time.Millisecond
	MaxPollInterval     = 50 * time.Millisecond
)

// Scheduler plays composed songs in real time. Play sets the tempo on the
// Sound, so only one playback may run per Sound at a time.
type Scheduler struct {
	sound Sound
	clock Clock
	poll  time.Duration
	log   *slog.Logger
	hook  func(Trigger)
}

type Option func(*Scheduler)

// WithPollInterval bounds the time between two scans of pending notes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.poll = min(max(d, MinPollInterval), MaxPollInterval)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithTriggerHook registers f to be called after every trigger.
func WithTriggerHook(f func(Trigger)) Option {
	return func(s *Scheduler) { s.hook = f }
}

func NewScheduler(sound Sound, clock Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		sound: sound,
		clock: clock,
		poll:  DefaultPollInterval,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateTempo checks that bpm is a positive finite number.
func ValidateTempo(bpm float64) error {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return fmt.Errorf("%w: %v", waltz.ErrInvalidTempo, bpm)
	}
	return nil
}

// BeatDuration converts beats to time at bpm.
func BeatDuration(beats, bpm float64) time.Duration {
	return time.Duration(math.Round(beats * 60 / bpm * float64(time.Second)))
}

// Play triggers every note of song once, in onset order, at its due time.
// Notes the sound rejects are logged and skipped. When ctx is done no
// further notes are triggered and Play returns the partial report with the
// context error.
func (s *Scheduler) Play(ctx context.Context, song *waltz.Song, bpm float64) (Report, error) {
	if err := ValidateTempo(bpm); err != nil {
		return Report{}, err
	}
	if ts, ok := s.sound.(TempoSetter); ok {
		ts.SetTempo(bpm)
	}

	notes := schedule(song, bpm)
	pending := make(noteQueue, len(notes))
	for i := range notes {
		pending[i] = &notes[i]
	}
	heap.Init(&pending)
	fired := make([]bool, len(notes))

	total := BeatDuration(song.Beats(), bpm)
	report := Report{Triggers: make([]Trigger, 0, len(notes))}
	start := s.clock.Now()
	s.log.Debug("scheduler: start", "notes", len(notes), "tempo", bpm, "length", total)

	for {
		if err := ctx.Err(); err != nil {
			report.Elapsed = s.clock.Now() - start
			return report, err
		}
		elapsed := s.clock.Now() - start
		for ctx.Err() == nil && pending.Len() > 0 && pending[0].due <= elapsed {
			n := heap.Pop(&pending).(*note)
			if fired[n.index] {
				continue
			}
			fired[n.index] = true
			report.Triggers = append(report.Triggers, s.trigger(n, elapsed))
		}
		if pending.Len() == 0 && elapsed >= total {
			report.Elapsed = elapsed
			break
		}

		next := total
		if pending.Len() > 0 {
			next = pending[0].due
		}
		wait := min(s.poll, next-elapsed)
		if wait <= 0 {
			continue
		}
		if err := s.clock.Sleep(ctx, wait); err != nil {
			report.Elapsed = s.clock.Now() - start
			return report, err
		}
	}
	s.log.Debug("scheduler: done", "elapsed", report.Elapsed, "late", report.MaxLateness())
	return report, nil
}

func (s *Scheduler) trigger(n *note, now time.Duration) Trigger {
	t := Trigger{
		Slot:  n.slot,
		Pitch: n.ev.Pitch,
		Beats: n.ev.Duration,
		Onset: n.ev.Onset,
		Due:   n.due,
		At:    now,
	}
	if err := s.sound.Play(n.ev.Pitch, n.ev.Duration); err != nil {
		if errors.Is(err, waltz.ErrUnknownPitch) {
			err = &waltz.PitchError{Pitch: n.ev.Pitch, Slot: n.slot}
			s.log.Warn("scheduler: unknown pitch", "pitch", n.ev.Pitch, "slot", n.slot+1)
		} else {
			s.log.Warn("scheduler: trigger failed", "pitch", n.ev.Pitch, "slot", n.slot+1, "err", err)
		}
		t.Err = err
	}
	if s.hook != nil {
		s.hook(t)
	}
	return t
}

type note struct {
	index int
	slot  int
	ev    waltz.NoteEvent
	due   time.Duration
}

func schedule(song *waltz.Song, bpm float64) []note {
	var notes []note
	for _, m := range song.Measures {
		for _, ev := range m.Events {
			notes = append(notes, note{
				index: len(notes),
				slot:  m.Slot,
				ev:    ev,
				due:   BeatDuration(ev.Onset, bpm),
			})
		}
	}
	return notes
}

// noteQueue is a min-heap of notes ordered by due time, then by song order.
type noteQueue []*note

func (q noteQueue) Len() int { return len(q) }

func (q noteQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].index < q[j].index
}

func (q noteQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *noteQueue) Push(x any) { *q = append(*q, x.(*note)) }

func (q *noteQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
