package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mrdg/waltz/audio"
	"github.com/mrdg/waltz/device"
	"github.com/mrdg/waltz/history"
	"github.com/mrdg/waltz/waltz"
)

// app holds what every command needs: the parsed corpus and, when enabled,
// the history store.
type app struct {
	cfg      Config
	log      *slog.Logger
	measures []waltz.Measure
	history  *history.Store
	dice     waltz.Roller
}

func newApp(cfg Config, log *slog.Logger) (*app, error) {
	measures, err := waltz.LoadCorpus(cfg.Corpus)
	if err != nil {
		return nil, waltz.InStage(waltz.StageParse, err)
	}
	log.Debug("corpus loaded", "file", cfg.Corpus, "measures", len(measures))

	a := &app{cfg: cfg, log: log, measures: measures, dice: &waltz.Dice{}}
	if cfg.Seed != 0 {
		a.dice = waltz.NewDice(cfg.Seed)
	}
	if cfg.HistoryDir != "" {
		store, err := history.Open(history.Options{Dir: cfg.HistoryDir})
		if err != nil {
			return nil, err
		}
		a.history = store
	}
	return a, nil
}

func (a *app) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

// compose rolls a new waltz and records it in the history.
func (a *app) compose(ctx context.Context) (*waltz.Song, error) {
	song, err := waltz.Compose(a.measures, waltz.MozartTable, a.dice)
	if err != nil {
		return nil, waltz.InStage(waltz.StageCompose, err)
	}
	a.record(ctx, song)
	return song, nil
}

func (a *app) replay(rolls []int) (*waltz.Song, error) {
	song, err := waltz.ComposeRolls(a.measures, waltz.MozartTable, rolls)
	if err != nil {
		return nil, waltz.InStage(waltz.StageCompose, err)
	}
	return song, nil
}

func (a *app) reroll(ctx context.Context, song *waltz.Song, slots []int) (*waltz.Song, error) {
	next, err := song.Reroll(a.measures, waltz.MozartTable, a.dice, slots...)
	if err != nil {
		return nil, waltz.InStage(waltz.StageCompose, err)
	}
	a.record(ctx, next)
	return next, nil
}

func (a *app) record(ctx context.Context, song *waltz.Song) {
	if a.history == nil {
		return
	}
	e, err := a.history.Add(ctx, a.cfg.Tempo, song.Rolls())
	if err != nil {
		a.log.Warn("history: failed to record waltz", "err", err)
		return
	}
	a.log.Info("waltz recorded", "id", e.ID)
}

func (a *app) lookup(ctx context.Context, id string) (history.Entry, error) {
	if a.history == nil {
		return history.Entry{}, errors.New("history is disabled, set history_dir or --history")
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return history.Entry{}, fmt.Errorf("invalid waltz id %q: %w", id, err)
	}
	return a.history.Get(ctx, uid)
}

// newInstrument builds the sampler or synth instrument selected by the
// backend setting.
func (a *app) newInstrument() (*audio.Instrument, error) {
	backend := a.cfg.Backend
	if backend == backendAuto || backend == backendMIDI {
		backend = backendSynth
		if st, err := os.Stat(a.cfg.Samples); err == nil && st.IsDir() {
			backend = backendSamples
		}
	}
	props := audio.NewProps()
	var inst *audio.Instrument
	switch backend {
	case backendSamples:
		bank, err := audio.LoadSampleDir(a.cfg.Samples)
		if err != nil {
			return nil, err
		}
		a.log.Debug("samples loaded", "dir", a.cfg.Samples, "pitches", bank.Pitches())
		inst = audio.Sampler(props, bank)
	default:
		inst = audio.Synth(props)
	}
	inst.SetLogger(a.log)
	if err := inst.Set("level", a.cfg.LevelDB); err != nil {
		return nil, err
	}
	if err := inst.Set("env.release", float64(a.cfg.ReleaseMS)/1000); err != nil {
		return nil, err
	}
	a.log.Debug("instrument ready", "backend", backend)
	return inst, nil
}

// output is a sound connected to a device.
type output struct {
	sound audio.Sound
	inst  *audio.Instrument // nil for midi
	close func() error
}

func (a *app) openOutput() (*output, error) {
	if a.cfg.Backend == backendMIDI {
		out, err := device.OpenMIDI(a.cfg.MIDIPort, 0)
		if err != nil {
			return nil, err
		}
		out.SetLogger(a.log)
		return &output{sound: out, close: func() error {
			err := out.Close()
			device.CloseDriver()
			return err
		}}, nil
	}
	inst, err := a.newInstrument()
	if err != nil {
		return nil, err
	}
	sink, err := device.NewSink()
	if err != nil {
		return nil, err
	}
	sink.AddSources(inst)
	if err := sink.Start(); err != nil {
		sink.Close()
		return nil, err
	}
	return &output{sound: inst, inst: inst, close: func() error {
		// let the last notes ring out
		for deadline := time.Now().Add(2 * time.Second); inst.Active() && time.Now().Before(deadline); {
			time.Sleep(10 * time.Millisecond)
		}
		return sink.Close()
	}}, nil
}

func (a *app) scheduler(sound audio.Sound, clock audio.Clock, hook func(audio.Trigger)) *audio.Scheduler {
	opts := []audio.Option{
		audio.WithLogger(a.log),
		audio.WithPollInterval(a.cfg.pollInterval()),
	}
	if hook != nil {
		opts = append(opts, audio.WithTriggerHook(hook))
	}
	return audio.NewScheduler(sound, clock, opts...)
}

// play plays song in real time. A cancelled context stops playback and is
// not reported as an error.
func (a *app) play(ctx context.Context, out *output, song *waltz.Song, tempo float64, hook func(audio.Trigger)) error {
	report, err := a.scheduler(out.sound, audio.SystemClock(), hook).Play(ctx, song, tempo)
	a.summarize(report)
	if errors.Is(err, context.Canceled) {
		a.log.Info("playback stopped", "triggers", len(report.Triggers))
		return nil
	}
	if err != nil {
		return waltz.InStage(waltz.StagePlay, err)
	}
	return nil
}

func (a *app) summarize(report audio.Report) {
	failed := report.Failed()
	a.log.Debug("playback finished",
		"triggers", len(report.Triggers),
		"failed", len(failed),
		"elapsed", report.Elapsed.Round(time.Millisecond),
		"late", report.MaxLateness())
	if len(failed) > 0 {
		a.log.Warn("some notes were not played", "count", len(failed))
	}
}

// render plays song into a wav file in virtual time.
func (a *app) render(ctx context.Context, song *waltz.Song, tempo float64, file string) error {
	inst, err := a.newInstrument()
	if err != nil {
		return err
	}
	r := audio.NewRenderer(inst)
	report, err := a.scheduler(inst, r, nil).Play(ctx, song, tempo)
	if err != nil {
		return waltz.InStage(waltz.StagePlay, err)
	}
	a.summarize(report)
	r.Tail(2 * time.Second)

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := r.WriteWAV(f); err != nil {
		f.Close()
		return err
	}
	a.log.Info("rendered", "file", file, "seconds", float64(r.Frames())/audio.SampleRate)
	return f.Close()
}

func (a *app) export(song *waltz.Song, tempo float64, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := audio.WriteSMF(f, song, tempo); err != nil {
		f.Close()
		return err
	}
	a.log.Info("exported", "file", file)
	return f.Close()
}
