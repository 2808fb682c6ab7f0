package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/mrdg/waltz/audio"
	"github.com/mrdg/waltz/dub"
	"github.com/mrdg/waltz/waltz"
)

// env is the state of an interactive session.
type env struct {
	ctx   context.Context
	app   *app
	w     io.Writer
	song  *waltz.Song
	tempo float64

	out     *output
	mu      sync.Mutex
	cancel  context.CancelFunc
	playing chan struct{}
}

func newEnv(ctx context.Context, a *app) (*env, error) {
	song, err := a.compose(ctx)
	if err != nil {
		return nil, err
	}
	return &env{ctx: ctx, app: a, w: os.Stdout, song: song, tempo: a.cfg.Tempo}, nil
}

func (e *env) close() error {
	e.stopPlayback()
	if e.out != nil {
		return e.out.close()
	}
	return nil
}

func (e *env) output() (*output, error) {
	if e.out == nil {
		out, err := e.app.openOutput()
		if err != nil {
			return nil, err
		}
		e.out = out
	}
	return e.out, nil
}

func (e *env) startPlayback() error {
	out, err := e.output()
	if err != nil {
		return err
	}
	e.stopPlayback()

	ctx, cancel := context.WithCancel(e.ctx)
	done := make(chan struct{})
	song, tempo := e.song, e.tempo
	e.mu.Lock()
	e.cancel, e.playing = cancel, done
	e.mu.Unlock()
	go func() {
		defer close(done)
		defer e.finished(done, cancel)
		if err := e.app.play(ctx, out, song, tempo, nil); err != nil {
			e.app.log.Error("playback failed", "err", err)
		}
	}()
	return nil
}

// finished forgets a playback that ended on its own.
func (e *env) finished(done chan struct{}, cancel context.CancelFunc) {
	e.mu.Lock()
	if e.playing == done {
		e.cancel, e.playing = nil, nil
	}
	e.mu.Unlock()
	cancel()
}

func (e *env) isPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing != nil
}

// stopPlayback raises the stop signal and waits for the scheduler to return.
func (e *env) stopPlayback() bool {
	e.mu.Lock()
	cancel, done := e.cancel, e.playing
	e.cancel, e.playing = nil, nil
	e.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

func (e *env) eval(input string) error {
	cmds, err := dub.ParseAll(input)
	if err != nil {
		return err
	}
	for _, command := range cmds {
		if err := e.run(command); err != nil {
			return err
		}
	}
	return nil
}

func (e *env) run(command dub.Command) error {
	name := string(command.Name)
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if cmd.arity < 0 {
			arity := -cmd.arity - 1
			if len(command.Args) > arity {
				return fmt.Errorf("%s: wrong number of arguments: want at most %v, got %v",
					cmd.name, arity, len(command.Args))
			}
		} else if len(command.Args) != cmd.arity {
			return fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				cmd.name, cmd.arity, len(command.Args))
		}
		if err := cmd.run(e, command.Args); err != nil {
			return fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return nil
	}
	return fmt.Errorf("unknown command: %s", name)
}

func repl(env *env) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "♩ ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	env.w = rl.Stdout()
	renderSong(env.w, env.song)

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, readline.ErrInterrupt) {
			// ^C stops playback, a second ^C on an empty line exits
			if !env.stopPlayback() && line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			fmt.Fprintln(env.w, err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if err := env.eval(line); err != nil {
			fmt.Fprintln(env.w, err)
		}
	}
}

type command struct {
	name  string
	help  string
	run   func(*env, []dub.Node) error
	arity int // -n means at most n-1 arguments
}

var commands []command

func init() {
	commands = []command{
		{"new", "compose a new waltz", newCommand, 0},
		{"reroll", "roll again for slots, e.g. reroll '1:4,9", rerollCommand, 1},
		{"play", "play the current waltz", playCommand, 0},
		{"stop", "stop playback", stopCommand, 0},
		{"tempo", "set the tempo in bpm", tempoCommand, 1},
		{"set", "set an instrument property, e.g. set level -6 or set wave saw", setCommand, 2},
		{"show", "print the current waltz", showCommand, 0},
		{"save", `render the waltz to a wav file, e.g. save "waltz.wav"`, saveCommand, 1},
		{"export", `write the waltz as a midi file, e.g. export "waltz.mid"`, exportCommand, 1},
		{"history", "list recorded waltzes", historyCommand, -2},
		{"load", `load a recorded waltz, e.g. load "<id>"`, loadCommand, 1},
		{"help", "list commands", helpCommand, 0},
	}
}

func newCommand(env *env, args []dub.Node) error {
	song, err := env.app.compose(env.ctx)
	if err != nil {
		return err
	}
	env.song = song
	renderSong(env.w, song)
	return nil
}

func rerollCommand(env *env, args []dub.Node) error {
	var expr dub.MatchExpr
	if err := readArgs(args, &expr); err != nil {
		return err
	}
	slots, err := expr.Slots(len(env.song.Measures))
	if err != nil {
		return err
	}
	song, err := env.app.reroll(env.ctx, env.song, slots)
	if err != nil {
		return err
	}
	env.song = song
	renderSong(env.w, song)
	return nil
}

func playCommand(env *env, args []dub.Node) error {
	return env.startPlayback()
}

func stopCommand(env *env, args []dub.Node) error {
	if !env.stopPlayback() {
		return errors.New("not playing")
	}
	return nil
}

func tempoCommand(env *env, args []dub.Node) error {
	var bpm float64
	if err := readArgs(args, &bpm); err != nil {
		return err
	}
	if err := audio.ValidateTempo(bpm); err != nil {
		return err
	}
	env.tempo = bpm
	return nil
}

func setCommand(env *env, args []dub.Node) error {
	var prop string
	var value any
	if err := readArgs(args, &prop, &value); err != nil {
		return err
	}
	out, err := env.output()
	if err != nil {
		return err
	}
	if out.inst == nil {
		return errors.New("the midi backend has no properties")
	}
	return out.inst.Set(prop, value)
}

func showCommand(env *env, args []dub.Node) error {
	if env.isPlaying() {
		fmt.Fprintf(env.w, "tempo %v, playing\n", env.tempo)
	} else {
		fmt.Fprintf(env.w, "tempo %v\n", env.tempo)
	}
	renderSong(env.w, env.song)
	return nil
}

func saveCommand(env *env, args []dub.Node) error {
	var file string
	if err := readArgs(args, &file); err != nil {
		return err
	}
	return env.app.render(env.ctx, env.song, env.tempo, file)
}

func exportCommand(env *env, args []dub.Node) error {
	var file string
	if err := readArgs(args, &file); err != nil {
		return err
	}
	return env.app.export(env.song, env.tempo, file)
}

func historyCommand(env *env, args []dub.Node) error {
	limit := 10
	if len(args) == 1 {
		if err := readArgs(args, &limit); err != nil {
			return err
		}
	}
	if env.app.history == nil {
		return errors.New("history is disabled")
	}
	entries, err := env.app.history.List(env.ctx, limit)
	if err != nil {
		return err
	}
	renderHistory(env.w, entries)
	return nil
}

func loadCommand(env *env, args []dub.Node) error {
	var id string
	if err := readArgs(args, &id); err != nil {
		return err
	}
	e, err := env.app.lookup(env.ctx, id)
	if err != nil {
		return err
	}
	song, err := env.app.replay(e.Rolls)
	if err != nil {
		return err
	}
	env.song, env.tempo = song, e.Tempo
	renderSong(env.w, song)
	return nil
}

func helpCommand(env *env, args []dub.Node) error {
	for _, cmd := range commands {
		fmt.Fprintf(env.w, "  %-8s %s\n", cmd.name, cmd.help)
	}
	return nil
}

func readArgs(args []dub.Node, slots ...any) error {
	if len(args) != len(slots) {
		return errors.New("not enough arguments")
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument error: expected a string or identifier")
			}
		case *float64:
			switch v := arg.(type) {
			case dub.Float:
				*p = float64(v)
			case dub.Int:
				*p = float64(v)
			default:
				return fmt.Errorf("argument error: expected a number")
			}
		case *int:
			v, ok := arg.(dub.Int)
			if !ok {
				return fmt.Errorf("argument error: expected an integer")
			}
			*p = int(v)
		case *any:
			switch v := arg.(type) {
			case dub.Float:
				*p = float64(v)
			case dub.Int:
				*p = float64(v)
			case dub.String:
				*p = string(v)
			case dub.Identifier:
				*p = string(v)
			default:
				return fmt.Errorf("argument error: expected a number or a name")
			}
		case *dub.MatchExpr:
			v, ok := arg.(dub.MatchExpr)
			if !ok {
				return fmt.Errorf("argument error: expected slots such as '1:4")
			}
			*p = v
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
