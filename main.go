// Command waltz composes waltzes with Mozart's musical dice game and plays
// them.
//
// Usage:
//
//	waltz [flags]            compose a waltz and play it
//	waltz play [--id ID]     play a new or a recorded waltz
//	waltz render -o out.wav  render a waltz to a wav file
//	waltz export -o out.mid  write a waltz as a midi file
//	waltz compose [--dump]   print a waltz without playing it
//	waltz table              print the selection table
//	waltz history            list recorded waltzes
//	waltz repl               interactive shell
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register the rtmidi driver

	"github.com/mrdg/waltz/audio"
	"github.com/mrdg/waltz/waltz"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries state shared by the commands of one invocation.
type cli struct {
	configPath string
	cfg        Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "waltz",
		Short: "Compose waltzes with Mozart's musical dice game",
		Long: `waltz rolls two dice for each of the sixteen measures of a waltz and
looks up the measure to play in Mozart's table of 176 pre-composed measures.

Configuration is read from the OS config directory:
  Linux:   ~/.config/waltz/config.yaml
  macOS:   ~/Library/Application Support/waltz/config.yaml

Command line flags override the config file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: c.init,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlay(cmd.Context(), "", false)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default "+defaultConfigPath()+")")
	flags.Float64("tempo", 120, "tempo in beats per minute")
	flags.String("corpus", "original.txt", "note corpus file")
	flags.String("samples", "notes_audio", "directory of <pitch>.wav samples")
	flags.String("backend", backendAuto, "sound backend: auto, samples, synth or midi")
	flags.String("midi-port", "", "midi output port name for the midi backend")
	flags.String("history", "", "directory of the waltz history database")
	flags.Uint64("seed", 0, "seed for the dice, 0 rolls randomly")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		c.playCmd(),
		c.renderCmd(),
		c.exportCmd(),
		c.composeCmd(),
		c.tableCmd(),
		c.historyCmd(),
		c.replCmd(),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command, args []string) error {
	path, explicit := c.configPath, c.configPath != ""
	if !explicit {
		path = defaultConfigPath()
	}
	cfg, err := loadConfig(path, explicit)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, cmd.Flags()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.cfg = cfg
	c.log = initLogger(cfg)
	return nil
}

func initLogger(cfg Config) *slog.Logger {
	level, _ := cfg.logLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func (c *cli) open() (*app, error) {
	return newApp(c.cfg, c.log)
}

// song returns the recorded waltz with the given id, or a new one.
func (c *cli) song(ctx context.Context, a *app, id string, tempoSet bool) (*waltz.Song, float64, error) {
	tempo := c.cfg.Tempo
	if id == "" {
		song, err := a.compose(ctx)
		return song, tempo, err
	}
	e, err := a.lookup(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if !tempoSet {
		tempo = e.Tempo
	}
	song, err := a.replay(e.Rolls)
	return song, tempo, err
}

func (c *cli) runPlay(ctx context.Context, id string, tempoSet bool) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.Close()

	song, tempo, err := c.song(ctx, a, id, tempoSet)
	if err != nil {
		return err
	}
	out, err := a.openOutput()
	if err != nil {
		return err
	}
	defer out.close()

	renderSong(os.Stdout, song)
	slot := -1
	return a.play(ctx, out, song, tempo, func(t audio.Trigger) {
		if t.Slot != slot {
			slot = t.Slot
			a.log.Debug("measure", "slot", slot+1, "source", song.Measures[slot].Source)
		}
	})
}

func (c *cli) playCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Compose and play a waltz, or replay a recorded one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlay(cmd.Context(), id, cmd.Flags().Changed("tempo"))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "id of a recorded waltz")
	return cmd
}

func (c *cli) renderCmd() *cobra.Command {
	var id, file string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a waltz to a wav file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()
			song, tempo, err := c.song(cmd.Context(), a, id, cmd.Flags().Changed("tempo"))
			if err != nil {
				return err
			}
			return a.render(cmd.Context(), song, tempo, file)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "id of a recorded waltz")
	cmd.Flags().StringVarP(&file, "output", "o", "waltz.wav", "output file")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var id, file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a waltz as a standard midi file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()
			song, tempo, err := c.song(cmd.Context(), a, id, cmd.Flags().Changed("tempo"))
			if err != nil {
				return err
			}
			return a.export(song, tempo, file)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "id of a recorded waltz")
	cmd.Flags().StringVarP(&file, "output", "o", "waltz.mid", "output file")
	return cmd
}

func (c *cli) composeCmd() *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose a waltz and print its score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()
			song, err := a.compose(cmd.Context())
			if err != nil {
				return err
			}
			if dump {
				spew.Fdump(cmd.OutOrStdout(), song)
				return nil
			}
			renderSong(cmd.OutOrStdout(), song)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the composed song structure")
	return cmd
}

func (c *cli) tableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the measure selection table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderTable(cmd.OutOrStdout(), waltz.MozartTable)
			return nil
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded waltzes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()
			if a.history == nil {
				return fmt.Errorf("history is disabled, set history_dir or --history")
			}
			entries, err := a.history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries, 0 for all")
	return cmd
}

func (c *cli) replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()
			env, err := newEnv(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer env.close()
			return repl(env)
		},
	}
}
