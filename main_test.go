package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrdg/waltz/history"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// writeCorpus writes n three-beat measures to a file in a temp dir.
func writeCorpus(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	for k := 0; k < n; k++ {
		beat := 3 * k
		fmt.Fprintf(&b, "C3 %d 3\n", beat)
		fmt.Fprintf(&b, "E4 %d 1\n", beat)
		fmt.Fprintf(&b, "G4 %d 1\n", beat+1)
		fmt.Fprintf(&b, "C5 %d 1\n", beat+2)
	}
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := defaultConfig()
	cfg.Corpus = writeCorpus(t, 176)
	cfg.Samples = filepath.Join(t.TempDir(), "missing")
	cfg.Seed = 7

	a, err := newApp(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(history.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	a.history = store
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewAppCorpusError(t *testing.T) {
	cfg := defaultConfig()
	cfg.Corpus = filepath.Join(t.TempDir(), "nope.txt")
	if _, err := newApp(cfg, quiet); err == nil || !strings.HasPrefix(err.Error(), "parse:") {
		t.Fatalf("expected a parse stage error, got %v", err)
	}
}

func TestRootHelp(t *testing.T) {
	root := newRootCmd()
	var out strings.Builder
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"play", "render", "export", "compose", "table", "history", "repl"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("help does not list %s", name)
		}
	}
}

func TestTableCommand(t *testing.T) {
	root := newRootCmd()
	var out strings.Builder
	root.SetOut(&out)
	root.SetArgs([]string{"table", "--config", writeConfig(t, "log_level: error\n")})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "176") {
		t.Fatalf("table output is missing measure 176:\n%s", out.String())
	}
}

func TestComposeCommand(t *testing.T) {
	root := newRootCmd()
	var out strings.Builder
	root.SetOut(&out)
	root.SetArgs([]string{"compose", "--dump", "--corpus", writeCorpus(t, 176), "--seed", "3",
		"--config", writeConfig(t, "log_level: error\n")})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "SlotMeasure") {
		t.Fatalf("dump does not show the song structure:\n%s", out.String())
	}
}

func TestInvalidFlag(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"table", "--tempo", "-5", "--config", writeConfig(t, "")})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}
