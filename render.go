package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mrdg/waltz/history"
	"github.com/mrdg/waltz/waltz"
)

var (
	colorAccent = lipgloss.Color("#00ff9f")
	colorDim    = lipgloss.Color("#6e7681")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(colorDim)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return dimStyle
			}
			return cellStyle
		})
}

// renderSong prints one row per slot: the roll, the corpus measure and its
// notes as pitch@beat.
func renderSong(w io.Writer, song *waltz.Song) {
	t := newTable("slot", "roll", "measure", "notes")
	for _, m := range song.Measures {
		t.Row(
			strconv.Itoa(m.Slot+1),
			strconv.Itoa(m.Roll),
			strconv.Itoa(m.Source),
			formatNotes(m.Events),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func formatNotes(events []waltz.NoteEvent) string {
	notes := make([]string, len(events))
	for i, ev := range events {
		notes[i] = ev.String()
	}
	return strings.Join(notes, " ")
}

func renderTable(w io.Writer, tab waltz.Table) {
	headers := []string{"slot"}
	for roll := waltz.MinRoll; roll <= waltz.MaxRoll; roll++ {
		headers = append(headers, strconv.Itoa(roll))
	}
	t := newTable(headers...)
	for slot, row := range tab {
		cells := []string{strconv.Itoa(slot + 1)}
		for _, index := range row {
			cells = append(cells, strconv.Itoa(index))
		}
		t.Row(cells...)
	}
	fmt.Fprintln(w, t.Render())
}

func renderHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no waltzes recorded")
		return
	}
	t := newTable("id", "created", "tempo", "rolls")
	for _, e := range entries {
		t.Row(
			e.ID.String(),
			e.Created.Local().Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(e.Tempo, 'f', -1, 64),
			formatRolls(e.Rolls),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func formatRolls(rolls []int) string {
	s := make([]string, len(rolls))
	for i, r := range rolls {
		s[i] = strconv.Itoa(r)
	}
	return strings.Join(s, ",")
}
