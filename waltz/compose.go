package waltz

import (
	"fmt"
)

// SlotMeasure is a corpus measure placed in an output slot.
type SlotMeasure struct {
	Slot   int // 0-based output position
	Roll   int // dice total that selected the measure
	Source int // 1-based corpus measure index
	Events []NoteEvent
}

// Song is a composed waltz. Slot k starts on beat 3k.
type Song struct {
	Measures []SlotMeasure
}

// Compose rolls the dice once per table row and lines up the selected corpus
// measures. The corpus is never modified.
func Compose(measures []Measure, table Table, roller Roller) (*Song, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty selection table", ErrIndexOutOfRange)
	}
	song := &Song{Measures: make([]SlotMeasure, 0, len(table))}
	for slot := range table {
		roll := roller.Roll()
		index, err := table.Select(slot, roll)
		if err != nil {
			return nil, err
		}
		if index < 1 || index > len(measures) {
			return nil, fmt.Errorf("%w: slot %d selects measure %d of %d", ErrIndexOutOfRange, slot, index, len(measures))
		}
		m := measures[index-1].clone()
		if len(m.Events) == 0 {
			return nil, &CorpusError{Msg: fmt.Sprintf("measure %d is empty", index)}
		}
		offset := m.Events[0].Onset - float64(BeatsPerMeasure*slot)
		for i := range m.Events {
			m.Events[i].Onset -= offset
		}
		song.Measures = append(song.Measures, SlotMeasure{
			Slot:   slot,
			Roll:   roll,
			Source: index,
			Events: m.Events,
		})
	}
	return song, nil
}

// ComposeRolls rebuilds a song from previously recorded dice totals.
func ComposeRolls(measures []Measure, table Table, rolls []int) (*Song, error) {
	if len(rolls) != len(table) {
		return nil, fmt.Errorf("%w: %d rolls for %d slots", ErrIndexOutOfRange, len(rolls), len(table))
	}
	return Compose(measures, table, NewFixedRolls(rolls...))
}

// Rolls returns the dice totals in slot order.
func (s *Song) Rolls() []int {
	rolls := make([]int, len(s.Measures))
	for i, m := range s.Measures {
		rolls[i] = m.Roll
	}
	return rolls
}

// Beats returns the length of the piece. Held notes may ring past it.
func (s *Song) Beats() float64 {
	return float64(BeatsPerMeasure * len(s.Measures))
}

// Events returns a copy of all note events in slot order.
func (s *Song) Events() []NoteEvent {
	var events []NoteEvent
	for _, m := range s.Measures {
		events = append(events, m.Events...)
	}
	return events
}

// Reroll replaces the measures in the given slots with fresh rolls. The
// receiver is left untouched.
func (s *Song) Reroll(measures []Measure, table Table, roller Roller, slots ...int) (*Song, error) {
	rolls := s.Rolls()
	for _, slot := range slots {
		if slot < 0 || slot >= len(rolls) {
			return nil, fmt.Errorf("%w: slot %d not in [0,%d)", ErrIndexOutOfRange, slot, len(rolls))
		}
		rolls[slot] = roller.Roll()
	}
	return ComposeRolls(measures, table, rolls)
}
