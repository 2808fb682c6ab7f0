package waltz

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Record is one line of the corpus: a pitch, the beat it starts on and the
// number of beats it is held for.
type Record struct {
	Pitch    string
	Onset    float64
	Duration float64
}

// ReadRecords reads whitespace separated "<pitch> <onset> <duration>" lines.
// Blank lines are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, &CorpusError{Line: line, Msg: fmt.Sprintf("want 3 fields, got %d", len(fields))}
		}
		onset, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, &CorpusError{Line: line, Msg: fmt.Sprintf("bad onset %q", fields[1])}
		}
		duration, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, &CorpusError{Line: line, Msg: fmt.Sprintf("bad duration %q", fields[2])}
		}
		records = append(records, Record{Pitch: fields[0], Onset: onset, Duration: duration})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return records, nil
}

// Parse splits records into 3-beat measures. The records must be sorted by
// onset. A measure starts on every record whose onset is a multiple of 3 in a
// window not seen before, so a chord on the downbeat stays in one measure.
// Notes held past the end of their window are kept whole.
func Parse(records []Record) ([]Measure, error) {
	if len(records) == 0 {
		return nil, &CorpusError{Msg: "no records"}
	}
	var (
		measures   []Measure
		current    []NoteEvent
		lastWindow = 0.0
	)
	for i, rec := range records {
		if err := validate(rec); err != nil {
			return nil, &CorpusError{Line: i + 1, Msg: err.Error()}
		}
		ev := NoteEvent{Pitch: rec.Pitch, Onset: rec.Onset, Duration: rec.Duration}
		window := math.Floor(rec.Onset / BeatsPerMeasure)
		if math.Mod(rec.Onset, BeatsPerMeasure) == 0 && window != lastWindow {
			lastWindow = window
			if len(current) > 0 {
				measures = append(measures, Measure{Index: len(measures) + 1, Events: current})
			}
			current = []NoteEvent{ev}
			continue
		}
		current = append(current, ev)
	}
	measures = append(measures, Measure{Index: len(measures) + 1, Events: current})
	return measures, nil
}

func validate(rec Record) error {
	switch {
	case rec.Pitch == "":
		return fmt.Errorf("empty pitch")
	case math.IsNaN(rec.Onset) || math.IsInf(rec.Onset, 0) || rec.Onset < 0:
		return fmt.Errorf("onset out of range: %v", rec.Onset)
	case math.IsNaN(rec.Duration) || math.IsInf(rec.Duration, 0) || rec.Duration <= 0:
		return fmt.Errorf("duration out of range: %v", rec.Duration)
	}
	return nil
}

// LoadCorpus reads and parses the corpus file at path.
func LoadCorpus(path string) ([]Measure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, err
	}
	return Parse(records)
}
