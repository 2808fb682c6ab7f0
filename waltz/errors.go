package waltz

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedCorpus = errors.New("malformed corpus")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownPitch    = errors.New("unknown pitch")
	ErrInvalidTempo    = errors.New("invalid tempo")
)

// CorpusError reports a problem with the corpus input. Line is 1-based and
// zero when the error is not tied to a single line.
type CorpusError struct {
	Line int
	Msg  string
}

func (e *CorpusError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v: line %d: %s", ErrMalformedCorpus, e.Line, e.Msg)
	}
	return fmt.Sprintf("%v: %s", ErrMalformedCorpus, e.Msg)
}

func (e *CorpusError) Unwrap() error { return ErrMalformedCorpus }

// PitchError is returned when a note cannot be sounded. Slot is -1 when the
// pitch was not played as part of a composed song.
type PitchError struct {
	Pitch string
	Slot  int
}

func (e *PitchError) Error() string {
	if e.Slot >= 0 {
		return fmt.Sprintf("%v %q in slot %d", ErrUnknownPitch, e.Pitch, e.Slot+1)
	}
	return fmt.Sprintf("%v %q", ErrUnknownPitch, e.Pitch)
}

func (e *PitchError) Unwrap() error { return ErrUnknownPitch }

type Stage string

const (
	StageParse   Stage = "parse"
	StageCompose Stage = "compose"
	StagePlay    Stage = "play"
)

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// InStage wraps err with stage unless err is nil.
func InStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
