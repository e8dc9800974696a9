package pipeline

import (
	"errors"
	"fmt"
)

// State is a step of an indexing run. Runs move strictly forward from Start
// to Done, or jump to Failed.
type State int

const (
	StateStart State = iota
	StateExtracting
	StateChunking
	StateEmbedding
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateExtracting:
		return "extracting"
	case StateChunking:
		return "chunking"
	case StateEmbedding:
		return "embedding"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrFileNotFound = errors.New("file not found")
	ErrEmptyText    = errors.New("no text extracted from the file")
)

// StageError records the state a run was in when it failed.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return e.State.String() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
