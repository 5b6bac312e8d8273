package nsengine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an EngineError for callers that need to branch on
// failure category (abort the operation vs. skip and continue).
type ErrorKind int

const (
	// ErrConfig marks an invalid flag combination, unknown language filter,
	// or malformed glob.
	ErrConfig ErrorKind = iota
	// ErrIO marks a file read/stat failure encountered during indexing or
	// context extraction.
	ErrIO
	// ErrDecode marks a file that failed the UTF-8 heuristic.
	ErrDecode
	// ErrParse marks a source file for which symbol extraction produced no
	// usable result.
	ErrParse
	// ErrStore marks an index open/write/commit failure, including a schema
	// version mismatch.
	ErrStore
	// ErrConcurrency marks a writer lock already held by another process.
	ErrConcurrency
	// ErrDownstreamClosed marks an output sink that closed early (a reader
	// pipe closed, e.g. piped into `head`).
	ErrDownstreamClosed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrConfig:
		return "config"
	case ErrIO:
		return "io"
	case ErrDecode:
		return "decode"
	case ErrParse:
		return "parse"
	case ErrStore:
		return "store"
	case ErrConcurrency:
		return "concurrency"
	case ErrDownstreamClosed:
		return "downstream_closed"
	default:
		return "unknown"
	}
}

// EngineError is the error type returned by every nsengine operation. Op
// names the failing operation (e.g. "walk", "index.build", "search.query")
// so callers and logs can identify where in the pipeline a failure
// occurred without parsing message text.
type EngineError struct {
	Kind  ErrorKind
	Op    string
	cause error
}

func (e *EngineError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *EngineError) Unwrap() error {
	return e.cause
}

// Is reports whether target is an EngineError of the same Kind, so callers
// can write errors.Is(err, &EngineError{Kind: ErrStore}) without knowing Op
// or cause.
func (e *EngineError) Is(target error) bool {
	var other *EngineError
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// NewEngineError wraps cause into an EngineError of the given kind and op.
func NewEngineError(kind ErrorKind, op string, cause error) *EngineError {
	return &EngineError{Kind: kind, Op: op, cause: cause}
}
