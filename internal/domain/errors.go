package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicate             = errors.New("duplicate url")
	ErrRunClosed             = errors.New("digest run already closed")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrNoContent             = errors.New("no usable content")
)

// ErrorKind tells the orchestrator whether to degrade or abort.
type ErrorKind int

const (
	// KindFatal aborts the run and is recorded on the ledger.
	KindFatal ErrorKind = iota
	// KindTransient covers timeouts and rate limits at the I/O layer.
	KindTransient
	// KindSource means one source (or one item of it) contributed nothing.
	KindSource
	// KindSummarization means a sentinel text replaced the model output.
	KindSummarization
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindSource:
		return "source"
	case KindSummarization:
		return "summarization"
	default:
		return "fatal"
	}
}

// Error is a categorized error returned across component boundaries.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a kind and the failing operation. A nil err stays nil.
func E(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the outermost kind in the chain; uncategorized errors are fatal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// IsDegradable reports whether the caller may log err and carry on.
func IsDegradable(err error) bool {
	switch KindOf(err) {
	case KindSource, KindSummarization, KindTransient:
		return true
	default:
		return false
	}
}
