package queue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEndpointUnavailable marks failures where the tmux server could not be
	// reached at all. Read-only callers degrade to empty results on it.
	ErrEndpointUnavailable = errors.New("tmux server unavailable")
	// ErrInvocationFailed marks every other tmux failure.
	ErrInvocationFailed = errors.New("tmux command failed")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("command queue closed")
)

// ErrorKind classifies a failed invocation.
type ErrorKind int

const (
	KindInvocationFailed ErrorKind = iota
	KindEndpointUnavailable
)

func (k ErrorKind) String() string {
	if k == KindEndpointUnavailable {
		return "endpoint_unavailable"
	}
	return "invocation_failed"
}

// Error is the classified failure of a single queued command.
type Error struct {
	Kind    ErrorKind
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tmux %s: %v", e.Command, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	sentinel := ErrInvocationFailed
	if e.Kind == KindEndpointUnavailable {
		sentinel = ErrEndpointUnavailable
	}
	return []error{sentinel, e.Err}
}

// endpointMarkers are substrings tmux prints when no server answers.
var endpointMarkers = []string{
	"no server running",
	"failed to connect to server",
	"error connecting to",
	"connection refused",
}

// Classify wraps err in an *Error, tagging endpoint failures by message.
func Classify(command string, err error) error {
	if err == nil {
		return nil
	}
	var qe *Error
	if errors.As(err, &qe) {
		return err
	}
	kind := KindInvocationFailed
	msg := strings.ToLower(err.Error())
	for _, marker := range endpointMarkers {
		if strings.Contains(msg, marker) {
			kind = KindEndpointUnavailable
			break
		}
	}
	return &Error{Kind: kind, Command: command, Err: err}
}

// IsEndpointUnavailable reports whether err means tmux could not be reached.
func IsEndpointUnavailable(err error) bool {
	return errors.Is(err, ErrEndpointUnavailable)
}
