package signaling

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Livecast/internal/domain"
)

// Kind classifies a gateway failure.
type Kind int

const (
	KindUnavailable Kind = iota
	KindNotReady
	KindNotFound
	KindFinished
	KindExpired
	KindTimeout
	KindCapacity
	KindMalformed
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotReady:
		return "not ready"
	case KindNotFound:
		return "not found"
	case KindFinished:
		return "finished"
	case KindExpired:
		return "expired"
	case KindTimeout:
		return "timeout"
	case KindCapacity:
		return "capacity"
	case KindMalformed:
		return "malformed"
	case KindConflict:
		return "conflict"
	}
	return "unavailable"
}

// Terminal reports whether the session cannot be used any more.
func (k Kind) Terminal() bool { return k == KindFinished || k == KindExpired }

// ErrNotReady is returned when the gateway has no store to talk to.
var ErrNotReady = errors.New("session store not connected")

type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, err error) *Error {
	return &Error{Op: op, Kind: classify(err), Err: err}
}

// KindOf extracts the kind of a gateway error. Other errors are KindUnavailable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrViewerNotFound),
		errors.Is(err, domain.ErrNoAnswer):
		return KindNotFound
	case errors.Is(err, domain.ErrSessionFinished):
		return KindFinished
	case errors.Is(err, domain.ErrSessionExpired):
		return KindExpired
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, domain.ErrSessionFull):
		return KindCapacity
	case errors.Is(err, domain.ErrMalformedDescription),
		errors.Is(err, domain.ErrMalformedCandidate),
		errors.Is(err, domain.ErrMalformedSessionID),
		errors.Is(err, domain.ErrParticipantIDEmpty),
		errors.Is(err, domain.ErrParticipantIDTooLong):
		return KindMalformed
	case errors.Is(err, domain.ErrAnswerExists):
		return KindConflict
	}
	return KindUnavailable
}
