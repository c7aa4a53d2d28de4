package live

import (
	"errors"

	"github.com/dkeye/Livecast/internal/app/signaling"
)

var (
	ErrBusy           = errors.New("session already active")
	ErrAborted        = errors.New("ended during setup")
	ErrSessionExpired = errors.New("session expired")
	ErrBroadcastEnded = errors.New("broadcast ended or connection lost")
	ErrConnectionLost = errors.New("connection lost")
)

// JoinReason is the user-facing category of a failed join.
type JoinReason int

const (
	JoinFailed JoinReason = iota
	JoinNotFound
	JoinFinished
	JoinExpired
)

func (r JoinReason) Message() string {
	switch r {
	case JoinNotFound:
		return "Session not found. The broadcaster may have ended the stream."
	case JoinFinished:
		return "This session has already finished. Please request a new stream."
	case JoinExpired:
		return "Session expired. Please ask the broadcaster to restart."
	}
	return "Failed to join session"
}

// JoinError is returned by Viewer.Join.
type JoinError struct {
	Reason JoinReason
	Err    error
}

func (e *JoinError) Error() string {
	return e.Reason.Message()
}

func (e *JoinError) Unwrap() error {
	return e.Err
}

func classifyJoin(err error) *JoinError {
	var je *JoinError
	if errors.As(err, &je) {
		return je
	}
	reason := JoinFailed
	switch signaling.KindOf(err) {
	case signaling.KindNotFound:
		reason = JoinNotFound
	case signaling.KindFinished:
		reason = JoinFinished
	case signaling.KindExpired:
		reason = JoinExpired
	}
	return &JoinError{Reason: reason, Err: err}
}
