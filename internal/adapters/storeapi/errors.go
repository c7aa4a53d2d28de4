package storeapi

import (
	"errors"
	"net/http"

	"github.com/dkeye/Livecast/internal/domain"
)

const (
	CodeRateLimited = "rate_limited"
	CodeBadRequest  = "bad_request"
	CodeInternal    = "internal"
)

type errorCode struct {
	code   string
	status int
	err    error
}

var codes = []errorCode{
	{"session_not_found", http.StatusNotFound, domain.ErrSessionNotFound},
	{"viewer_not_found", http.StatusNotFound, domain.ErrViewerNotFound},
	{"no_answer", http.StatusNotFound, domain.ErrNoAnswer},
	{"session_expired", http.StatusGone, domain.ErrSessionExpired},
	{"session_finished", http.StatusGone, domain.ErrSessionFinished},
	{"session_full", http.StatusConflict, domain.ErrSessionFull},
	{"answer_exists", http.StatusConflict, domain.ErrAnswerExists},
	{"malformed_session_id", http.StatusBadRequest, domain.ErrMalformedSessionID},
	{"malformed_description", http.StatusBadRequest, domain.ErrMalformedDescription},
	{"malformed_candidate", http.StatusBadRequest, domain.ErrMalformedCandidate},
	{"participant_id_empty", http.StatusBadRequest, domain.ErrParticipantIDEmpty},
	{"participant_id_too_long", http.StatusBadRequest, domain.ErrParticipantIDTooLong},
}

// ErrRateLimited is returned by clients when the server throttles them.
var ErrRateLimited = errors.New("rate limited")

// Classify maps a store error to its wire code and HTTP status.
func Classify(err error) (code string, status int) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code, c.status
		}
	}
	if errors.Is(err, ErrRateLimited) {
		return CodeRateLimited, http.StatusTooManyRequests
	}
	return CodeInternal, http.StatusInternalServerError
}

// ErrorOf turns a wire error back into the matching sentinel, or nil if the code is not known.
func ErrorOf(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	if code == CodeRateLimited {
		return ErrRateLimited
	}
	return nil
}
