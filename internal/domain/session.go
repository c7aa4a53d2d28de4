package domain

import (
	"errors"
	"strconv"

	"github.com/pion/webrtc/v4"
)

// SessionID is assigned by the store when a broadcast starts.
type SessionID uint64

func (id SessionID) String() string { return strconv.FormatUint(uint64(id), 10) }

func ParseSessionID(s string) (SessionID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedSessionID
	}
	return SessionID(n), nil
}

// Store errors. Every store implementation reports its failures through these.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrViewerNotFound  = errors.New("viewer not found")
	ErrNoAnswer        = errors.New("no answer yet")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionFinished = errors.New("session finished")
	ErrSessionFull     = errors.New("session already has a viewer")
	ErrAnswerExists    = errors.New("answer already submitted")

	ErrMalformedSessionID   = errors.New("malformed session id")
	ErrMalformedDescription = errors.New("malformed session description")
	ErrMalformedCandidate   = errors.New("malformed candidate")
)

const (
	DescriptionTypeOffer  = "offer"
	DescriptionTypeAnswer = "answer"
)

// Description is an SDP blob plus its kind.
type Description struct {
	SDP  string `json:"sdp" msgpack:"sdp"`
	Type string `json:"type" msgpack:"type"`
}

func (d Description) Validate() error {
	if d.SDP == "" {
		return ErrMalformedDescription
	}
	if d.Type != DescriptionTypeOffer && d.Type != DescriptionTypeAnswer {
		return ErrMalformedDescription
	}
	return nil
}

func DescriptionFromWebRTC(sd webrtc.SessionDescription) Description {
	return Description{SDP: sd.SDP, Type: sd.Type.String()}
}

func (d Description) WebRTC() (webrtc.SessionDescription, error) {
	if err := d.Validate(); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(d.Type), SDP: d.SDP}, nil
}
