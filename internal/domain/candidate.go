package domain

import "github.com/pion/webrtc/v4"

// Candidate is one ICE candidate as exchanged through the store.
// Optional fields stay nil when absent; an absent line index is not index 0.
type Candidate struct {
	Candidate        string  `json:"candidate" msgpack:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty" msgpack:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty" msgpack:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty" msgpack:"usernameFragment,omitempty"`
}

func (c Candidate) Validate() error {
	if c.Candidate == "" {
		return ErrMalformedCandidate
	}
	return nil
}

func CandidateFromWebRTC(ci webrtc.ICECandidateInit) Candidate {
	return Candidate{
		Candidate:        ci.Candidate,
		SDPMid:           ci.SDPMid,
		SDPMLineIndex:    ci.SDPMLineIndex,
		UsernameFragment: ci.UsernameFragment,
	}
}

func (c Candidate) WebRTC() webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

// ValidateCandidates rejects a batch if any entry is malformed.
func ValidateCandidates(cs []Candidate) error {
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CloneCandidates returns a copy that does not alias cs.
func CloneCandidates(cs []Candidate) []Candidate {
	out := make([]Candidate, len(cs))
	copy(out, cs)
	return out
}
