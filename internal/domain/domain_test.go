package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestNewParticipantID(t *testing.T) {
	a := NewParticipantID(RoleViewer)
	b := NewParticipantID(RoleViewer)
	if a == b {
		t.Fatalf("ids collide: %q", a)
	}
	if !strings.HasPrefix(string(a), "viewer-") {
		t.Errorf("id = %q, want viewer- prefix", a)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if err := ParticipantID("").Validate(); !errors.Is(err, ErrParticipantIDEmpty) {
		t.Errorf("empty Validate() = %v, want ErrParticipantIDEmpty", err)
	}
	if err := ParticipantID(strings.Repeat("x", MaxParticipantIDLen+1)).Validate(); !errors.Is(err, ErrParticipantIDTooLong) {
		t.Errorf("long Validate() = %v, want ErrParticipantIDTooLong", err)
	}
}

func TestDescriptionValidate(t *testing.T) {
	cases := []struct {
		d    Description
		good bool
	}{
		{Description{SDP: "v=0", Type: "offer"}, true},
		{Description{SDP: "v=0", Type: "answer"}, true},
		{Description{SDP: "", Type: "offer"}, false},
		{Description{SDP: "v=0", Type: "pranswer"}, false},
		{Description{SDP: "v=0"}, false},
	}
	for _, c := range cases {
		err := c.d.Validate()
		if c.good && err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", c.d, err)
		}
		if !c.good && !errors.Is(err, ErrMalformedDescription) {
			t.Errorf("Validate(%+v) = %v, want ErrMalformedDescription", c.d, err)
		}
	}

	sd, err := Description{SDP: "v=0", Type: "answer"}.WebRTC()
	if err != nil {
		t.Fatal(err)
	}
	if sd.Type != webrtc.SDPTypeAnswer {
		t.Errorf("type = %v, want answer", sd.Type)
	}
}

func TestCandidateAbsentFieldsStayAbsent(t *testing.T) {
	c := Candidate{Candidate: "candidate:1 1 udp 2130706431 10.0.0.1 5000 typ host"}
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "sdpMLineIndex") || strings.Contains(string(raw), "sdpMid") {
		t.Errorf("marshalled absent fields: %s", raw)
	}

	ci := c.WebRTC()
	if ci.SDPMLineIndex != nil || ci.SDPMid != nil || ci.UsernameFragment != nil {
		t.Errorf("WebRTC() invented optional fields: %+v", ci)
	}

	idx := uint16(0)
	mid := "0"
	back := CandidateFromWebRTC(webrtc.ICECandidateInit{Candidate: c.Candidate, SDPMid: &mid, SDPMLineIndex: &idx})
	if back.SDPMLineIndex == nil || *back.SDPMLineIndex != 0 {
		t.Errorf("explicit index 0 lost: %+v", back)
	}
	if back.SDPMid == nil || *back.SDPMid != "0" {
		t.Errorf("sdpMid lost: %+v", back)
	}
}

func TestValidateCandidates(t *testing.T) {
	if err := ValidateCandidates([]Candidate{{Candidate: "a"}, {Candidate: ""}}); !errors.Is(err, ErrMalformedCandidate) {
		t.Errorf("ValidateCandidates = %v, want ErrMalformedCandidate", err)
	}
	if err := ValidateCandidates(nil); err != nil {
		t.Errorf("ValidateCandidates(nil) = %v", err)
	}
}
