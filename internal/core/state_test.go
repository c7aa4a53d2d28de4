package core

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestStateMachineHappyPath(t *testing.T) {
	var m StateMachine
	if m.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", m.State())
	}
	if !m.Begin() {
		t.Fatal("Begin() from idle = false")
	}
	if m.Begin() {
		t.Error("Begin() twice = true")
	}
	if m.Observe(webrtc.PeerConnectionStateConnecting) {
		t.Error("connecting -> connecting reported a change")
	}
	if !m.Observe(webrtc.PeerConnectionStateConnected) || m.State() != StateConnected {
		t.Fatalf("state = %v, want connected", m.State())
	}
	if m.Observe(webrtc.PeerConnectionStateConnecting) {
		t.Error("connected -> connecting must not happen")
	}
	if !m.Observe(webrtc.PeerConnectionStateFailed) || m.State() != StateDisconnected {
		t.Fatalf("state = %v, want disconnected", m.State())
	}
}

func TestStateMachineDisconnectedIsSticky(t *testing.T) {
	var m StateMachine
	m.Begin()
	m.Observe(webrtc.PeerConnectionStateDisconnected)
	for _, s := range []webrtc.PeerConnectionState{
		webrtc.PeerConnectionStateConnecting,
		webrtc.PeerConnectionStateConnected,
		webrtc.PeerConnectionStateNew,
	} {
		if m.Observe(s) {
			t.Errorf("Observe(%v) moved out of disconnected", s)
		}
	}
	if m.Begin() {
		t.Error("Begin() from disconnected = true")
	}
}

func TestStateMachineIgnoresUnmappedStates(t *testing.T) {
	var m StateMachine
	if m.Observe(webrtc.PeerConnectionStateConnected) {
		t.Error("idle machine followed a native state")
	}
	m.Begin()
	for _, s := range []webrtc.PeerConnectionState{
		webrtc.PeerConnectionStateNew,
		webrtc.PeerConnectionStateClosed,
		webrtc.PeerConnectionStateUnknown,
	} {
		if m.Observe(s) {
			t.Errorf("Observe(%v) moved the machine", s)
		}
	}
	if m.State() != StateConnecting {
		t.Errorf("state = %v, want connecting", m.State())
	}
}

func TestTerminate(t *testing.T) {
	var m StateMachine
	if m.Terminate() {
		t.Error("Terminate() from idle = true")
	}
	m.Begin()
	if !m.Terminate() || m.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", m.State())
	}
}
