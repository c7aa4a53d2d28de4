package core

import "github.com/pion/webrtc/v4"

type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// MapNativeState projects a peer connection state onto the four-state model.
// ok is false for native states that carry no transition.
func MapNativeState(s webrtc.PeerConnectionState) (state ConnectionState, ok bool) {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return StateConnecting, true
	case webrtc.PeerConnectionStateConnected:
		return StateConnected, true
	case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
		return StateDisconnected, true
	}
	return StateIdle, false
}

// StateMachine is the negotiation state shared by both agents.
// It is not safe for concurrent use; owners guard it with their own lock.
//
//	idle -> connecting -> connected -> disconnected
//	             \-----------------------^
//
// disconnected is final; a new negotiation starts from a fresh machine.
type StateMachine struct {
	state ConnectionState
}

func (m *StateMachine) State() ConnectionState { return m.state }

// Begin starts a negotiation. It fails unless the machine is idle.
func (m *StateMachine) Begin() bool {
	if m.state != StateIdle {
		return false
	}
	m.state = StateConnecting
	return true
}

// Observe applies a native state change and reports whether the state moved.
func (m *StateMachine) Observe(native webrtc.PeerConnectionState) bool {
	next, ok := MapNativeState(native)
	if !ok {
		return false
	}
	return m.move(next)
}

// Terminate forces disconnected from any active state.
func (m *StateMachine) Terminate() bool {
	return m.move(StateDisconnected)
}

func (m *StateMachine) move(next ConnectionState) bool {
	switch m.state {
	case StateIdle, StateDisconnected:
		return false
	case StateConnected:
		if next != StateDisconnected {
			return false
		}
	}
	if next == m.state {
		return false
	}
	m.state = next
	return true
}
