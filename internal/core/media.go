package core

import (
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// MediaConnection is the subset of a peer connection the agents drive.
// Callbacks may fire on any goroutine.
type MediaConnection interface {
	AddTrack(track webrtc.TrackLocal) error
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error

	// OnICECandidate fires once per gathered local candidate. End of gathering is not reported.
	OnICECandidate(func(webrtc.ICECandidateInit))
	OnTrack(func(RemoteTrack))
	OnConnectionStateChange(func(webrtc.PeerConnectionState))

	Close() error
}

// PeerFactory creates connections configured with the connectivity-assist servers.
type PeerFactory interface {
	NewConnection() (MediaConnection, error)
}

// RemoteTrack is an inbound track. *webrtc.TrackRemote satisfies it.
type RemoteTrack interface {
	ID() string
	StreamID() string
	Kind() webrtc.RTPCodecType
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// MediaSource owns the local tracks a broadcaster publishes.
type MediaSource interface {
	Tracks() []webrtc.TrackLocal
	Close() error
}

// MediaSink consumes the inbound stream of a viewer. Attach must not block.
type MediaSink interface {
	Attach(track RemoteTrack)
	Detach()
}
