package rtc

import (
	"sync"

	"github.com/dkeye/Livecast/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Connection adapts a pion PeerConnection to core.MediaConnection.
type Connection struct {
	pc *webrtc.PeerConnection
	id string

	closeOnce sync.Once
	closeErr  error
}

var _ core.MediaConnection = (*Connection)(nil)

func newConnection(pc *webrtc.PeerConnection, id string) *Connection {
	c := &Connection{pc: pc, id: id}
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "adapters.rtc").Str("conn", c.id).Str("ice_state", s.String()).Msg("ICE state")
	})
	return c
}

func (c *Connection) AddTrack(track webrtc.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	// RTCP has to be drained for interceptors such as NACK to work.
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (c *Connection) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *Connection) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *Connection) SetLocalDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(sd)
}

func (c *Connection) SetRemoteDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sd)
}

func (c *Connection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *Connection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		// nil marks the end of gathering.
		if cand == nil {
			log.Debug().Str("module", "adapters.rtc").Str("conn", c.id).Msg("gathering complete")
			return
		}
		fn(cand.ToJSON())
	})
}

func (c *Connection) OnTrack(fn func(core.RemoteTrack)) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "adapters.rtc").
			Str("conn", c.id).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		fn(track)
	})
}

func (c *Connection) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "adapters.rtc").Str("conn", c.id).Str("peer_connection_state", s.String()).Msg("Peer state")
		fn(s)
	})
}

func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.pc.Close()
		if c.closeErr != nil {
			log.Error().Err(c.closeErr).Str("module", "adapters.rtc").Str("conn", c.id).Msg("close error")
		} else {
			log.Info().Str("module", "adapters.rtc").Str("conn", c.id).Msg("closed")
		}
	})
	return c.closeErr
}
