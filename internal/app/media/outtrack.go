package media

import (
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

// Output receives relayed packets. *webrtc.TrackLocalStaticRTP satisfies it.
type Output interface {
	WriteRTP(*rtp.Packet) error
}

// OutTrack is one destination of a relay.
type OutTrack struct {
	Out Output
	// Kind limits the packets forwarded to one media kind. Zero forwards everything.
	Kind  webrtc.RTPCodecType
	state atomic.Int32
}

func NewOutTrack(out Output, kind webrtc.RTPCodecType) *OutTrack {
	return &OutTrack{Out: out, Kind: kind}
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkOk() {
	ot.state.Store(int32(TrackStateOk))
}

func (ot *OutTrack) MarkMuted() {
	ot.state.Store(int32(TrackStateMuted))
}

func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}

func (ot *OutTrack) accepts(kind webrtc.RTPCodecType) bool {
	return ot.Kind == 0 || ot.Kind == kind
}
