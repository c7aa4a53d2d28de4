package live

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Livecast/internal/core"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// fakeConn records what an agent does to its connection and lets tests fire callbacks.
type fakeConn struct {
	name string

	mu      sync.Mutex
	tracks  []webrtc.TrackLocal
	local   *webrtc.SessionDescription
	remote  *webrtc.SessionDescription
	added   []webrtc.ICECandidateInit
	onICE   func(webrtc.ICECandidateInit)
	onTrack func(core.RemoteTrack)
	onState func(webrtc.PeerConnectionState)
	closed  int
}

var _ core.MediaConnection = (*fakeConn)(nil)

func (c *fakeConn) AddTrack(track webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = append(c.tracks, track)
	return nil
}

func (c *fakeConn) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer " + c.name}, nil
}

func (c *fakeConn) CreateAnswer() (webrtc.SessionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote == nil {
		return webrtc.SessionDescription{}, errors.New("no remote description")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer " + c.name}, nil
}

// SetLocalDescription gathers two host candidates, the second without a line index.
func (c *fakeConn) SetLocalDescription(sd webrtc.SessionDescription) error {
	c.mu.Lock()
	c.local = &sd
	fn := c.onICE
	c.mu.Unlock()
	if fn != nil {
		mid := "0"
		idx := uint16(0)
		fn(webrtc.ICECandidateInit{Candidate: "candidate:" + c.name + "-1", SDPMid: &mid, SDPMLineIndex: &idx})
		fn(webrtc.ICECandidateInit{Candidate: "candidate:" + c.name + "-2"})
	}
	return nil
}

func (c *fakeConn) SetRemoteDescription(sd webrtc.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return errors.New("connection closed")
	}
	c.remote = &sd
	return nil
}

func (c *fakeConn) AddICECandidate(ci webrtc.ICECandidateInit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, ci)
	return nil
}

func (c *fakeConn) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

func (c *fakeConn) OnTrack(fn func(core.RemoteTrack)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

func (c *fakeConn) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	c.fire(webrtc.PeerConnectionStateClosed)
	return nil
}

func (c *fakeConn) fire(s webrtc.PeerConnectionState) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (c *fakeConn) deliver(track core.RemoteTrack) {
	c.mu.Lock()
	fn := c.onTrack
	c.mu.Unlock()
	if fn != nil {
		fn(track)
	}
}

func (c *fakeConn) snapshot() (local, remote *webrtc.SessionDescription, added []webrtc.ICECandidateInit, closed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local, c.remote, append([]webrtc.ICECandidateInit(nil), c.added...), c.closed
}

type fakeFactory struct {
	prefix string
	err    error

	mu    sync.Mutex
	conns []*fakeConn
}

func (f *fakeFactory) NewConnection() (core.MediaConnection, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeConn{name: fmt.Sprintf("%s%d", f.prefix, len(f.conns))}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeFactory) last() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

type fakeSource struct {
	tracks []webrtc.TrackLocal
	closed atomic.Int32
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	video, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "livecast")
	if err != nil {
		t.Fatal(err)
	}
	return &fakeSource{tracks: []webrtc.TrackLocal{video}}
}

func (s *fakeSource) Tracks() []webrtc.TrackLocal { return s.tracks }

func (s *fakeSource) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeTrack struct {
	id, stream string
}

func (t fakeTrack) ID() string                { return t.id }
func (t fakeTrack) StreamID() string          { return t.stream }
func (t fakeTrack) Kind() webrtc.RTPCodecType { return webrtc.RTPCodecTypeVideo }

func (t fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) { return nil, nil, io.EOF }

type fakeSink struct {
	mu       sync.Mutex
	attached []string
	detached int
}

func (s *fakeSink) Attach(track core.RemoteTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = append(s.attached, track.ID())
}

func (s *fakeSink) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached++
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
