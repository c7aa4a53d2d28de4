package rtc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"

	"github.com/dkeye/Livecast/internal/adapters/rtc"
	"github.com/dkeye/Livecast/internal/app/live"
	"github.com/dkeye/Livecast/internal/app/media"
	"github.com/dkeye/Livecast/internal/app/signaling"
	"github.com/dkeye/Livecast/internal/app/store"
	"github.com/dkeye/Livecast/internal/core"
)

// sampleSource writes a dummy VP8 frame every 20ms.
type sampleSource struct {
	track *webrtc.TrackLocalStaticSample
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSampleSource(t *testing.T) *sampleSource {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "loopback")
	if err != nil {
		t.Fatal(err)
	}
	s := &sampleSource{track: track, stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		frame := make([]byte, 200)
		for {
			select {
			case <-s.stop:
				return
			case <-tick.C:
				_ = s.track.WriteSample(pionmedia.Sample{Data: frame, Duration: 20 * time.Millisecond})
			}
		}
	}()
	return s
}

func (s *sampleSource) Tracks() []webrtc.TrackLocal { return []webrtc.TrackLocal{s.track} }

func (s *sampleSource) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func newLoopbackFactory(t *testing.T) *rtc.Factory {
	t.Helper()
	f, err := rtc.NewFactory(rtc.Config{ICEServers: []string{}, Loopback: true, LogLevel: zerolog.WarnLevel})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestLoopbackSession(t *testing.T) {
	if testing.Short() {
		t.Skip("opens real UDP sockets")
	}

	gw := signaling.New(store.NewMemory(), time.Second)
	opts := live.Options{PollInterval: 50 * time.Millisecond, GatherGrace: 300 * time.Millisecond}

	meter := &media.Meter{}
	relay := media.NewRelay()
	relay.AddOutTrack("meter", media.NewOutTrack(meter, webrtc.RTPCodecTypeVideo))

	b := live.NewBroadcaster(gw, newLoopbackFactory(t), opts)
	v := live.NewViewer(gw, newLoopbackFactory(t), relay, opts)
	t.Cleanup(func() {
		v.Leave()
		b.End()
	})

	ctx := context.Background()
	if err := b.Start(ctx, newSampleSource(t)); err != nil {
		t.Fatal(err)
	}
	if err := v.Join(ctx, b.Status().SessionID); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if b.Status().State == core.StateConnected &&
			v.Status().State == core.StateConnected &&
			meter.Read().Packets > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if s := b.Status(); s.State != core.StateConnected || s.Viewers != 1 {
		t.Fatalf("broadcaster = %+v", s)
	}
	if s := v.Status(); s.State != core.StateConnected {
		t.Fatalf("viewer = %+v", s)
	}
	if r := meter.Read(); r.Packets == 0 {
		t.Fatal("no media reached the viewer")
	}

	v.Leave()
	if v.Status().Live {
		t.Fatal("viewer still live after Leave")
	}
}
