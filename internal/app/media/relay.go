package media

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Livecast/internal/core"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Relay is a core.MediaSink that reads every attached track and forwards
// its packets to the registered outputs.
type Relay struct {
	mu        sync.RWMutex
	outTracks map[string]*OutTrack
	ctx       context.Context
	cancel    context.CancelFunc
	loops     sync.WaitGroup

	packets atomic.Uint64
	bytes   atomic.Uint64

	logger zerolog.Logger
}

var _ core.MediaSink = (*Relay)(nil)

func NewRelay() *Relay {
	return &Relay{
		outTracks: make(map[string]*OutTrack),
		logger:    log.With().Str("module", "app.media").Logger(),
	}
}

func (r *Relay) AddOutTrack(name string, ot *OutTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outTracks[name] = ot
}

// Attach starts reading track. It returns at once.
func (r *Relay) Attach(track core.RemoteTrack) {
	r.mu.Lock()
	if r.ctx == nil {
		r.ctx, r.cancel = context.WithCancel(context.Background())
	}
	ctx := r.ctx
	r.loops.Add(1)
	r.mu.Unlock()

	logger := r.logger.With().Str("track_id", track.ID()).Str("kind", track.Kind().String()).Logger()
	go func() {
		defer r.loops.Done()
		r.loop(ctx, track, &logger)
	}()
}

// Detach stops all read loops and waits for them. Reads unblock when the
// owning connection closes, so close it first. The relay can be attached again.
func (r *Relay) Detach() {
	r.mu.Lock()
	cancel := r.cancel
	r.ctx, r.cancel = nil, nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.loops.Wait()
}

// Stats returns the packets and payload bytes read so far.
func (r *Relay) Stats() (packets, bytes uint64) {
	return r.packets.Load(), r.bytes.Load()
}

// loop reads RTP packets from the source track and forwards them to all OutTracks.
func (r *Relay) loop(ctx context.Context, src core.RemoteTrack, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay stopped")
			return
		default:
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("relay read ended")
			return
		}
		r.forward(src, pkt, logger)
		r.bytes.Add(uint64(len(pkt.Payload)))
		r.packets.Add(1)
	}
}

func (r *Relay) forward(src core.RemoteTrack, pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outTracks)
	r.mu.RUnlock()

	dirty := make([]string, 0, len(snapshot))
	for name, ot := range snapshot {
		switch ot.GetState() {
		case TrackStateDelete:
			dirty = append(dirty, name)
		case TrackStateMuted:
		case TrackStateOk:
			if !ot.accepts(src.Kind()) {
				continue
			}
			if err := ot.Out.WriteRTP(pkt); err != nil {
				logger.Error().Err(err).Str("out", name).Msg("relay write RTP error, marking outtrack as delete")
				ot.MarkDelete()
				dirty = append(dirty, name)
			}
		}
	}

	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range dirty {
		delete(r.outTracks, name)
	}
}
