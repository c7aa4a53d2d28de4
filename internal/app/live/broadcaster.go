package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Livecast/internal/app/signaling"
	"github.com/dkeye/Livecast/internal/core"
	"github.com/dkeye/Livecast/internal/domain"
	"github.com/dkeye/Livecast/internal/sessioncode"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type BroadcastStatus struct {
	Live      bool
	SessionID domain.SessionID
	Code      string
	State     core.ConnectionState
	// Viewers is 0 or 1.
	Viewers int
	Err     error
}

// broadcastState is everything one broadcast owns. It is replaced wholesale on teardown.
type broadcastState struct {
	epoch  uint64
	active bool

	cancelSetup context.CancelFunc
	conn        core.MediaConnection
	source      core.MediaSource
	poll        *poller

	id        domain.ParticipantID
	sid       domain.SessionID
	published bool
	machine   core.StateMachine
	viewer    domain.ParticipantID
	viewers   int
	applied   int
	pending   []domain.Candidate
	lastErr   error
}

type Broadcaster struct {
	gw       *signaling.Gateway
	peers    core.PeerFactory
	opts     Options
	onChange func(BroadcastStatus)
	logger   zerolog.Logger

	mu     sync.Mutex
	epochs uint64
	st     broadcastState
}

func NewBroadcaster(gw *signaling.Gateway, peers core.PeerFactory, opts Options) *Broadcaster {
	return &Broadcaster{
		gw:     gw,
		peers:  peers,
		opts:   opts.withDefaults(),
		logger: log.With().Str("module", "app.live").Str("role", "broadcaster").Logger(),
	}
}

// OnChange registers a callback that receives every status change.
func (b *Broadcaster) OnChange(fn func(BroadcastStatus)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Broadcaster) Status() BroadcastStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

func (b *Broadcaster) statusLocked() BroadcastStatus {
	s := BroadcastStatus{
		Live:    b.st.active,
		State:   b.st.machine.State(),
		Viewers: b.st.viewers,
		Err:     b.st.lastErr,
	}
	if b.st.published {
		s.SessionID = b.st.sid
		s.Code = sessioncode.Encode(b.st.sid)
	}
	return s
}

func (b *Broadcaster) notify() {
	b.mu.Lock()
	fn := b.onChange
	s := b.statusLocked()
	b.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Start publishes an offer for the tracks of source and starts polling for a viewer.
// On failure everything acquired so far, source included, is released.
func (b *Broadcaster) Start(ctx context.Context, source core.MediaSource) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.mu.Lock()
	if b.st.active {
		b.mu.Unlock()
		return ErrBusy
	}
	b.epochs++
	epoch := b.epochs
	b.st = broadcastState{epoch: epoch, active: true, cancelSetup: cancel, source: source}
	b.st.machine.Begin()
	b.mu.Unlock()
	b.notify()

	if err := b.setup(ctx, epoch, source); err != nil {
		if !b.teardown(epoch, err) {
			return ErrAborted
		}
		b.logger.Error().Err(err).Msg("start broadcast")
		return err
	}
	return nil
}

func (b *Broadcaster) setup(ctx context.Context, epoch uint64, source core.MediaSource) error {
	conn, err := b.peers.NewConnection()
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}
	if !b.attach(epoch, conn) {
		_ = conn.Close()
		return ErrAborted
	}

	for _, track := range source.Tracks() {
		if err := conn.AddTrack(track); err != nil {
			return fmt.Errorf("add track %s: %w", track.ID(), err)
		}
	}
	conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		b.mu.Lock()
		if b.current(epoch) {
			b.st.pending = append(b.st.pending, domain.CandidateFromWebRTC(ci))
		}
		b.mu.Unlock()
	})
	conn.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		b.onNativeState(epoch, s)
	})

	offer, err := conn.CreateOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := conn.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	id := domain.NewParticipantID(domain.RoleBroadcaster)
	sid, err := b.gw.StartBroadcast(ctx, id, domain.DescriptionFromWebRTC(offer))
	if err != nil {
		return err
	}
	b.mu.Lock()
	if !b.current(epoch) {
		b.mu.Unlock()
		return ErrAborted
	}
	b.st.id, b.st.sid, b.st.published = id, sid, true
	b.mu.Unlock()
	b.notify()
	b.logger.Info().Str("sid", sid.String()).Str("code", sessioncode.Encode(sid)).Msg("broadcast published")

	if err := wait(ctx, b.opts.GatherGrace); err != nil {
		return err
	}
	if err := b.flush(ctx, epoch, sid); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.current(epoch) {
		return ErrAborted
	}
	b.st.cancelSetup = nil
	b.st.poll = startPoller(b.opts.PollInterval,
		func(ctx context.Context) error { return b.tick(ctx, epoch) },
		func(err error) { b.finish(epoch, err) },
	)
	return nil
}

func (b *Broadcaster) attach(epoch uint64, conn core.MediaConnection) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.current(epoch) {
		return false
	}
	b.st.conn = conn
	return true
}

// current reports whether epoch still owns the state. Callers hold mu.
func (b *Broadcaster) current(epoch uint64) bool {
	return b.st.active && b.st.epoch == epoch
}

// flush publishes the local candidates gathered so far as one batch.
func (b *Broadcaster) flush(ctx context.Context, epoch uint64, sid domain.SessionID) error {
	b.mu.Lock()
	if !b.current(epoch) {
		b.mu.Unlock()
		return ErrAborted
	}
	batch := b.st.pending
	b.st.pending = nil
	b.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	if err := b.gw.AddBroadcasterCandidates(ctx, sid, batch); err != nil {
		b.mu.Lock()
		if b.current(epoch) {
			b.st.pending = append(batch, b.st.pending...)
		}
		b.mu.Unlock()
		return err
	}
	b.logger.Debug().Str("sid", sid.String()).Int("count", len(batch)).Msg("published candidates")
	return nil
}

func (b *Broadcaster) onNativeState(epoch uint64, s webrtc.PeerConnectionState) {
	b.mu.Lock()
	if !b.current(epoch) || !b.st.machine.Observe(s) {
		b.mu.Unlock()
		return
	}
	switch b.st.machine.State() {
	case core.StateConnected:
		b.st.viewers = 1
	case core.StateDisconnected:
		b.st.viewers = 0
		b.st.lastErr = ErrConnectionLost
	}
	state := b.st.machine.State()
	b.mu.Unlock()
	b.logger.Info().Str("native", s.String()).Str("state", state.String()).Msg("connection state")
	b.notify()
	if state == core.StateDisconnected {
		// Off the callback goroutine: teardown closes the connection that is calling us.
		go b.finish(epoch, ErrConnectionLost)
	}
}

// tick runs one poll round. A returned error ends the broadcast.
func (b *Broadcaster) tick(ctx context.Context, epoch uint64) error {
	b.mu.Lock()
	if !b.current(epoch) {
		b.mu.Unlock()
		return nil
	}
	sid, conn, viewer, applied := b.st.sid, b.st.conn, b.st.viewer, b.st.applied
	b.mu.Unlock()

	if done, err := b.gw.ShouldFinish(ctx, sid); done {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return ErrSessionExpired
	}

	if err := b.flush(ctx, epoch, sid); err != nil {
		if signaling.KindOf(err).Terminal() {
			return err
		}
		b.logger.Warn().Err(err).Msg("publish candidates")
	}

	if viewer == "" {
		v, answer, err := b.gw.GetAnswer(ctx, sid)
		switch {
		case err == nil:
		case signaling.KindOf(err) == signaling.KindNotFound:
			return nil
		case signaling.KindOf(err).Terminal():
			return err
		default:
			b.logger.Warn().Err(err).Msg("poll answer")
			return nil
		}
		sd, err := answer.WebRTC()
		if err != nil {
			b.logger.Warn().Err(err).Str("viewer", v.String()).Msg("malformed answer")
			return nil
		}
		b.mu.Lock()
		if !b.current(epoch) {
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()
		if err := conn.SetRemoteDescription(sd); err != nil {
			b.logger.Warn().Err(err).Str("viewer", v.String()).Msg("apply answer")
			return nil
		}
		b.mu.Lock()
		if b.current(epoch) {
			b.st.viewer = v
		}
		b.mu.Unlock()
		b.logger.Info().Str("sid", sid.String()).Str("viewer", v.String()).Msg("viewer answered")
		viewer = v
	}

	cs, err := b.gw.GetViewerCandidates(ctx, sid, viewer)
	switch {
	case err == nil:
	case signaling.KindOf(err) == signaling.KindNotFound:
		return nil
	case signaling.KindOf(err).Terminal():
		return err
	default:
		b.logger.Warn().Err(err).Msg("poll viewer candidates")
		return nil
	}
	if len(cs) <= applied {
		return nil
	}

	b.mu.Lock()
	if !b.current(epoch) {
		b.mu.Unlock()
		return nil
	}
	b.st.applied = len(cs)
	b.mu.Unlock()
	applyCandidates(conn, cs[applied:], &b.logger)
	return nil
}

// finish ends the broadcast after the poller gave up on it.
func (b *Broadcaster) finish(epoch uint64, cause error) {
	b.mu.Lock()
	if !b.current(epoch) {
		b.mu.Unlock()
		return
	}
	b.st.machine.Terminate()
	b.st.viewers = 0
	b.st.lastErr = cause
	b.mu.Unlock()
	b.logger.Warn().Err(cause).Msg("broadcast finished")
	b.notify()
	b.teardown(epoch, cause)
}

// End stops polling, closes the connection and releases the source. Safe to call repeatedly.
func (b *Broadcaster) End() {
	b.mu.Lock()
	epoch := b.st.epoch
	b.mu.Unlock()
	b.teardown(epoch, nil)
}

// teardown releases everything epoch owns and returns to idle, keeping cause as the last error.
// It reports false when epoch no longer owns the state.
func (b *Broadcaster) teardown(epoch uint64, cause error) bool {
	b.mu.Lock()
	if !b.current(epoch) {
		b.mu.Unlock()
		return false
	}
	st := b.st
	b.st = broadcastState{epoch: st.epoch, lastErr: cause}
	b.mu.Unlock()

	if st.cancelSetup != nil {
		st.cancelSetup()
	}
	st.poll.stop()
	if st.conn != nil {
		if err := st.conn.Close(); err != nil {
			b.logger.Error().Err(err).Msg("close peer connection")
		}
	}
	if st.source != nil {
		if err := st.source.Close(); err != nil {
			b.logger.Error().Err(err).Msg("release media source")
		}
	}
	b.logger.Info().Str("sid", st.sid.String()).Msg("broadcast ended")
	b.notify()
	return true
}
