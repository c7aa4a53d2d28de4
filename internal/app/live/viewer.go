package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Livecast/internal/app/signaling"
	"github.com/dkeye/Livecast/internal/core"
	"github.com/dkeye/Livecast/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ViewerStatus struct {
	Live      bool
	SessionID domain.SessionID
	State     core.ConnectionState
	Err       error
}

type viewerState struct {
	epoch  uint64
	active bool

	cancelSetup context.CancelFunc
	conn        core.MediaConnection
	poll        *poller
	attached    bool

	id      domain.ParticipantID
	sid     domain.SessionID
	joined  bool
	stream  string
	machine core.StateMachine
	applied int
	pending []domain.Candidate
	lastErr error
}

type Viewer struct {
	gw       *signaling.Gateway
	peers    core.PeerFactory
	sink     core.MediaSink
	opts     Options
	onChange func(ViewerStatus)
	logger   zerolog.Logger

	mu     sync.Mutex
	epochs uint64
	st     viewerState
}

// NewViewer creates a viewer that feeds the first inbound stream to sink. sink may be nil.
func NewViewer(gw *signaling.Gateway, peers core.PeerFactory, sink core.MediaSink, opts Options) *Viewer {
	return &Viewer{
		gw:     gw,
		peers:  peers,
		sink:   sink,
		opts:   opts.withDefaults(),
		logger: log.With().Str("module", "app.live").Str("role", "viewer").Logger(),
	}
}

func (v *Viewer) OnChange(fn func(ViewerStatus)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

func (v *Viewer) Status() ViewerStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.statusLocked()
}

func (v *Viewer) statusLocked() ViewerStatus {
	s := ViewerStatus{
		Live:  v.st.active,
		State: v.st.machine.State(),
		Err:   v.st.lastErr,
	}
	if v.st.joined {
		s.SessionID = v.st.sid
	}
	return s
}

func (v *Viewer) notify() {
	v.mu.Lock()
	fn := v.onChange
	s := v.statusLocked()
	v.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Join negotiates with the broadcaster of sid. Failures are returned as *JoinError.
func (v *Viewer) Join(ctx context.Context, sid domain.SessionID) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v.mu.Lock()
	if v.st.active {
		v.mu.Unlock()
		return &JoinError{Reason: JoinFailed, Err: ErrBusy}
	}
	v.epochs++
	epoch := v.epochs
	v.st = viewerState{epoch: epoch, active: true, cancelSetup: cancel, sid: sid}
	v.st.machine.Begin()
	v.mu.Unlock()
	v.notify()

	if err := v.setup(ctx, epoch, sid); err != nil {
		je := classifyJoin(err)
		if !v.teardown(epoch, je) {
			return &JoinError{Reason: JoinFailed, Err: ErrAborted}
		}
		v.logger.Error().Err(err).Str("sid", sid.String()).Msg("join session")
		return je
	}
	return nil
}

func (v *Viewer) setup(ctx context.Context, epoch uint64, sid domain.SessionID) error {
	id := domain.NewParticipantID(domain.RoleViewer)
	if err := v.gw.JoinAsViewer(ctx, sid, id); err != nil {
		return err
	}
	v.mu.Lock()
	if !v.current(epoch) {
		v.mu.Unlock()
		return ErrAborted
	}
	v.st.id, v.st.joined = id, true
	v.mu.Unlock()

	offer, err := v.gw.GetOffer(ctx, sid, id)
	if err != nil {
		return err
	}
	remote, err := offer.WebRTC()
	if err != nil {
		return err
	}

	conn, err := v.peers.NewConnection()
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}
	v.mu.Lock()
	if !v.current(epoch) {
		v.mu.Unlock()
		_ = conn.Close()
		return ErrAborted
	}
	v.st.conn = conn
	v.mu.Unlock()

	conn.OnTrack(func(track core.RemoteTrack) {
		v.onTrack(epoch, track)
	})
	conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		v.mu.Lock()
		if v.current(epoch) {
			v.st.pending = append(v.st.pending, domain.CandidateFromWebRTC(ci))
		}
		v.mu.Unlock()
	})
	conn.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		v.onNativeState(epoch, s)
	})

	if err := conn.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	answer, err := conn.CreateAnswer()
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := conn.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	if err := v.gw.SendAnswer(ctx, sid, id, domain.DescriptionFromWebRTC(answer)); err != nil {
		return err
	}
	v.logger.Info().Str("sid", sid.String()).Str("viewer", id.String()).Msg("answer sent")

	if err := wait(ctx, v.opts.GatherGrace); err != nil {
		return err
	}
	if err := v.flush(ctx, epoch, sid, id); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.current(epoch) {
		return ErrAborted
	}
	v.st.cancelSetup = nil
	v.st.poll = startPoller(v.opts.PollInterval,
		func(ctx context.Context) error { return v.tick(ctx, epoch) },
		func(err error) { v.finish(epoch, err) },
	)
	return nil
}

func (v *Viewer) current(epoch uint64) bool {
	return v.st.active && v.st.epoch == epoch
}

func (v *Viewer) flush(ctx context.Context, epoch uint64, sid domain.SessionID, id domain.ParticipantID) error {
	v.mu.Lock()
	if !v.current(epoch) {
		v.mu.Unlock()
		return ErrAborted
	}
	batch := v.st.pending
	v.st.pending = nil
	v.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	if err := v.gw.AddViewerCandidates(ctx, sid, id, batch); err != nil {
		v.mu.Lock()
		if v.current(epoch) {
			v.st.pending = append(batch, v.st.pending...)
		}
		v.mu.Unlock()
		return err
	}
	return nil
}

// onTrack forwards tracks of the first inbound stream to the sink and ignores the rest.
func (v *Viewer) onTrack(epoch uint64, track core.RemoteTrack) {
	v.mu.Lock()
	if !v.current(epoch) {
		v.mu.Unlock()
		return
	}
	if v.st.stream == "" {
		v.st.stream = track.StreamID()
	}
	forward := v.sink != nil && track.StreamID() == v.st.stream
	if forward {
		// Attached under mu so that teardown either sees it or the track is dropped.
		v.sink.Attach(track)
		v.st.attached = true
	}
	v.mu.Unlock()

	v.logger.Info().
		Str("kind", track.Kind().String()).
		Str("track_id", track.ID()).
		Str("stream_id", track.StreamID()).
		Bool("forward", forward).
		Msg("remote track")
}

func (v *Viewer) onNativeState(epoch uint64, s webrtc.PeerConnectionState) {
	v.mu.Lock()
	if !v.current(epoch) || !v.st.machine.Observe(s) {
		v.mu.Unlock()
		return
	}
	state := v.st.machine.State()
	if state == core.StateDisconnected {
		v.st.lastErr = ErrConnectionLost
	}
	v.mu.Unlock()
	v.logger.Info().Str("native", s.String()).Str("state", state.String()).Msg("connection state")
	v.notify()
	if state == core.StateDisconnected {
		go v.finish(epoch, ErrConnectionLost)
	}
}

func (v *Viewer) tick(ctx context.Context, epoch uint64) error {
	v.mu.Lock()
	if !v.current(epoch) {
		v.mu.Unlock()
		return nil
	}
	sid, id, conn, applied := v.st.sid, v.st.id, v.st.conn, v.st.applied
	v.mu.Unlock()

	if done, err := v.gw.ShouldFinish(ctx, sid); done {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBroadcastEnded, err)
		}
		return ErrBroadcastEnded
	}

	if err := v.flush(ctx, epoch, sid, id); err != nil {
		if k := signaling.KindOf(err); k == signaling.KindNotFound || k.Terminal() {
			return fmt.Errorf("%w: %w", ErrBroadcastEnded, err)
		}
		v.logger.Warn().Err(err).Msg("publish candidates")
	}

	cs, err := v.gw.GetBroadcasterCandidates(ctx, sid, id)
	if err != nil {
		if k := signaling.KindOf(err); k == signaling.KindNotFound || k.Terminal() {
			return fmt.Errorf("%w: %w", ErrBroadcastEnded, err)
		}
		v.logger.Warn().Err(err).Msg("poll broadcaster candidates")
		return nil
	}
	if len(cs) <= applied {
		return nil
	}

	v.mu.Lock()
	if !v.current(epoch) {
		v.mu.Unlock()
		return nil
	}
	v.st.applied = len(cs)
	v.mu.Unlock()
	applyCandidates(conn, cs[applied:], &v.logger)
	return nil
}

func (v *Viewer) finish(epoch uint64, cause error) {
	v.mu.Lock()
	if !v.current(epoch) {
		v.mu.Unlock()
		return
	}
	v.st.machine.Terminate()
	v.st.lastErr = cause
	v.mu.Unlock()
	v.logger.Warn().Err(cause).Msg("session ended")
	v.notify()
	v.teardown(epoch, cause)
}

// Leave ends the viewer side. Safe to call repeatedly.
func (v *Viewer) Leave() {
	v.mu.Lock()
	epoch := v.st.epoch
	v.mu.Unlock()
	v.teardown(epoch, nil)
}

func (v *Viewer) teardown(epoch uint64, cause error) bool {
	v.mu.Lock()
	if !v.current(epoch) {
		v.mu.Unlock()
		return false
	}
	st := v.st
	v.st = viewerState{epoch: st.epoch, lastErr: cause}
	v.mu.Unlock()

	if st.cancelSetup != nil {
		st.cancelSetup()
	}
	st.poll.stop()
	if st.conn != nil {
		if err := st.conn.Close(); err != nil {
			v.logger.Error().Err(err).Msg("close peer connection")
		}
	}
	if st.attached {
		v.sink.Detach()
	}
	v.logger.Info().Str("sid", st.sid.String()).Msg("left session")
	v.notify()
	return true
}
