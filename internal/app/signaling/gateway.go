// Package signaling is a typed facade over a session store.
package signaling

import (
	"context"
	"time"

	"github.com/dkeye/Livecast/internal/core"
	"github.com/dkeye/Livecast/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	opStart          = "start broadcast"
	opJoin           = "join session"
	opGetOffer       = "get offer"
	opSendAnswer     = "send answer"
	opGetAnswer      = "get answer"
	opAddBroadcaster = "add broadcaster candidates"
	opAddViewer      = "add viewer candidates"
	opGetBroadcaster = "get broadcaster candidates"
	opGetViewer      = "get viewer candidates"
	opShouldFinish   = "check session state"
)

// Gateway holds no session state. Every failure it returns is an *Error.
type Gateway struct {
	store   core.SessionStore
	timeout time.Duration
}

// New wraps store. A positive timeout bounds each store call.
func New(store core.SessionStore, timeout time.Duration) *Gateway {
	return &Gateway{store: store, timeout: timeout}
}

func (g *Gateway) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if g == nil || g.store == nil {
		return &Error{Op: op, Kind: KindNotReady, Err: ErrNotReady}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		return newError(op, err)
	}
	return nil
}

func (g *Gateway) StartBroadcast(ctx context.Context, broadcaster domain.ParticipantID, offer domain.Description) (domain.SessionID, error) {
	var sid domain.SessionID
	err := g.call(ctx, opStart, func(ctx context.Context) (err error) {
		sid, err = g.store.StartBroadcast(ctx, broadcaster, offer)
		return err
	})
	return sid, err
}

func (g *Gateway) JoinAsViewer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) error {
	return g.call(ctx, opJoin, func(ctx context.Context) error {
		return g.store.JoinAsViewer(ctx, sid, viewer)
	})
}

func (g *Gateway) GetOffer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) (domain.Description, error) {
	var offer domain.Description
	err := g.call(ctx, opGetOffer, func(ctx context.Context) (err error) {
		offer, err = g.store.GetOffer(ctx, sid, viewer)
		return err
	})
	return offer, err
}

func (g *Gateway) SendAnswer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID, answer domain.Description) error {
	return g.call(ctx, opSendAnswer, func(ctx context.Context) error {
		return g.store.SendAnswer(ctx, sid, viewer, answer)
	})
}

func (g *Gateway) GetAnswer(ctx context.Context, sid domain.SessionID) (domain.ParticipantID, domain.Description, error) {
	var (
		viewer domain.ParticipantID
		answer domain.Description
	)
	err := g.call(ctx, opGetAnswer, func(ctx context.Context) (err error) {
		viewer, answer, err = g.store.GetAnswer(ctx, sid)
		return err
	})
	return viewer, answer, err
}

func (g *Gateway) AddBroadcasterCandidates(ctx context.Context, sid domain.SessionID, cs []domain.Candidate) error {
	return g.call(ctx, opAddBroadcaster, func(ctx context.Context) error {
		return g.store.AddBroadcasterCandidates(ctx, sid, cs)
	})
}

func (g *Gateway) AddViewerCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID, cs []domain.Candidate) error {
	return g.call(ctx, opAddViewer, func(ctx context.Context) error {
		return g.store.AddViewerCandidates(ctx, sid, viewer, cs)
	})
}

func (g *Gateway) GetBroadcasterCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) ([]domain.Candidate, error) {
	var cs []domain.Candidate
	err := g.call(ctx, opGetBroadcaster, func(ctx context.Context) (err error) {
		cs, err = g.store.GetBroadcasterCandidates(ctx, sid, viewer)
		return err
	})
	return cs, err
}

func (g *Gateway) GetViewerCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) ([]domain.Candidate, error) {
	var cs []domain.Candidate
	err := g.call(ctx, opGetViewer, func(ctx context.Context) (err error) {
		cs, err = g.store.GetViewerCandidates(ctx, sid, viewer)
		return err
	})
	return cs, err
}

// ShouldFinish reports whether the session is terminal.
// A failed check counts as terminal; the error is returned alongside.
func (g *Gateway) ShouldFinish(ctx context.Context, sid domain.SessionID) (bool, error) {
	var done bool
	err := g.call(ctx, opShouldFinish, func(ctx context.Context) (err error) {
		done, err = g.store.ShouldFinish(ctx, sid)
		return err
	})
	if err != nil {
		log.Warn().Str("module", "app.signaling").Str("sid", sid.String()).Err(err).Msg("session state check failed, finishing")
		return true, err
	}
	return done, nil
}
