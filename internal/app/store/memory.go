// Package store holds an in-memory session store.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Livecast/internal/core"
	"github.com/dkeye/Livecast/internal/domain"
	"github.com/rs/zerolog/log"
)

type session struct {
	broadcaster domain.ParticipantID
	offer       domain.Description
	createdAt   time.Time
	finished    bool
	finishedAt  time.Time

	viewer      domain.ParticipantID
	answer      *domain.Description
	bCandidates []domain.Candidate
	vCandidates []domain.Candidate
}

// Memory is a SessionStore kept in process memory.
type Memory struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*session
	nextID   domain.SessionID

	ttl time.Duration
	now func() time.Time
}

var _ core.SessionStore = (*Memory)(nil)

type Option func(*Memory)

// WithTTL sets how long a session lives after it is created. Zero means forever.
func WithTTL(ttl time.Duration) Option { return func(m *Memory) { m.ttl = ttl } }

func WithClock(now func() time.Time) Option { return func(m *Memory) { m.now = now } }

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		sessions: make(map[domain.SessionID]*session),
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) StartBroadcast(ctx context.Context, broadcaster domain.ParticipantID, offer domain.Description) (domain.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := broadcaster.Validate(); err != nil {
		return 0, err
	}
	if err := offer.Validate(); err != nil {
		return 0, err
	}
	if offer.Type != domain.DescriptionTypeOffer {
		return 0, domain.ErrMalformedDescription
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sid := m.nextID
	m.nextID++
	m.sessions[sid] = &session{broadcaster: broadcaster, offer: offer, createdAt: m.now()}
	log.Info().Str("module", "app.store").Str("sid", sid.String()).Str("broadcaster", broadcaster.String()).Msg("session created")
	return sid, nil
}

func (m *Memory) JoinAsViewer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := viewer.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.live(sid)
	if err != nil {
		return err
	}
	switch s.viewer {
	case viewer:
		return nil
	case "":
		s.viewer = viewer
		log.Info().Str("module", "app.store").Str("sid", sid.String()).Str("viewer", viewer.String()).Msg("viewer joined")
		return nil
	}
	return domain.ErrSessionFull
}

func (m *Memory) GetOffer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) (domain.Description, error) {
	if err := ctx.Err(); err != nil {
		return domain.Description{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.joined(sid, viewer)
	if err != nil {
		return domain.Description{}, err
	}
	return s.offer, nil
}

func (m *Memory) SendAnswer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID, answer domain.Description) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := answer.Validate(); err != nil {
		return err
	}
	if answer.Type != domain.DescriptionTypeAnswer {
		return domain.ErrMalformedDescription
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.joined(sid, viewer)
	if err != nil {
		return err
	}
	if s.answer != nil {
		return domain.ErrAnswerExists
	}
	s.answer = &answer
	log.Info().Str("module", "app.store").Str("sid", sid.String()).Str("viewer", viewer.String()).Msg("answer stored")
	return nil
}

func (m *Memory) GetAnswer(ctx context.Context, sid domain.SessionID) (domain.ParticipantID, domain.Description, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.Description{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.live(sid)
	if err != nil {
		return "", domain.Description{}, err
	}
	if s.answer == nil {
		return "", domain.Description{}, domain.ErrNoAnswer
	}
	return s.viewer, *s.answer, nil
}

func (m *Memory) AddBroadcasterCandidates(ctx context.Context, sid domain.SessionID, cs []domain.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.ValidateCandidates(cs); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.live(sid)
	if err != nil {
		return err
	}
	s.bCandidates = append(s.bCandidates, cs...)
	return nil
}

func (m *Memory) AddViewerCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID, cs []domain.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.ValidateCandidates(cs); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.joined(sid, viewer)
	if err != nil {
		return err
	}
	s.vCandidates = append(s.vCandidates, cs...)
	return nil
}

func (m *Memory) GetBroadcasterCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.joined(sid, viewer)
	if err != nil {
		return nil, err
	}
	return domain.CloneCandidates(s.bCandidates), nil
}

func (m *Memory) GetViewerCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.joined(sid, viewer)
	if err != nil {
		return nil, err
	}
	return domain.CloneCandidates(s.vCandidates), nil
}

func (m *Memory) ShouldFinish(ctx context.Context, sid domain.SessionID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sid]
	if !ok {
		return true, domain.ErrSessionNotFound
	}
	return s.finished || m.expired(s), nil
}

// Finish marks a session terminal. Agents observe it on their next should-finish check.
func (m *Memory) Finish(sid domain.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sid]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if !s.finished {
		s.finished = true
		s.finishedAt = m.now()
	}
	log.Info().Str("module", "app.store").Str("sid", sid.String()).Msg("session finished")
	return nil
}

// Stats reports how many sessions exist and how many are still live.
func (m *Memory) Stats() (total, live int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		total++
		if !s.finished && !m.expired(s) {
			live++
		}
	}
	return total, live
}

// Sweep drops sessions that finished or expired more than grace ago.
func (m *Memory) Sweep(grace time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := m.now()
	for sid, s := range m.sessions {
		var end time.Time
		switch {
		case s.finished:
			end = s.finishedAt
		case m.ttl > 0:
			end = s.createdAt.Add(m.ttl)
		default:
			continue
		}
		if now.Sub(end) > grace {
			delete(m.sessions, sid)
			n++
		}
	}
	if n > 0 {
		log.Info().Str("module", "app.store").Int("count", n).Msg("swept sessions")
	}
	return n
}

func (m *Memory) expired(s *session) bool {
	return m.ttl > 0 && m.now().Sub(s.createdAt) > m.ttl
}

// live returns a session that can still be mutated. Callers hold mu.
func (m *Memory) live(sid domain.SessionID) (*session, error) {
	s, ok := m.sessions[sid]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.finished {
		return nil, domain.ErrSessionFinished
	}
	if m.expired(s) {
		return nil, domain.ErrSessionExpired
	}
	return s, nil
}

func (m *Memory) joined(sid domain.SessionID, viewer domain.ParticipantID) (*session, error) {
	s, err := m.live(sid)
	if err != nil {
		return nil, err
	}
	if viewer == "" || s.viewer != viewer {
		return nil, domain.ErrViewerNotFound
	}
	return s, nil
}
