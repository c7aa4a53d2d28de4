package core

import (
	"context"

	"github.com/dkeye/Livecast/internal/domain"
)

// SessionStore is the append/poll store both agents negotiate through.
// Implementations report failures with the sentinel errors of package domain.
type SessionStore interface {
	StartBroadcast(ctx context.Context, broadcaster domain.ParticipantID, offer domain.Description) (domain.SessionID, error)
	JoinAsViewer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) error
	GetOffer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) (domain.Description, error)
	SendAnswer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID, answer domain.Description) error
	// GetAnswer returns the answer of the session's viewer and who sent it.
	GetAnswer(ctx context.Context, sid domain.SessionID) (domain.ParticipantID, domain.Description, error)

	AddBroadcasterCandidates(ctx context.Context, sid domain.SessionID, cs []domain.Candidate) error
	AddViewerCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID, cs []domain.Candidate) error
	// GetBroadcasterCandidates returns every candidate the broadcaster appended so far, in order.
	GetBroadcasterCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) ([]domain.Candidate, error)
	// GetViewerCandidates returns every candidate the viewer appended so far, in order.
	GetViewerCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) ([]domain.Candidate, error)

	ShouldFinish(ctx context.Context, sid domain.SessionID) (bool, error)
}
