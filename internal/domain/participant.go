// Package domain contains entities shared by the store, the agents and the wire, without logic.
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const MaxParticipantIDLen = 64

var (
	ErrParticipantIDEmpty   = errors.New("participant id empty")
	ErrParticipantIDTooLong = errors.New("participant id too long")
)

type Role string

const (
	RoleBroadcaster Role = "broadcaster"
	RoleViewer      Role = "viewer"
)

// ParticipantID identifies one side of a session. It is generated locally and never reused.
type ParticipantID string

func NewParticipantID(role Role) ParticipantID {
	return ParticipantID(fmt.Sprintf("%s-%s", role, uuid.NewString()))
}

func (id ParticipantID) Validate() error {
	if len(id) == 0 {
		return ErrParticipantIDEmpty
	}
	if len(id) > MaxParticipantIDLen {
		return ErrParticipantIDTooLong
	}
	return nil
}

func (id ParticipantID) String() string { return string(id) }
