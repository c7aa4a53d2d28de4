// Package live holds the broadcaster and viewer agents.
package live

import (
	"context"
	"time"

	"github.com/dkeye/Livecast/internal/core"
	"github.com/dkeye/Livecast/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultGatherGrace  = 2 * time.Second
)

type Options struct {
	PollInterval time.Duration
	// GatherGrace is how long setup waits for local candidates before publishing them.
	// Zero means DefaultGatherGrace; a negative value publishes right away.
	GatherGrace time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.GatherGrace < 0 {
		o.GatherGrace = 0
	} else if o.GatherGrace == 0 {
		o.GatherGrace = DefaultGatherGrace
	}
	return o
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// applyCandidates adds cs to conn. A candidate that fails is logged and skipped.
func applyCandidates(conn core.MediaConnection, cs []domain.Candidate, logger *zerolog.Logger) {
	for _, c := range cs {
		if err := conn.AddICECandidate(c.WebRTC()); err != nil {
			logger.Warn().Err(err).Str("candidate", c.Candidate).Msg("add remote candidate")
		}
	}
}
