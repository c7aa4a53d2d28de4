package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Livecast/internal/app/live"
	"github.com/dkeye/Livecast/internal/app/media"
	"github.com/dkeye/Livecast/internal/sessioncode"
)

var flagStatsEvery time.Duration

var watchCmd = &cobra.Command{
	Use:     "watch <code|link>",
	Aliases: []string{"w"},
	Short:   "Join a live session",
	Long: `Join a broadcast by its session code or watch link and report what arrives.

Examples:
  livecast watch brave-otter-ramen
  livecast watch https://live.example.com/live/brave-otter-ramen
  livecast watch 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), args[0])
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagStatsEvery, "stats-every", 5*time.Second, "how often to print receive stats")
}

func runWatch(ctx context.Context, input string) error {
	sid, err := sessioncode.Parse(input)
	if err != nil {
		return err
	}
	st, err := newStack(cfg)
	if err != nil {
		return err
	}

	logger := log.With().Str("module", "cli").Str("sid", sid.String()).Logger()
	meter := &media.Meter{}
	relay := media.NewRelay()
	relay.AddOutTrack("meter", media.NewOutTrack(meter, 0))

	v := live.NewViewer(st.gw, st.peers, relay, st.opts)
	ended := make(chan live.ViewerStatus, 1)
	var joined atomic.Bool
	v.OnChange(func(s live.ViewerStatus) {
		logger.Debug().Bool("live", s.Live).Str("state", s.State.String()).Msg("viewer status")
		if s.Live || !joined.Load() {
			return
		}
		select {
		case ended <- s:
		default:
		}
	})

	// A *live.JoinError already reads as a user-facing message.
	if err := v.Join(ctx, sid); err != nil {
		return err
	}
	defer v.Leave()
	joined.Store(true)
	if s := v.Status(); !s.Live {
		return s.Err
	}
	fmt.Printf("Joined session %s\n", sessioncode.Encode(sid))

	every := flagStatsEvery
	if every <= 0 {
		every = 5 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-ended:
			if s.Err != nil {
				return s.Err
			}
			return nil
		case <-t.C:
			r := meter.Read()
			logger.Info().
				Str("state", v.Status().State.String()).
				Uint64("packets", r.Packets).
				Uint64("bytes", r.Bytes).
				Uint64("lost", r.Lost).
				Msg("receiving")
		}
	}
}
