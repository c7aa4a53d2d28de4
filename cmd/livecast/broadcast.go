package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Livecast/internal/app/live"
	"github.com/dkeye/Livecast/internal/app/media"
	"github.com/dkeye/Livecast/internal/sessioncode"
)

var flagFile string

var broadcastCmd = &cobra.Command{
	Use:     "broadcast --file <video.ivf>",
	Aliases: []string{"b"},
	Short:   "Go live with a video file",
	Long: `Publish an IVF video (VP8, VP9 or AV1) and wait for a viewer.

The session code printed on start is what the viewer passes to "livecast watch".
The broadcast runs until interrupted, the store finishes the session, or the
viewer connection is lost.

Examples:
  livecast broadcast --file demo.ivf
  livecast broadcast --file demo.ivf --public-url https://live.example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagFile == "" {
			return errors.New("--file is required")
		}
		return runBroadcast(cmd.Context())
	},
}

func init() {
	broadcastCmd.Flags().StringVarP(&flagFile, "file", "f", "", "IVF file to stream, played in a loop")
}

func runBroadcast(ctx context.Context) error {
	st, err := newStack(cfg)
	if err != nil {
		return err
	}
	source, err := media.OpenIVF(flagFile)
	if err != nil {
		return err
	}

	logger := log.With().Str("module", "cli").Logger()
	b := live.NewBroadcaster(st.gw, st.peers, st.opts)
	ended := make(chan live.BroadcastStatus, 1)
	var started atomic.Bool
	b.OnChange(func(s live.BroadcastStatus) {
		logger.Debug().Bool("live", s.Live).Str("state", s.State.String()).Int("viewers", s.Viewers).Msg("broadcast status")
		if s.Live || !started.Load() {
			return
		}
		select {
		case ended <- s:
		default:
		}
	})

	if err := b.Start(ctx, source); err != nil {
		return fmt.Errorf("start broadcast: %w", err)
	}
	defer b.End()
	started.Store(true)

	s := b.Status()
	if !s.Live {
		return s.Err
	}
	fmt.Printf("Live. Session code: %s\n", s.Code)
	if cfg.PublicURL != "" {
		fmt.Printf("Watch link: %s\n", sessioncode.Link(cfg.PublicURL, s.SessionID))
	}
	fmt.Printf("Viewers run: livecast watch %s\n", s.Code)

	select {
	case <-ctx.Done():
		logger.Info().Msg("interrupted, ending broadcast")
		return nil
	case s := <-ended:
		if s.Err != nil {
			return s.Err
		}
		return nil
	}
}
