package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Livecast/internal/adapters/rtc"
	"github.com/dkeye/Livecast/internal/adapters/storeapi"
	"github.com/dkeye/Livecast/internal/adapters/storeclient"
	"github.com/dkeye/Livecast/internal/app/live"
	"github.com/dkeye/Livecast/internal/app/signaling"
	"github.com/dkeye/Livecast/internal/config"
	"github.com/dkeye/Livecast/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "livecast",
	Short: "One-to-one live video over WebRTC",
	Long: `Livecast streams a video file from a broadcaster to a viewer over a direct
WebRTC connection. The two sides find each other through a small session store
that they poll over HTTP.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		logging.Setup(c.LogLevel, c.LogConsole)
		cfg = c
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("store-url", "http://localhost:8080", "session store base URL")
	pf.String("codec", "json", "store wire format: json or msgpack")
	pf.String("log-level", "info", "log level")
	pf.String("public-url", "", "base URL used when printing watch links")
	pf.StringSlice("ice-servers", nil, "STUN/TURN server URLs")
	pf.Duration("poll-interval", live.DefaultPollInterval, "how often to poll the store")
	pf.Duration("gather-grace", live.DefaultGatherGrace, "how long to collect local candidates before publishing")
	pf.Duration("request-timeout", 0, "timeout for one store request")

	rootCmd.AddCommand(broadcastCmd, watchCmd, finishCmd)
}

func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// stack is what both agents need to talk to the store and to each other.
type stack struct {
	client *storeclient.Client
	gw     *signaling.Gateway
	peers  *rtc.Factory
	opts   live.Options
}

func newStack(cfg *config.Config) (*stack, error) {
	codec, err := storeapi.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	client := storeclient.New(cfg.StoreURL, codec, &http.Client{})

	peers, err := rtc.NewFactory(rtc.Config{
		ICEServers: cfg.ICEServers,
		LogLevel:   logging.ParseLevel(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("create peer factory: %w", err)
	}

	log.Debug().Str("module", "cli").Str("store", cfg.StoreURL).Str("codec", codec.ContentType()).Msg("store client ready")
	return &stack{
		client: client,
		gw:     signaling.New(client, cfg.RequestTimeout),
		peers:  peers,
		opts:   live.Options{PollInterval: cfg.PollInterval, GatherGrace: cfg.GatherGrace},
	}, nil
}
