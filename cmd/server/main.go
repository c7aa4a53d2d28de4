package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	router "github.com/dkeye/Livecast/internal/adapters/http"
	"github.com/dkeye/Livecast/internal/app/store"
	"github.com/dkeye/Livecast/internal/config"
	"github.com/dkeye/Livecast/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the global logger early so config.Load can use it.
	logging.Setup("info", true)

	pflag.Int("port", 8080, "listen port")
	pflag.String("mode", "release", "gin mode: release, debug or test")
	pflag.String("log-level", "info", "log level")
	pflag.Duration("session-ttl", 4*time.Hour, "how long a session lives")
	pflag.Parse()

	cfg, err := config.Load(pflag.CommandLine)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogConsole)

	sessions := store.NewMemory(store.WithTTL(cfg.SessionTTL))
	limiter := router.NewRateLimiter(cfg.JoinRateLimit, cfg.JoinRateWindow)
	metrics := router.NewMetrics(sessions)

	r := router.SetupRouter(cfg, sessions, metrics, limiter)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweep(ctx, sessions, limiter, cfg.SweepInterval, cfg.SessionTTL)

	go func() {
		log.Info().Str("addr", addr).Dur("session_ttl", cfg.SessionTTL).Msg("Livecast store started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

// sweep drops long-dead sessions and idle rate limiter entries.
func sweep(ctx context.Context, sessions *store.Memory, limiter *router.RateLimiter, every, grace time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sessions.Sweep(grace)
			limiter.Prune()
		}
	}
}
