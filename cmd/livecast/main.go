package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkeye/Livecast/internal/logging"
)

func main() {
	logging.Setup("info", true)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := execute(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
