// Package app hosts the shared service runner: signal handling and a
// consistent exit protocol for every binary in the repo.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

type Runner func(ctx context.Context) error

// Run executes the service body with a signal-aware context. The context is
// cancelled on SIGINT/SIGTERM; the body is responsible for its own graceful
// shutdown before returning.
func Run(serviceName string, run Runner) int {
	log := zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	log.Info().Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("failed")
		return 1
	}

	log.Info().Msg("stopped")
	return 0
}
