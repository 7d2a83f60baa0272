// Package process runs a service binary: it loads configuration, builds the
// service logger, cancels on SIGINT or SIGTERM and closes resources in reverse
// order of acquisition.
package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/wishlist-backend/pkg/config"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

// Body is a service's main loop. Returning context.Canceled after a signal is
// a clean exit.
type Body func(ctx context.Context, cfg *config.Config, logg *logger.Logger) error

// Main never returns when body fails; it logs and exits with status 1.
func Main(service string, body Body) {
	if err := Run(context.Background(), service, body); err != nil {
		os.Exit(1)
	}
}

// Run is Main without the exit, for callers that need the error.
func Run(parent context.Context, service string, body Body) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: service}).Error(parent, service+".config_invalid", err)
		return err
	}
	logg := logger.ForService(service, cfg.App)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, service+".starting")
	err = body(ctx, cfg, logg)
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.WithoutCancel(ctx), service+".exit", err)
		return err
	}
	logg.Info(context.WithoutCancel(ctx), service+".stopped")
	return nil
}

// Closers collects resources as they are opened.
type Closers []io.Closer

func (c *Closers) Add(closer io.Closer) {
	*c = append(*c, closer)
}

// Close closes everything in reverse order and reports every failure.
func (c *Closers) Close() error {
	var errs error
	for i := len(*c) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, (*c)[i].Close())
	}
	*c = nil
	return errs
}
