package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"location_viewer/core-go/internal/config"
	"location_viewer/core-go/internal/httpapi"
	"location_viewer/core-go/internal/loader"
	"location_viewer/core-go/internal/metrics"
	"location_viewer/core-go/internal/render"
	"location_viewer/core-go/internal/viewer"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLog := httpapi.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := httpapi.NewLoggerTo(os.Stdout, cfg.LogLevel, envOr("LOG_FORMAT", "json"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.HTTPAddr).Msg("failed to listen")
	}

	if err := run(ctx, cfg, logger, ln); err != nil {
		logger.Error().Err(err).Msg("location viewer stopped")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// run serves the viewer on ln until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger, ln net.Listener) error {
	l, err := loader.New(cfg.LoaderOptions())
	if err != nil {
		return fmt.Errorf("locations source %q: %w", cfg.Source, err)
	}
	renderer, err := render.New(cfg.RenderOptions())
	if err != nil {
		return fmt.Errorf("page renderer: %w", err)
	}

	m := metrics.New()
	v := viewer.New(logger, l, m)
	defer v.Close()

	h := httpapi.NewHandler(logger, v, renderer, m, httpapi.Options{
		MountContext: ctx,
		DataDir:      cfg.DataDir,
		CORSOrigins:  cfg.CORSOrigins,
	})
	srv := &http.Server{
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", ln.Addr().String()).Str("source", l.Source()).Msg("location viewer listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The listener is up before the first load completes; the page shows the
	// loading state until then.
	v.Start(ctx)

	return g.Wait()
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
