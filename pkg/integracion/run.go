package integracion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Run serves the HTTP gateway and runs the sync worker until ctx is cancelled
// or the server fails.
//
// With sync.durable set, tasks left pending in the outbox by a previous run are
// restored before the first request is accepted. On cancellation the server
// drains in-flight requests for up to 5 seconds and the worker stops at its
// next wait; tasks still queued in memory are lost unless journaled.
func (a *App) Run(ctx context.Context, cmd *ServeCommand) error {
	if cmd.AutoMigrate {
		if err := a.Migrate(ctx, &MigrateCommand{}); err != nil {
			return err
		}
	}
	if a.outbox != nil {
		n, err := a.outbox.Restore(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore outbox: %w", err)
		}
		if n > 0 {
			a.log.Info().Int("tasks", n).Msg("restored pending sync tasks")
		}
	}

	a.config.Watch(a.applyConfig, func(err error) {
		a.log.Error().Err(err).Msg("config reload rejected")
	})

	server := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(a.config.ServerPort)),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}
	return a.serve(ctx, server, listener)
}

func (a *App) serve(ctx context.Context, server *http.Server, listener net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().
			Str("addr", listener.Addr().String()).
			Str("core", a.core.BaseURL()).
			Bool("durable", a.outbox != nil).
			Bool("read_only", a.IsReadOnly()).
			Msg("integracion gateway listening")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.worker.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if n := a.queue.Len(); n > 0 && a.outbox == nil {
			a.log.Warn().Int("tasks", n).Msg("unsynced tasks dropped at shutdown")
		}
		return nil
	})

	return g.Wait()
}
