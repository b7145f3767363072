// Package daemon wires the GradeBench backend together: SQLite mirror,
// Canvas client, job tracker, sync runner and the control plane server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gradebench/gradebench/internal/canvas"
	"github.com/gradebench/gradebench/internal/config"
	"github.com/gradebench/gradebench/internal/jobs"
	"github.com/gradebench/gradebench/internal/server"
	"github.com/gradebench/gradebench/internal/store"
)

// jobRetention is how long terminal jobs stay queryable. Pollers re-poll
// finished operations for a while (page reloads), so this stays generous.
const jobRetention = 30 * time.Minute

const cleanupInterval = 5 * time.Minute

type Daemon struct {
	cfg     *config.Config
	store   *store.Store
	canvas  *canvas.Client
	tracker *jobs.Tracker
	srv     *server.Server
}

func New(cfg *config.Config) (*Daemon, error) {
	if cfg.CanvasBaseURL == "" || cfg.CanvasToken == "" {
		return nil, fmt.Errorf("canvas credentials missing; set canvas_base_url and canvas_token")
	}

	db, err := store.NewSqliteDB(store.WithPath(cfg.DBPath()))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	st, err := store.New(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	canvasClient, err := canvas.New(cfg.CanvasBaseURL, cfg.CanvasToken)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("canvas client: %w", err)
	}

	tracker := jobs.NewTracker()
	runner := jobs.NewRunner(canvasClient, st, tracker, slog.Default())

	srv, err := server.New(
		&server.Config{Addr: cfg.DaemonAddr, AuthToken: cfg.AuthToken},
		&server.Deps{Tracker: tracker, Runner: runner, Store: st},
	)
	if err != nil {
		canvasClient.Close()
		st.Close()
		return nil, err
	}

	return &Daemon{
		cfg:     cfg,
		store:   st,
		canvas:  canvasClient,
		tracker: tracker,
		srv:     srv,
	}, nil
}

func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("daemon start", "data_dir", d.cfg.DataDir, "canvas", d.cfg.CanvasBaseURL)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := d.srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start control plane: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			case <-ticker.C:
				d.tracker.Cleanup(jobRetention)
			}
		}
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("received interrupt signal, stopping daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return d.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon failure", "error", err)
		return err
	}

	slog.Info("daemon stopped")
	return nil
}

func (d *Daemon) Stop(ctx context.Context) error {
	d.tracker.Close()
	d.canvas.Close()

	var errs []error
	if err := d.srv.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop control plane: %w", err))
	}
	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}
