package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gradebench/gradebench/internal/progress"
	"github.com/gradebench/gradebench/internal/sdk"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	var all bool

	syncCmd := &cobra.Command{
		Use:   "sync [courseID...]",
		Short: "Sync Canvas courses into the local database",
		Long:  "Starts a sync on the daemon and polls its progress until the operation finishes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if !all && len(args) == 0 {
				return errors.New("pass one or more course ids, or --all")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := sdk.New(cfg.DaemonURL, cfg.AuthToken)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			presenter := progress.NewPresenter(progress.PresenterConfig{Texts: progress.SyncTexts})
			aggregator := progress.NewAggregator()
			render := &syncRenderer{out: out, presenter: presenter, aggregator: aggregator}

			done := make(chan *progress.Snapshot, 1)
			ctrl := progress.NewController(progress.ControllerConfig{
				Starter:    client,
				Source:     client,
				Presenter:  presenter,
				Aggregator: aggregator,
				Session: progress.SessionConfig{
					OnSnapshot: render.observe,
					OnTerminal: func(snap *progress.Snapshot) { done <- snap },
				},
			})

			if err := ctrl.Start(cmd.Context(), progress.Scope{CourseIDs: args, All: all}); err != nil {
				return err
			}

			select {
			case <-cmd.Context().Done():
				ctrl.Stop()
				return cmd.Context().Err()
			case snap := <-done:
				render.finish(snap)
				if !snap.Status.Succeeded() {
					msg := snap.Error
					if msg == "" {
						msg = snap.Message
					}
					return fmt.Errorf("sync failed: %s", msg)
				}
				return nil
			}
		},
	}

	syncCmd.Flags().BoolVar(&all, "all", false, "Sync every course already in the local database")

	return syncCmd
}

const barWidth = 20

// syncRenderer prints one line per meaningful progress change. No cursor
// control, so output interleaves cleanly with log lines.
type syncRenderer struct {
	out        io.Writer
	presenter  *progress.Presenter
	aggregator *progress.Aggregator

	mu   sync.Mutex
	last string
}

func (r *syncRenderer) observe(snap *progress.Snapshot) {
	state := r.presenter.Present(snap)
	line := fmt.Sprintf("%s %3d%%  %s", renderBar(state.Percent), state.Percent, state.StatusText)

	r.mu.Lock()
	changed := line != r.last
	r.last = line
	r.mu.Unlock()

	if changed && !state.IsTerminal {
		fmt.Fprintln(r.out, line)
	}
}

func (r *syncRenderer) finish(snap *progress.Snapshot) {
	state := r.presenter.Present(snap)
	fmt.Fprintf(r.out, "%s %3d%%  %s\n", renderBar(state.Percent), state.Percent, state.StatusText)

	for _, item := range r.aggregator.Sorted() {
		mark := "✓"
		if item.Status == progress.StatusError {
			mark = "✗"
		}
		line := fmt.Sprintf("  %s %s", mark, item.Label)
		if item.Message != "" {
			line += ": " + item.Message
		}
		fmt.Fprintln(r.out, line)
	}
}

func renderBar(percent int) string {
	filled := percent * barWidth / 100
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]"
}
