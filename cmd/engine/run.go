package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"jobbot-engine/internal/browser"
	"jobbot-engine/internal/config"
	"jobbot-engine/internal/events"
	"jobbot-engine/internal/run"
	"jobbot-engine/internal/secrets"
)

var (
	eventsPath string
	serveAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every active candidate in the roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(bootLogger())
		if err != nil {
			return err
		}
		log, closeLog, err := setupLogger(&cfg, true)
		if err != nil {
			return err
		}
		defer closeLog()

		opts := run.Options{
			Config:    cfg,
			Log:       log,
			Open:      opener(cfg),
			Passwords: secrets.GetCandidatePassword,
		}

		if eventsPath != "" || serveAddr != "" {
			opts.RunID = uuid.NewString()
			hub := events.NewHub(opts.RunID)
			opts.Events = hub
			// deferred in reverse: the hub closes first so SSE streams and
			// the file sink drain before the server stops
			if serveAddr != "" {
				srv, err := serveEvents(hub, serveAddr, log)
				if err != nil {
					return err
				}
				defer shutdown(srv)
			}
			if eventsPath != "" {
				stopSink, err := writeEventsFile(hub, eventsPath)
				if err != nil {
					return err
				}
				defer stopSink()
			}
			defer hub.Close()
		}

		sum, err := run.Run(ctx, opts)
		printSummary(cmd.OutOrStdout(), sum)
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&eventsPath, "events", "", "append step/job/candidate events as JSON lines to this file")
	runCmd.Flags().StringVar(&serveAddr, "serve", "", "serve live events over SSE on this address, e.g. 127.0.0.1:38471")
	rootCmd.AddCommand(runCmd)
}

// opener picks the browser adapter named by browser.driver.
func opener(cfg config.Config) browser.Opener {
	if cfg.Browser.Driver == "static" {
		return func(context.Context) (browser.Session, error) {
			return browser.NewStatic(nil), nil
		}
	}
	return func(ctx context.Context) (browser.Session, error) {
		c, err := browser.OpenChrome(ctx, browser.ChromeOptions{
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
			Explicit:  cfg.Timeouts.Explicit,
		})
		if err != nil {
			return nil, fmt.Errorf("start chrome: %w", err)
		}
		return c, nil
	}
}

// writeEventsFile tees hub events into a JSONL file until the returned
// func is called or the hub closes.
func writeEventsFile(hub *events.Hub, path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	ch := hub.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = events.WriteLines(f, ch)
	}()
	return func() {
		hub.Unsubscribe(ch)
		<-done
		_ = f.Close()
	}, nil
}
