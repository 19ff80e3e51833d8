// Package runctx holds the per-run state every engine component is handed.
package runctx

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"jobbot-engine/internal/browser"
	"jobbot-engine/internal/config"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/events"
	"jobbot-engine/internal/ledger"
	"jobbot-engine/internal/logger"
	"jobbot-engine/internal/pacing"
)

// Context is owned by the orchestrator for one run. Nothing in the engine
// reaches for package-level state.
type Context struct {
	RunID   string
	Config  config.Config
	Session browser.Session
	Log     *slog.Logger
	Ledger  ledger.Store
	Policy  ledger.Policy
	Pacer   *pacing.Pacer
	Events  *events.Hub
	Now     func() time.Time
}

// For returns a copy whose logger is tagged with the candidate.
func (rc *Context) For(c domain.Candidate) *Context {
	cp := *rc
	cp.Log = rc.logger().With("candidate", c.Email)
	return &cp
}

// WithSession returns a copy bound to s.
func (rc *Context) WithSession(s browser.Session) *Context {
	cp := *rc
	cp.Session = s
	return &cp
}

func (rc *Context) Clock() time.Time {
	if rc.Now != nil {
		return rc.Now()
	}
	return time.Now()
}

func (rc *Context) logger() *slog.Logger {
	if rc.Log != nil {
		return rc.Log
	}
	return logger.Discard()
}

// Logger never returns nil.
func (rc *Context) Logger() *slog.Logger { return rc.logger() }

// Fatal reports whether err must end the run: the session is unusable or
// the run was cancelled.
func Fatal(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, domain.ErrTransport) || ctx.Err() != nil
}
