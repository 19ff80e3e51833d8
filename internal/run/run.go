// Package run processes every active candidate through one browser session.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jobbot-engine/internal/browser"
	"jobbot-engine/internal/config"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/events"
	"jobbot-engine/internal/ledger"
	"jobbot-engine/internal/logger"
	"jobbot-engine/internal/pacing"
	"jobbot-engine/internal/roster"
	"jobbot-engine/internal/runctx"
	"jobbot-engine/internal/session"
)

var (
	ErrNoCandidates = errors.New("no active candidates")
	// ErrRunQuota marks candidates left unprocessed once the run-wide quota
	// is spent.
	ErrRunQuota = errors.New("run quota reached")
)

type Options struct {
	Config config.Config
	Log    *slog.Logger
	Open   browser.Opener

	// Ledger defaults to ledger.Open(Config).
	Ledger ledger.Store
	// Passwords resolves blank roster passwords. May be nil.
	Passwords roster.PasswordSource
	Events    *events.Hub
	// Pacer and Limiter default to the config's pacing section.
	Pacer   *pacing.Pacer
	Limiter *pacing.HostLimiter

	RunID string
	Now   func() time.Time
}

type CandidateSummary struct {
	Email     string
	State     session.State
	Applied   int
	Attempted int
	Skipped   int
	Err       error
}

type Summary struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Candidates []CandidateSummary
	// Err is the error that ended the run early, if any.
	Err error
}

func (s Summary) Applied() int {
	n := 0
	for _, c := range s.Candidates {
		n += c.Applied
	}
	return n
}

// Run takes the ledger lock, loads the roster and works through every
// active candidate in order. The summary is filled in even when an error is
// returned.
func Run(ctx context.Context, o Options) (sum Summary, err error) {
	cfg := o.Config
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = logger.Discard()
	}
	log := o.Log.With("run_id", o.RunID)

	sum = Summary{RunID: o.RunID, Started: o.Now()}
	defer func() {
		sum.Finished = o.Now()
		sum.Err = err
		o.Events.Emit(events.TypeRun, events.RunEvent{
			Phase: "finished", Candidates: len(sum.Candidates), Applied: sum.Applied(), Error: errString(err),
		})
	}()

	release, err := ledger.AcquireRunLock(cfg.Resolve(cfg.App.LedgerPath))
	if err != nil {
		return sum, err
	}
	defer func() {
		if rerr := release(); rerr != nil {
			log.Warn("release ledger lock", "err", rerr)
		}
	}()

	if o.Ledger == nil {
		st, err := ledger.Open(cfg)
		if err != nil {
			return sum, err
		}
		defer st.Close()
		o.Ledger = st
	}

	cands, err := loadCandidates(cfg, o.Passwords, log)
	if err != nil {
		return sum, err
	}
	if len(cands) == 0 {
		return sum, ErrNoCandidates
	}
	sets, setErrs := snapshot(ctx, o.Ledger, cands, ledger.Policy{RetryFailed: cfg.Ledger.RetryFailed})

	if o.Pacer == nil {
		o.Pacer = &pacing.Pacer{
			ActionMin: cfg.Pacing.ActionMin, ActionMax: cfg.Pacing.ActionMax,
			CandidateMin: cfg.Pacing.CandidateMin, CandidateMax: cfg.Pacing.CandidateMax,
		}
	}
	if o.Limiter == nil {
		o.Limiter = pacing.NewHostLimiter(cfg.Pacing.NavigationsPerSec, cfg.Pacing.Burst)
	}

	rc := &runctx.Context{
		RunID:  o.RunID,
		Config: cfg,
		Log:    log,
		Ledger: o.Ledger,
		Policy: ledger.Policy{RetryFailed: cfg.Ledger.RetryFailed},
		Pacer:  o.Pacer,
		Events: o.Events,
		Now:    o.Now,
	}

	log.Info("run started", "candidates", len(cands), "driver", cfg.Browser.Driver)
	o.Events.Emit(events.TypeRun, events.RunEvent{Phase: "started", Candidates: len(cands)})

	err = browser.With(ctx, o.Open, func(s browser.Session) error {
		rc := rc.WithSession(pacing.Throttle(s, o.Limiter))
		return processAll(ctx, rc, cands, sets, setErrs, &sum)
	})
	if err != nil {
		log.Error("run aborted", "err", err)
	}
	return sum, err
}

func loadCandidates(cfg config.Config, src roster.PasswordSource, log *slog.Logger) ([]domain.Candidate, error) {
	cands, err := roster.Load(cfg.Resolve(cfg.App.RosterPath))
	if err != nil {
		return nil, err
	}
	cands, missing := roster.FillPasswords(cands, src)
	for _, email := range missing {
		log.Warn("no password in roster or keychain", "candidate", email)
	}
	return cands, nil
}

// snapshot loads each candidate's handled set concurrently.
func snapshot(ctx context.Context, st ledger.Store, cands []domain.Candidate, p ledger.Policy) ([]*ledger.Set, []error) {
	sets := make([]*ledger.Set, len(cands))
	errs := make([]error, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range cands {
		g.Go(func() error {
			sets[i], errs[i] = ledger.AppliedSet(gctx, st, c.Email, p)
			return nil
		})
	}
	_ = g.Wait()
	return sets, errs
}

func processAll(ctx context.Context, rc *runctx.Context, cands []domain.Candidate, sets []*ledger.Set, setErrs []error, sum *Summary) error {
	cfg := rc.Config
	log := rc.Logger()
	runQuota := cfg.Search.MaxApplicationsPerRun

	for i, c := range cands {
		log.Info("processing candidate", "candidate", c.Email, "n", i+1, "of", len(cands))

		if runQuota > 0 && sum.Applied() >= runQuota {
			for _, rest := range cands[i:] {
				sum.Candidates = append(sum.Candidates, CandidateSummary{Email: rest.Email, State: session.StateLoggedOut, Err: ErrRunQuota})
			}
			log.Info("run quota reached", "quota", runQuota)
			return nil
		}
		if setErrs[i] != nil {
			// without the history we cannot rule out double-applying
			log.Error("could not read ledger, skipping candidate", "candidate", c.Email, "err", setErrs[i])
			sum.Candidates = append(sum.Candidates, CandidateSummary{Email: c.Email, State: session.StateLoggedOut, Err: setErrs[i]})
			continue
		}

		quota := cfg.Search.MaxApplicationsPerCandidate
		if runQuota > 0 {
			quota = min(quota, runQuota-sum.Applied())
		}

		res, err := runCandidate(ctx, rc, c, sets[i], quota)
		sum.Candidates = append(sum.Candidates, CandidateSummary{
			Email: c.Email, State: res.State, Applied: res.Applied, Attempted: res.Attempted, Skipped: res.Skipped, Err: firstErr(err, res.Err),
		})
		if err != nil {
			return err
		}

		if i < len(cands)-1 {
			d := rc.Pacer.CandidateDelay()
			log.Info("waiting before next candidate", "delay", d.Round(time.Second))
			if err := rc.Pacer.Wait(ctx, d); err != nil {
				return err
			}
		}
	}
	log.Info("all candidates processed", "applied", sum.Applied())
	return nil
}

// runCandidate isolates one candidate: a panic becomes that candidate's
// error and the run moves on.
func runCandidate(ctx context.Context, rc *runctx.Context, c domain.Candidate, set *ledger.Set, quota int) (res session.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			rc.Logger().Error("candidate panicked", "candidate", c.Email, "panic", r, "stack", string(debug.Stack()))
			res.Candidate = c.Email
			res.Err = fmt.Errorf("candidate panicked: %v", r)
			err = nil
		}
	}()
	return session.New(rc, c, set, quota).Run(ctx)
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
