package run

import (
	"context"
	"fmt"
	"log/slog"

	"jobbot-engine/internal/apply"
	"jobbot-engine/internal/browser"
	"jobbot-engine/internal/config"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/ledger"
	"jobbot-engine/internal/listing"
	"jobbot-engine/internal/logger"
	"jobbot-engine/internal/pacing"
	"jobbot-engine/internal/runctx"
	"jobbot-engine/internal/session"
)

type ScanOptions struct {
	Config   config.Config
	Log      *slog.Logger
	Open     browser.Opener
	Keyword  string
	Location string

	// Candidate, when set, marks rows already handled for that email.
	Candidate string
	Ledger    ledger.Store
	Pacer     *pacing.Pacer
	// Limit stops after that many rows. 0 = whole listing.
	Limit int
}

type ScanRow struct {
	domain.JobPosting
	Handled bool
}

// Scan runs one search and resolves every listing entry without logging in
// or touching any form. Nothing is written to the ledger.
func Scan(ctx context.Context, o ScanOptions) ([]ScanRow, error) {
	cfg := o.Config
	if o.Log == nil {
		o.Log = logger.Discard()
	}
	if o.Pacer == nil {
		o.Pacer = &pacing.Pacer{}
	}

	set := ledger.NewSet()
	if o.Candidate != "" {
		if o.Ledger == nil {
			st, err := ledger.Open(cfg)
			if err != nil {
				return nil, err
			}
			defer st.Close()
			o.Ledger = st
		}
		s, err := ledger.AppliedSet(ctx, o.Ledger, o.Candidate, ledger.Policy{RetryFailed: cfg.Ledger.RetryFailed})
		if err != nil {
			return nil, err
		}
		set = s
	}

	rc := &runctx.Context{Config: cfg, Log: o.Log, Pacer: o.Pacer}
	cand := domain.Candidate{Email: o.Candidate}

	var rows []ScanRow
	err := browser.With(ctx, o.Open, func(s browser.Session) error {
		rc := rc.WithSession(pacing.Throttle(s, pacing.NewHostLimiter(cfg.Pacing.NavigationsPerSec, cfg.Pacing.Burst)))
		if err := session.New(rc, cand, set, 0).Search(ctx, o.Keyword, o.Location); err != nil {
			return fmt.Errorf("search %q in %q: %w", o.Keyword, o.Location, err)
		}

		inspector := apply.NewApplier(rc, cand, set)
		cur := listing.FromSelector(rc.Session, cfg.Site.ListingEntry)
		for o.Limit <= 0 || len(rows) < o.Limit {
			el, pos, ok, err := cur.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			p := inspector.Inspect(ctx, el, pos)
			rows = append(rows, ScanRow{JobPosting: p, Handled: set.Has(p.Identity)})
		}
		o.Log.Info("scan done", "keyword", o.Keyword, "location", o.Location, "entries", len(rows))
		return nil
	})
	return rows, err
}
