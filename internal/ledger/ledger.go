// Package ledger records every application attempt and answers "has this
// candidate already handled this job".
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobbot-engine/internal/config"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/store"
)

// Store is an append-only ledger backend.
type Store interface {
	// Lookup returns every recorded outcome per job for one candidate.
	Lookup(ctx context.Context, email string) (map[domain.JobIdentity][]domain.Outcome, error)
	Append(ctx context.Context, e domain.LedgerEntry) error
	Entries(ctx context.Context) ([]domain.LedgerEntry, error)
	// Reset empties the ledger. Only the archive command calls it.
	Reset(ctx context.Context) error
	Close() error
}

// Policy decides which recorded jobs count as handled.
type Policy struct {
	// RetryFailed lets jobs whose every attempt ended in FormError or Error
	// be tried again. Applied and NoApplyButton are always final.
	RetryFailed bool
}

func (p Policy) handled(outcomes []domain.Outcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	if !p.RetryFailed {
		return true
	}
	for _, o := range outcomes {
		if !o.Failed() {
			return true
		}
	}
	return false
}

// Set is the in-memory view of handled jobs for one candidate. It also
// absorbs jobs attempted during the run, so a lost ledger write cannot cause
// a duplicate attempt before the run ends.
type Set struct {
	ids map[domain.JobIdentity]struct{}
}

func NewSet() *Set {
	return &Set{ids: map[domain.JobIdentity]struct{}{}}
}

func (s *Set) Has(id domain.JobIdentity) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Add(id domain.JobIdentity) {
	s.ids[id] = struct{}{}
}

func (s *Set) Len() int { return len(s.ids) }

// AppliedSet loads the handled set for email under policy.
func AppliedSet(ctx context.Context, st Store, email string, p Policy) (*Set, error) {
	recorded, err := st.Lookup(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %w", domain.ErrLedgerIO, email, err)
	}
	set := NewSet()
	for id, outcomes := range recorded {
		if p.handled(outcomes) {
			set.Add(id)
		}
	}
	return set, nil
}

// Record marks the job handled in set and appends the entry. The set is
// updated even when the append fails.
func Record(ctx context.Context, st Store, set *Set, e domain.LedgerEntry) error {
	set.Add(e.JobID)
	if err := st.Append(ctx, e); err != nil {
		return fmt.Errorf("%w: append %s/%s: %w", domain.ErrLedgerIO, e.CandidateEmail, e.JobID, err)
	}
	return nil
}

// Open returns the backend selected by cfg.Ledger.Backend.
func Open(cfg config.Config) (Store, error) {
	path := cfg.Resolve(cfg.App.LedgerPath)
	switch strings.ToLower(cfg.Ledger.Backend) {
	case "", "csv":
		return NewCSV(path), nil
	case "sqlite":
		if ext := filepath.Ext(path); ext == ".csv" {
			path = strings.TrimSuffix(path, ext) + ".db"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrLedgerIO, err)
		}
		l, err := store.OpenLedger(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrLedgerIO, err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func equalEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
