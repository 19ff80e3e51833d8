// Package store is the SQLite backend of the applied-job ledger.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"jobbot-engine/internal/domain"
)

// Ledger keeps ledger rows in the applications table.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (creating if needed) the database at path and migrates it.
func OpenLedger(path string) (*Ledger, error) {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	// the ledger has a single writer per run
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Lookup(ctx context.Context, email string) (map[domain.JobIdentity][]domain.Outcome, error) {
	return OutcomesFor(ctx, l.db, email)
}

func (l *Ledger) Append(ctx context.Context, e domain.LedgerEntry) error {
	return InsertApplication(ctx, l.db, e)
}

func (l *Ledger) Entries(ctx context.Context) ([]domain.LedgerEntry, error) {
	return ListApplications(ctx, l.db)
}

func (l *Ledger) Reset(ctx context.Context) error {
	_, err := ClearApplications(ctx, l.db)
	return err
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
