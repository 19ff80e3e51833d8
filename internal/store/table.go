package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobbot-engine/internal/domain"
)

// DateLayout matches the AppliedDate column of the CSV ledger.
const DateLayout = "2006-01-02 15:04:05"

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS applications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  candidate_email TEXT NOT NULL,
  job_title TEXT NOT NULL,
  job_id TEXT NOT NULL,
  applied_date TEXT NOT NULL,
  status TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_applications_candidate
ON applications(candidate_email COLLATE NOCASE, job_id);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertApplication appends one ledger row.
func InsertApplication(ctx context.Context, db *sql.DB, e domain.LedgerEntry) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO applications (candidate_email, job_title, job_id, applied_date, status)
VALUES (?, ?, ?, ?, ?);`,
		e.CandidateEmail, e.JobTitle, string(e.JobID), e.AppliedAt.Format(DateLayout), string(e.Outcome),
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// OutcomesFor returns every recorded outcome per job for one candidate.
func OutcomesFor(ctx context.Context, db *sql.DB, email string) (map[domain.JobIdentity][]domain.Outcome, error) {
	rows, err := db.QueryContext(ctx, `
SELECT job_id, status
FROM applications
WHERE candidate_email = ? COLLATE NOCASE
ORDER BY id;`, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[domain.JobIdentity][]domain.Outcome{}
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		o, ok := domain.ParseOutcome(status)
		if !ok {
			o = domain.OutcomeError
		}
		out[domain.JobIdentity(id)] = append(out[domain.JobIdentity(id)], o)
	}
	return out, rows.Err()
}

// ListApplications returns every row in insertion order.
func ListApplications(ctx context.Context, db *sql.DB) ([]domain.LedgerEntry, error) {
	rows, err := db.QueryContext(ctx, `
SELECT candidate_email, job_title, job_id, applied_date, status
FROM applications
ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var id, date, status string
		if err := rows.Scan(&e.CandidateEmail, &e.JobTitle, &id, &date, &status); err != nil {
			return nil, err
		}
		e.JobID = domain.JobIdentity(id)
		e.AppliedAt, _ = time.ParseInLocation(DateLayout, date, time.Local)
		if o, ok := domain.ParseOutcome(status); ok {
			e.Outcome = o
		} else {
			e.Outcome = domain.Outcome(status)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearApplications deletes every row and reports how many were removed.
func ClearApplications(ctx context.Context, db *sql.DB) (deleted int64, err error) {
	res, err := db.ExecContext(ctx, `DELETE FROM applications;`)
	if err != nil {
		return 0, fmt.Errorf("clear applications: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
