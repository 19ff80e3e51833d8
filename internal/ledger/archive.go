package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Archive copies the whole ledger to
// <backupDir>/applied_jobs_backup_YYYYMMDD_HHMMSS.csv and then empties it.
// An empty ledger is left alone and no backup is written.
func Archive(ctx context.Context, st Store, backupDir string, now time.Time) (backup string, n int, err error) {
	entries, err := st.Entries(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("read ledger: %w", err)
	}
	if len(entries) == 0 {
		return "", 0, nil
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", 0, err
	}
	backup = filepath.Join(backupDir, "applied_jobs_backup_"+now.Format("20060102_150405")+".csv")
	f, err := os.OpenFile(backup, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create backup: %w", err)
	}
	if err := WriteEntries(f, entries); err != nil {
		_ = f.Close()
		return "", 0, fmt.Errorf("write backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, err
	}
	if err := st.Reset(ctx); err != nil {
		return backup, 0, fmt.Errorf("reset ledger (backup kept at %s): %w", backup, err)
	}
	return backup, len(entries), nil
}
