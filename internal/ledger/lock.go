package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked means another run holds the ledger.
var ErrLocked = errors.New("ledger is in use by another run")

// AcquireRunLock takes a non-blocking lock on <ledgerPath>.lock. It does not
// serialize writers; it only refuses to start a second run.
func AcquireRunLock(ledgerPath string) (release func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(ledgerPath), 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(ledgerPath + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, fl.Path())
	}
	return fl.Unlock, nil
}
