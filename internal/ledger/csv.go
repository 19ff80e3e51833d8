package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"jobbot-engine/internal/domain"
)

// Header is the fixed column order of the CSV ledger.
var Header = []string{"CandidateEmail", "JobTitle", "JobID", "AppliedDate", "Status"}

// DateLayout is the AppliedDate format, local time.
const DateLayout = "2006-01-02 15:04:05"

// CSV is the default ledger backend. The file is created with its header on
// the first write and only ever appended to. Reading a missing file sees an
// empty ledger and leaves the disk untouched.
type CSV struct {
	mu   sync.Mutex
	path string
}

func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

func (c *CSV) Path() string { return c.path }

func (c *CSV) Lookup(ctx context.Context, email string) (map[domain.JobIdentity][]domain.Outcome, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	out := map[domain.JobIdentity][]domain.Outcome{}
	for _, e := range entries {
		if !equalEmail(e.CandidateEmail, email) {
			continue
		}
		o := e.Outcome
		if _, ok := domain.ParseOutcome(string(o)); !ok {
			o = domain.OutcomeError
		}
		out[e.JobID] = append(out[e.JobID], o)
	}
	return out, nil
}

// Append writes exactly one row, in the column order of the file's own
// header. A last row without a line ending gets one first.
func (c *CSV) Append(ctx context.Context, e domain.LedgerEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	head, needNewline, err := c.layout()
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	rec := row(e)
	if head != nil {
		if rec, err = arrange(head, rec); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if needNewline {
		if _, err := f.WriteString("\n"); err != nil {
			_ = f.Close()
			return err
		}
	}
	w := csv.NewWriter(f)
	if head == nil {
		if err := w.Write(Header); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Write(rec); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// layout returns the header of the existing file (nil when the file is
// empty) and whether its last byte is not a line ending.
func (c *CSV) layout() (head []string, needNewline bool, err error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	if st.Size() == 0 {
		return nil, false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		return nil, false, err
	}

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	head, err = cr.Read()
	if err != nil {
		return nil, false, fmt.Errorf("read header: %w", err)
	}
	return head, last[0] != '\n', nil
}

func (c *CSV) Entries(ctx context.Context) ([]domain.LedgerEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEntries(f)
}

// Reset rewrites the file with only the header.
func (c *CSV) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeFile(c.path, nil)
}

func (c *CSV) Close() error { return nil }

func row(e domain.LedgerEntry) []string {
	return []string{
		e.CandidateEmail,
		e.JobTitle,
		string(e.JobID),
		e.AppliedAt.Format(DateLayout),
		string(e.Outcome),
	}
}

// columns maps each ledger column to its index in head.
func columns(head []string) (map[string]int, error) {
	col := map[string]int{}
	for i, h := range head {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, h := range Header {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("ledger header missing %q", h)
		}
	}
	return col, nil
}

// arrange moves a Header-ordered record into the column order of head.
// Columns the engine does not know stay blank.
func arrange(head, rec []string) ([]string, error) {
	col, err := columns(head)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(head))
	for i, name := range Header {
		out[col[name]] = rec[i]
	}
	return out, nil
}

// ReadEntries parses a ledger by header name, so column order may vary.
// Unknown statuses are kept verbatim.
func ReadEntries(r io.Reader) ([]domain.LedgerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col, err := columns(head)
	if err != nil {
		return nil, err
	}
	get := func(rec []string, name string) string {
		i := col[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []domain.LedgerEntry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		e := domain.LedgerEntry{
			CandidateEmail: get(rec, "CandidateEmail"),
			JobTitle:       get(rec, "JobTitle"),
			JobID:          domain.JobIdentity(get(rec, "JobID")),
		}
		if e.CandidateEmail == "" && e.JobID == "" {
			continue
		}
		e.AppliedAt, _ = time.ParseInLocation(DateLayout, get(rec, "AppliedDate"), time.Local)
		status := get(rec, "Status")
		if o, ok := domain.ParseOutcome(status); ok {
			e.Outcome = o
		} else {
			e.Outcome = domain.Outcome(status)
		}
		out = append(out, e)
	}
	return out, nil
}

// WriteEntries writes a complete ledger, header included.
func WriteEntries(w io.Writer, entries []domain.LedgerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(row(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFile replaces path with a ledger holding entries, via tmp + rename.
func writeFile(path string, entries []domain.LedgerEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := WriteEntries(f, entries); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
