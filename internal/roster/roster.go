// Package roster loads the candidate CSV.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jobbot-engine/internal/domain"
)

// Required columns, in template order. LinkedInUrl and PreferredLocation
// are optional.
var Required = []string{"Email", "Password", "FirstName", "LastName", "Phone", "ResumePath", "Status"}

var Optional = []string{"LinkedInUrl", "PreferredLocation"}

// Load returns the active candidates in file order.
func Load(path string) ([]domain.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	all, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return Active(all), nil
}

// Parse reads every row, active or not. Columns are matched by header name
// ignoring case. A repeated email keeps its first row.
func Parse(r io.Reader) ([]domain.Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty roster")
	}
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, h := range head {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, h := range Required {
		if _, ok := col[strings.ToLower(h)]; !ok {
			return nil, fmt.Errorf("missing column %q", h)
		}
	}
	get := func(rec []string, name string) string {
		i, ok := col[strings.ToLower(name)]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []domain.Candidate
	seen := map[string]bool{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c := domain.Candidate{
			Email:             get(rec, "Email"),
			Password:          get(rec, "Password"),
			FirstName:         get(rec, "FirstName"),
			LastName:          get(rec, "LastName"),
			Phone:             get(rec, "Phone"),
			ResumePath:        get(rec, "ResumePath"),
			LinkedInURL:       get(rec, "LinkedInUrl"),
			PreferredLocation: get(rec, "PreferredLocation"),
			Active:            strings.EqualFold(get(rec, "Status"), "active"),
		}
		key := strings.ToLower(c.Email)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, nil
}

func Active(all []domain.Candidate) []domain.Candidate {
	var out []domain.Candidate
	for _, c := range all {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

// PasswordSource looks up a password by candidate email.
type PasswordSource func(email string) (string, error)

// FillPasswords resolves blank passwords through src. Candidates still
// without a password are returned in missing and keep the blank value.
func FillPasswords(cands []domain.Candidate, src PasswordSource) (out []domain.Candidate, missing []string) {
	out = make([]domain.Candidate, len(cands))
	copy(out, cands)
	for i := range out {
		if out[i].Password != "" || src == nil {
			continue
		}
		pw, err := src(out[i].Email)
		if err != nil || pw == "" {
			missing = append(missing, out[i].Email)
			continue
		}
		out[i].Password = pw
	}
	return out, missing
}

// WriteTemplate creates a sample roster at path. An existing file is never
// overwritten.
func WriteTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	rows := [][]string{
		append(append([]string{}, Required...), Optional...),
		{"candidate1@example.com", "password123", "John", "Doe", "1234567890", "resumes/john_doe_resume.pdf", "Active", "https://www.linkedin.com/in/johndoe", ""},
		{"candidate2@example.com", "", "Jane", "Smith", "0987654321", "resumes/jane_smith_resume.pdf", "Active", "", "Remote"},
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
