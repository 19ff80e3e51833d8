package ledger

import (
	"sort"
	"time"

	"jobbot-engine/internal/domain"
)

type Report struct {
	GeneratedAt        string            `json:"generated_at"`
	TotalApplications  int               `json:"total_applications"`
	ByCandidate        map[string]int    `json:"by_candidate"`
	ByStatus           map[string]int    `json:"by_status"`
	ByDate             []DateCount       `json:"by_date"`
	RecentApplications []ReportedAttempt `json:"recent_applications"`
}

type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ReportedAttempt struct {
	CandidateEmail string `json:"CandidateEmail"`
	JobTitle       string `json:"JobTitle"`
	JobID          string `json:"JobID"`
	AppliedDate    string `json:"AppliedDate"`
	Status         string `json:"Status"`
}

// BuildReport aggregates entries. by_date keeps the last seven days that had
// activity; recent_applications the last ten rows in ledger order.
func BuildReport(entries []domain.LedgerEntry, now time.Time) Report {
	r := Report{
		GeneratedAt:        now.Format(DateLayout),
		TotalApplications:  len(entries),
		ByCandidate:        map[string]int{},
		ByStatus:           map[string]int{},
		ByDate:             []DateCount{},
		RecentApplications: []ReportedAttempt{},
	}
	days := map[string]int{}
	for _, e := range entries {
		r.ByCandidate[e.CandidateEmail]++
		r.ByStatus[string(e.Outcome)]++
		if !e.AppliedAt.IsZero() {
			days[e.AppliedAt.Format("2006-01-02")]++
		}
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 7 {
		keys = keys[len(keys)-7:]
	}
	for _, k := range keys {
		r.ByDate = append(r.ByDate, DateCount{Date: k, Count: days[k]})
	}

	start := len(entries) - 10
	if start < 0 {
		start = 0
	}
	for _, e := range entries[start:] {
		var date string
		if !e.AppliedAt.IsZero() {
			date = e.AppliedAt.Format(DateLayout)
		}
		r.RecentApplications = append(r.RecentApplications, ReportedAttempt{
			CandidateEmail: e.CandidateEmail,
			JobTitle:       e.JobTitle,
			JobID:          string(e.JobID),
			AppliedDate:    date,
			Status:         string(e.Outcome),
		})
	}
	return r
}

// ForCandidate keeps only the entries of one candidate.
func ForCandidate(entries []domain.LedgerEntry, email string) []domain.LedgerEntry {
	var out []domain.LedgerEntry
	for _, e := range entries {
		if equalEmail(e.CandidateEmail, email) {
			out = append(out, e)
		}
	}
	return out
}
