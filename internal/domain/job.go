package domain

import (
	"strings"
	"time"
)

// JobIdentity identifies one posting for dedup purposes.
type JobIdentity string

// JobPosting is derived per listing read and never persisted on its own.
type JobPosting struct {
	Title    string
	Link     string
	Identity JobIdentity
	Tier     string // which resolver strategy produced Identity
	Position int
}

type Outcome string

const (
	OutcomeApplied       Outcome = "Applied"
	OutcomeNoApplyButton Outcome = "NoApplyButton"
	OutcomeFormError     Outcome = "FormError"
	OutcomeError         Outcome = "Error"
)

// ParseOutcome accepts the canonical names plus the older spaced spellings
// ("No Apply Button", "Form Error") found in ledgers written by earlier tools.
func ParseOutcome(s string) (Outcome, bool) {
	k := strings.ToLower(strings.Join(strings.Fields(s), ""))
	switch k {
	case "applied":
		return OutcomeApplied, true
	case "noapplybutton":
		return OutcomeNoApplyButton, true
	case "formerror":
		return OutcomeFormError, true
	case "error":
		return OutcomeError, true
	}
	return "", false
}

// Failed reports whether the attempt ended without a submitted application
// for a reason that may be transient.
func (o Outcome) Failed() bool {
	return o == OutcomeFormError || o == OutcomeError
}

type LedgerEntry struct {
	CandidateEmail string
	JobID          JobIdentity
	JobTitle       string
	AppliedAt      time.Time
	Outcome        Outcome
}
