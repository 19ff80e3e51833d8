package domain

import "strings"

type Candidate struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	Phone             string
	ResumePath        string
	LinkedInURL       string
	PreferredLocation string
	Active            bool
}

// Locations returns the search locations for this candidate. A non-blank
// preferred location replaces the configured list entirely.
func (c Candidate) Locations(configured []string) []string {
	if loc := strings.TrimSpace(c.PreferredLocation); loc != "" {
		return []string{loc}
	}
	return configured
}
