package config

import (
	"errors"
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(s string) string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range SplitList(s) {
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return strings.Join(ys, ",")
	}

	out.Search.Keywords = trimList(out.Search.Keywords)
	out.Search.Locations = trimList(out.Search.Locations)
	out.Browser.Driver = strings.ToLower(strings.TrimSpace(out.Browser.Driver))
	out.Ledger.Backend = strings.ToLower(strings.TrimSpace(out.Ledger.Backend))

	// ---- Validation rules ----

	if out.Search.Keywords == "" {
		res.addErr("search.keywords must list at least one keyword")
	}
	if out.Search.Locations == "" {
		res.addWarn("search.locations is empty; only candidates with a preferred location will search.")
	}
	if out.Search.MaxApplicationsPerCandidate <= 0 {
		res.addErr("search.max_applications_per_candidate must be > 0")
	}
	if out.Search.MaxApplicationsPerRun < 0 {
		res.addErr("search.max_applications_per_run must be >= 0 (0 = unlimited)")
	}

	checkRange := func(name string, lo, hi any, bad bool) {
		if bad {
			res.addErr("pacing.%s_min (%v) must be >= 0 and <= pacing.%s_max (%v)", name, lo, name, hi)
		}
	}
	p := out.Pacing
	checkRange("action", p.ActionMin, p.ActionMax, p.ActionMin < 0 || p.ActionMin > p.ActionMax)
	checkRange("candidate", p.CandidateMin, p.CandidateMax, p.CandidateMin < 0 || p.CandidateMin > p.CandidateMax)
	if p.CandidateMax > 0 && p.CandidateMin == p.CandidateMax {
		res.addWarn("pacing.candidate_min equals candidate_max; delays between candidates will be uniform.")
	}
	if p.NavigationsPerSec <= 0 {
		res.addErr("pacing.navigations_per_sec must be > 0")
	}
	if p.Burst <= 0 {
		res.addErr("pacing.burst must be > 0")
	}

	t := out.Timeouts
	if t.Explicit <= 0 || t.Probe <= 0 || t.Confirm <= 0 || t.Login <= 0 {
		res.addErr("timeouts.explicit, probe, confirm and login must all be > 0")
	}

	switch out.Browser.Driver {
	case "chrome", "static":
	default:
		res.addErr("browser.driver must be chrome or static, got %q", out.Browser.Driver)
	}
	switch out.Ledger.Backend {
	case "csv", "sqlite":
	default:
		res.addErr("ledger.backend must be csv or sqlite, got %q", out.Ledger.Backend)
	}

	s := out.Site
	required := map[string]string{
		"site.base_url":      s.BaseURL,
		"site.listing_entry": s.ListingEntry,
		"site.submit_button": s.SubmitButton,
		"site.email_input":   s.EmailInput,
		"site.login_button":  s.LoginButton,
	}
	for name, v := range required {
		if strings.TrimSpace(v) == "" {
			res.addErr("%s is required", name)
		}
	}
	if len(s.LoggedIn) == 0 {
		res.addErr("site.logged_in needs at least one post-login marker selector")
	}
	if len(s.ApplyButtons) == 0 {
		res.addWarn("site.apply_buttons is empty; every job will be recorded as NoApplyButton.")
	}

	return out, res
}
