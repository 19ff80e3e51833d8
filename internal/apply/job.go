package apply

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"jobbot-engine/internal/browser"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/events"
	"jobbot-engine/internal/identity"
	"jobbot-engine/internal/ledger"
	"jobbot-engine/internal/runctx"
)

// ErrListingLost means the results page could not be reached again after a
// job; the current search should be abandoned.
var ErrListingLost = errors.New("lost the search results page")

// recoverAttempts bounds how many steps back we take looking for the listing.
const recoverAttempts = 3

type JobResult struct {
	Posting domain.JobPosting
	Outcome domain.Outcome
	Skipped bool
	Form    *Result
	Err     error
}

// Applier handles listing entries for one candidate.
type Applier struct {
	rc   *runctx.Context
	cand domain.Candidate
	set  *ledger.Set
}

func NewApplier(rc *runctx.Context, c domain.Candidate, set *ledger.Set) *Applier {
	return &Applier{rc: rc, cand: c, set: set}
}

// Apply processes the listing entry at pos. A returned error is either fatal
// (see runctx.Fatal) or ErrListingLost; everything else is folded into the
// recorded outcome.
func (a *Applier) Apply(ctx context.Context, entry browser.Element, pos int) (JobResult, error) {
	log := a.rc.Logger()

	if err := a.focus(ctx, entry); err != nil {
		return JobResult{}, err
	}

	posting := a.Inspect(ctx, entry, pos)
	log = log.With("job_id", posting.Identity, "title", posting.Title)
	log.Info("resolved job", "tier", posting.Tier, "position", pos)

	if a.set.Has(posting.Identity) {
		log.Info("skipping job, already handled")
		a.rc.Events.Emit(events.TypeJob, events.JobEvent{
			Candidate: a.cand.Email, JobID: string(posting.Identity), Title: posting.Title, Tier: posting.Tier, Skipped: true,
		})
		return JobResult{Posting: posting, Skipped: true}, nil
	}

	res := JobResult{Posting: posting}
	res.Outcome, res.Form, res.Err = a.attempt(ctx, entry, posting)
	if runctx.Fatal(ctx, res.Err) {
		return res, res.Err
	}

	switch res.Outcome {
	case domain.OutcomeApplied:
		log.Info("applied")
	case domain.OutcomeNoApplyButton:
		log.Warn("apply button not found")
	default:
		log.Error("application failed", "outcome", res.Outcome, "err", res.Err)
	}
	a.record(ctx, posting, res.Outcome)
	a.rc.Events.Emit(events.TypeJob, events.JobEvent{
		Candidate: a.cand.Email, JobID: string(posting.Identity), Title: posting.Title, Tier: posting.Tier, Outcome: string(res.Outcome),
	})

	if err := a.pause(ctx); err != nil {
		return res, err
	}
	if err := a.ensureListing(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// focus scrolls to the top and then brings entry into view.
func (a *Applier) focus(ctx context.Context, entry browser.Element) error {
	s := a.rc.Session
	if err := s.Exec(ctx, browser.ScriptScrollTop, nil); runctx.Fatal(ctx, err) {
		return err
	}
	if err := a.rc.Pacer.Short(ctx); err != nil {
		return err
	}
	if err := s.ScrollIntoView(ctx, entry); runctx.Fatal(ctx, err) {
		return err
	}
	return a.rc.Pacer.Short(ctx)
}

// Inspect reads title and link from the entry and resolves its identity. It
// never fails; unreadable markup degrades to the title-hash identity.
func (a *Applier) Inspect(ctx context.Context, entry browser.Element, pos int) domain.JobPosting {
	s := a.rc.Session
	p := domain.JobPosting{Position: pos, Title: "Job_" + strconv.Itoa(pos)}

	if link, err := s.FindIn(ctx, entry, a.rc.Config.Site.EntryLink); err == nil {
		if txt, err := s.Text(ctx, link); err == nil {
			if t := identity.CleanText(txt); t != "" {
				p.Title = t
			}
		}
		if href, ok, err := s.Attr(ctx, link, "href"); err == nil && ok {
			p.Link = href
		}
	}

	p.Identity, p.Tier = identity.Resolve(identity.Entry{
		Link:     p.Link,
		Title:    p.Title,
		Position: pos,
		Attr: func(name string) (string, bool) {
			v, ok, err := s.Attr(ctx, entry, name)
			return v, ok && err == nil
		},
	})
	return p
}

func (a *Applier) attempt(ctx context.Context, entry browser.Element, posting domain.JobPosting) (domain.Outcome, *Result, error) {
	s := a.rc.Session
	cfg := a.rc.Config

	if err := a.open(ctx, entry); err != nil {
		return domain.OutcomeError, nil, err
	}
	if err := a.pause(ctx); err != nil {
		return domain.OutcomeError, nil, err
	}

	btn, sel, err := browser.WaitAny(ctx, s, cfg.Site.ApplyButtons, cfg.Timeouts.Probe)
	if errors.Is(err, browser.ErrNotFound) {
		return domain.OutcomeNoApplyButton, nil, nil
	}
	if err != nil {
		return domain.OutcomeError, nil, fmt.Errorf("probe apply button: %w", err)
	}
	a.rc.Logger().Debug("found apply button", "selector", sel)

	if err := s.ScrollIntoView(ctx, btn); runctx.Fatal(ctx, err) {
		return domain.OutcomeError, nil, err
	}
	if err := a.rc.Pacer.Short(ctx); err != nil {
		return domain.OutcomeError, nil, err
	}
	if err := browser.JSClick(ctx, s, btn); err != nil {
		return domain.OutcomeError, nil, fmt.Errorf("click apply: %w", err)
	}
	if err := a.pause(ctx); err != nil {
		return domain.OutcomeError, nil, err
	}

	form, err := NewPipeline(a.rc, a.cand, posting.Identity).Run(ctx)
	if err != nil {
		return domain.OutcomeError, &form, err
	}
	if form.Submitted {
		return domain.OutcomeApplied, &form, nil
	}
	sub, _ := form.Step(StepSubmit)
	return domain.OutcomeFormError, &form, sub.Err
}

// open clicks the entry, falling back to the link inside it.
func (a *Applier) open(ctx context.Context, entry browser.Element) error {
	s := a.rc.Session
	err := s.Exec(ctx, browser.ScriptClick, entry)
	if err == nil || runctx.Fatal(ctx, err) {
		return err
	}
	a.rc.Logger().Warn("script click on entry failed, trying link", "err", err)
	link, lerr := s.FindIn(ctx, entry, a.rc.Config.Site.EntryLink)
	if lerr != nil {
		return fmt.Errorf("open job: %w", errors.Join(err, lerr))
	}
	if err := browser.JSClick(ctx, s, link); err != nil {
		return fmt.Errorf("open job via link: %w", err)
	}
	return nil
}

func (a *Applier) record(ctx context.Context, p domain.JobPosting, o domain.Outcome) {
	err := ledger.Record(ctx, a.rc.Ledger, a.set, domain.LedgerEntry{
		CandidateEmail: a.cand.Email,
		JobID:          p.Identity,
		JobTitle:       p.Title,
		AppliedAt:      a.rc.Clock(),
		Outcome:        o,
	})
	if err != nil {
		a.rc.Logger().Error("could not record outcome, continuing", "job_id", p.Identity, "outcome", o, "err", err)
	}
}

// ensureListing makes sure the results page is showing, stepping back via the
// back-to-search link or history a bounded number of times.
func (a *Applier) ensureListing(ctx context.Context) error {
	s := a.rc.Session
	site := a.rc.Config.Site
	probe := a.rc.Config.Timeouts.Probe

	for i := 0; ; i++ {
		_, err := s.WaitFor(ctx, site.ListingEntry, probe)
		if err == nil {
			return nil
		}
		if runctx.Fatal(ctx, err) {
			return err
		}
		if i == recoverAttempts {
			return ErrListingLost
		}

		if el, err := firstAny(ctx, s, site.BackToSearch); err == nil {
			if err := browser.JSClick(ctx, s, el); err == nil {
				continue
			} else if runctx.Fatal(ctx, err) {
				return err
			}
		} else if runctx.Fatal(ctx, err) {
			return err
		}
		if err := s.Back(ctx); err != nil {
			if runctx.Fatal(ctx, err) {
				return err
			}
			a.rc.Logger().Warn("navigate back failed", "err", err)
		}
		if err := a.pause(ctx); err != nil {
			return err
		}
	}
}

func (a *Applier) pause(ctx context.Context) error {
	return a.rc.Pacer.Action(ctx)
}
