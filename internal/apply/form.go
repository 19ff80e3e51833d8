// Package apply drives one job from the listing through the application
// form and records the outcome.
package apply

import (
	"context"
	"errors"
	"fmt"

	"jobbot-engine/internal/browser"
	"jobbot-engine/internal/config"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/events"
	"jobbot-engine/internal/runctx"
)

const (
	StepResume        = "resume"
	StepLinkedIn      = "linkedin"
	StepPhone         = "phone"
	StepQualification = "qualification"
	StepSubmit        = "submit"
	StepReturn        = "return"
)

type Status string

const (
	StatusDone   Status = "done"
	StatusAbsent Status = "absent"
	StatusFailed Status = "failed"
)

type StepResult struct {
	Step   string
	Status Status
	Err    error
}

type Result struct {
	Submitted bool
	Steps     []StepResult
}

// Step returns the result recorded for name.
func (r Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Pipeline fills and submits the application form for one job. Only the
// submit step decides success; every other step may be absent or fail.
type Pipeline struct {
	rc    *runctx.Context
	cand  domain.Candidate
	jobID domain.JobIdentity
}

func NewPipeline(rc *runctx.Context, c domain.Candidate, jobID domain.JobIdentity) *Pipeline {
	return &Pipeline{rc: rc, cand: c, jobID: jobID}
}

// Run executes the steps in order. The error is non-nil only when the run
// must stop (transport failure or cancellation); the partial result is
// returned alongside it.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	p.rc.Logger().Info("filling application form", "job_id", p.jobID)

	steps := []struct {
		name string
		fn   func(context.Context) (Status, error)
	}{
		{StepResume, p.resume},
		{StepLinkedIn, p.linkedIn},
		{StepPhone, p.phone},
		{StepQualification, p.qualification},
		{StepSubmit, p.submit},
	}

	var res Result
	for _, st := range steps {
		r := p.runStep(ctx, st.name, st.fn)
		res.Steps = append(res.Steps, r)
		if runctx.Fatal(ctx, r.Err) {
			return res, r.Err
		}
		if st.name == StepSubmit {
			res.Submitted = r.Status == StatusDone
		}
	}
	if !res.Submitted {
		return res, nil
	}

	r := p.runStep(ctx, StepReturn, p.returnToListing)
	res.Steps = append(res.Steps, r)
	if runctx.Fatal(ctx, r.Err) {
		return res, r.Err
	}
	return res, nil
}

func (p *Pipeline) runStep(ctx context.Context, name string, fn func(context.Context) (Status, error)) StepResult {
	status, err := fn(ctx)
	r := StepResult{Step: name, Status: status}
	if err != nil {
		r.Status = StatusFailed
		r.Err = &domain.StepError{Step: name, Err: err}
	}

	log := p.rc.Logger().With("job_id", p.jobID, "step", name, "status", r.Status)
	evt := events.FormStepEvent{Candidate: p.cand.Email, JobID: string(p.jobID), Step: name, Status: string(r.Status)}
	switch {
	case r.Err != nil:
		evt.Error = r.Err.Error()
		if name == StepSubmit {
			log.Error("form step failed", "err", err)
		} else {
			log.Warn("form step failed", "err", err)
		}
	case r.Status == StatusAbsent:
		log.Warn("form step skipped, control not found")
	default:
		log.Info("form step done")
	}
	p.rc.Events.Emit(events.TypeFormStep, evt)

	if r.Status == StatusDone && name != StepReturn {
		if err := p.rc.Pacer.Short(ctx); err != nil && r.Err == nil {
			r.Err = err
		}
	}
	return r
}

func (p *Pipeline) site() config.Site { return p.rc.Config.Site }

// resume picks the candidate's stored resume when the board offers one.
func (p *Pipeline) resume(ctx context.Context) (Status, error) {
	s := p.rc.Session
	el, err := s.WaitFor(ctx, p.site().ResumeOption, p.rc.Config.Timeouts.Probe)
	if errors.Is(err, browser.ErrNotFound) {
		return StatusAbsent, nil
	}
	if err != nil {
		return StatusFailed, err
	}
	if err := browser.JSClick(ctx, s, el); err != nil {
		return StatusFailed, fmt.Errorf("select resume: %w", err)
	}
	return StatusDone, nil
}

func (p *Pipeline) linkedIn(ctx context.Context) (Status, error) {
	return p.fill(ctx, p.site().LinkedInInput, p.cand.LinkedInURL)
}

func (p *Pipeline) phone(ctx context.Context) (Status, error) {
	return p.fill(ctx, p.site().PhoneInput, p.cand.Phone)
}

// fill unlocks a read-only text field, clears it and types value. An empty
// value leaves the field cleared.
func (p *Pipeline) fill(ctx context.Context, selector, value string) (Status, error) {
	s := p.rc.Session
	el, err := first(ctx, s, selector)
	if errors.Is(err, browser.ErrNotFound) {
		return StatusAbsent, nil
	}
	if err != nil {
		return StatusFailed, err
	}
	for _, script := range []string{browser.ScriptRemoveReadonly, browser.ScriptClearValue} {
		if err := s.Exec(ctx, script, el); err != nil {
			if runctx.Fatal(ctx, err) {
				return StatusFailed, err
			}
			p.rc.Logger().Debug("field script failed", "selector", selector, "err", err)
		}
	}
	if value == "" {
		return StatusDone, nil
	}
	if err := s.SetValue(ctx, el, value); err != nil {
		return StatusFailed, fmt.Errorf("type into %s: %w", selector, err)
	}
	return StatusDone, nil
}

// qualification answers "No" to the minimum-requirements prompt, trying
// each configured control in order.
func (p *Pipeline) qualification(ctx context.Context) (Status, error) {
	s := p.rc.Session
	var lastErr error
	for _, sel := range p.site().Qualification {
		el, err := first(ctx, s, sel)
		if errors.Is(err, browser.ErrNotFound) {
			continue
		}
		if err != nil {
			lastErr = err
			if runctx.Fatal(ctx, err) {
				break
			}
			continue
		}
		if err := browser.JSClick(ctx, s, el); err != nil {
			lastErr = err
			continue
		}
		return StatusDone, nil
	}
	if lastErr != nil {
		return StatusFailed, lastErr
	}
	return StatusAbsent, nil
}

func (p *Pipeline) submit(ctx context.Context) (Status, error) {
	s := p.rc.Session
	el, err := s.WaitFor(ctx, p.site().SubmitButton, p.rc.Config.Timeouts.Probe)
	if err != nil {
		return StatusFailed, fmt.Errorf("find submit: %w", err)
	}
	if err := s.ScrollIntoView(ctx, el); err != nil {
		if runctx.Fatal(ctx, err) {
			return StatusFailed, err
		}
		p.rc.Logger().Debug("scroll to submit failed", "err", err)
	}
	if err := p.rc.Pacer.Short(ctx); err != nil {
		return StatusFailed, err
	}
	if err := browser.JSClick(ctx, s, el); err != nil {
		return StatusFailed, fmt.Errorf("click submit: %w", err)
	}
	// let the submission land
	if err := p.rc.Pacer.Action(ctx); err != nil {
		return StatusFailed, err
	}
	return StatusDone, nil
}

// returnToListing follows the confirmation page's link back to the results,
// falling back to history. It reports done once attempted.
func (p *Pipeline) returnToListing(ctx context.Context) (Status, error) {
	s := p.rc.Session
	el, _, err := browser.WaitAny(ctx, s, p.site().BackToSearch, p.rc.Config.Timeouts.Confirm)
	if err == nil {
		if err = browser.JSClick(ctx, s, el); err == nil {
			return StatusDone, nil
		}
	}
	if runctx.Fatal(ctx, err) {
		return StatusFailed, err
	}
	p.rc.Logger().Warn("back to search link unavailable, navigating back", "err", err)
	if err := s.Back(ctx); err != nil {
		if runctx.Fatal(ctx, err) {
			return StatusFailed, err
		}
		p.rc.Logger().Warn("navigate back failed", "err", err)
	}
	return StatusDone, nil
}

// first returns the first element matching selector without waiting.
func first(ctx context.Context, s browser.Session, selector string) (browser.Element, error) {
	els, err := s.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	return els[0], nil
}

// firstAny is first over several selectors, in order.
func firstAny(ctx context.Context, s browser.Session, selectors []string) (browser.Element, error) {
	for _, sel := range selectors {
		el, err := first(ctx, s, sel)
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, browser.ErrNotFound) {
			return nil, err
		}
	}
	return nil, browser.ErrNotFound
}
