// Package session runs one candidate end to end: log in, search every
// keyword/location pair, apply up to quota, log out.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobbot-engine/internal/apply"
	"jobbot-engine/internal/browser"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/events"
	"jobbot-engine/internal/ledger"
	"jobbot-engine/internal/listing"
	"jobbot-engine/internal/runctx"
)

type State string

const (
	StateLoggedOut   State = "logged_out"
	StateLoggingIn   State = "logging_in"
	StateLoggedIn    State = "logged_in"
	StateLoginFailed State = "login_failed"
	StateSearching   State = "searching"
	StateApplying    State = "applying"
)

// Result counts what happened for one candidate.
type Result struct {
	Candidate string
	State     State // last state reached before logout
	Applied   int
	Attempted int
	Skipped   int
	Searches  int
	Err       error
}

type Controller struct {
	rc    *runctx.Context
	cand  domain.Candidate
	set   *ledger.Set
	quota int
	state State
}

// New returns a controller that stops after quota successful applications.
func New(rc *runctx.Context, c domain.Candidate, set *ledger.Set, quota int) *Controller {
	if set == nil {
		set = ledger.NewSet()
	}
	return &Controller{rc: rc.For(c), cand: c, set: set, quota: quota, state: StateLoggedOut}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) transition(s State) {
	c.rc.Logger().Debug("session state", "from", c.state, "to", s)
	c.state = s
	c.rc.Events.Emit(events.TypeCandidate, events.CandidateEvent{Candidate: c.cand.Email, State: string(s)})
}

// Run never returns a non-fatal error: those end up in Result.Err. A non-nil
// error means the session is unusable or the run was cancelled.
//
// Once logged in, logout runs on every exit except a fatal one, including a
// panic unwinding through here.
func (c *Controller) Run(ctx context.Context) (res Result, err error) {
	res = Result{Candidate: c.cand.Email}
	log := c.rc.Logger()

	c.transition(StateLoggingIn)
	if err := c.login(ctx); err != nil {
		if runctx.Fatal(ctx, err) {
			return res, err
		}
		c.transition(StateLoginFailed)
		res.State = c.state
		res.Err = err
		log.Error("login failed, skipping candidate", "err", err)
		return res, nil
	}
	c.transition(StateLoggedIn)
	log.Info("logged in")

	defer func() {
		if err != nil && runctx.Fatal(ctx, err) {
			res.State = c.state
			return
		}
		c.logout(ctx)
		res.State = c.state
		log.Info("candidate done", "applied", res.Applied, "attempted", res.Attempted, "skipped", res.Skipped)
	}()

	return res, c.searchAll(ctx, &res)
}

func (c *Controller) searchAll(ctx context.Context, res *Result) error {
	cfg := c.rc.Config
	log := c.rc.Logger()
	keywords := cfg.KeywordList()
	locations := c.cand.Locations(cfg.LocationList())
	if strings.TrimSpace(c.cand.PreferredLocation) != "" {
		log.Info("using preferred location", "location", locations[0])
	}
	if len(locations) == 0 {
		log.Warn("no search location configured for candidate")
	}

	for _, kw := range keywords {
		for _, loc := range locations {
			if res.Applied >= c.quota {
				log.Info("quota reached", "quota", c.quota)
				return nil
			}

			c.transition(StateSearching)
			log.Info("searching", "keyword", kw, "location", loc)
			res.Searches++
			if err := c.Search(ctx, kw, loc); err != nil {
				if runctx.Fatal(ctx, err) {
					return err
				}
				log.Error("search failed, skipping pair", "keyword", kw, "location", loc, "err", err)
				continue
			}

			c.transition(StateApplying)
			if err := c.applyAll(ctx, res); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Controller) login(ctx context.Context) error {
	if c.cand.Password == "" {
		return fmt.Errorf("%w: no password for %s", domain.ErrLogin, c.cand.Email)
	}
	s := c.rc.Session
	site := c.rc.Config.Site
	explicit := c.rc.Config.Timeouts.Explicit

	step := func(name string, err error) error {
		if err == nil || runctx.Fatal(ctx, err) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrLogin, name, err)
	}

	if err := s.Navigate(ctx, site.BaseURL); err != nil {
		return step("open site", err)
	}
	if err := c.rc.Pacer.Action(ctx); err != nil {
		return err
	}
	signIn, err := s.WaitFor(ctx, site.SignIn, explicit)
	if err != nil {
		return step("find sign in", err)
	}
	if err := browser.JSClick(ctx, s, signIn); err != nil {
		return step("click sign in", err)
	}
	if err := c.rc.Pacer.Action(ctx); err != nil {
		return err
	}

	for _, f := range []struct{ sel, val string }{
		{site.EmailInput, c.cand.Email},
		{site.PasswordInput, c.cand.Password},
	} {
		el, err := s.WaitFor(ctx, f.sel, explicit)
		if err != nil {
			return step("find "+f.sel, err)
		}
		if err := s.SetValue(ctx, el, f.val); err != nil {
			return step("fill "+f.sel, err)
		}
		if err := c.rc.Pacer.Short(ctx); err != nil {
			return err
		}
	}

	btn, err := s.WaitFor(ctx, site.LoginButton, explicit)
	if err != nil {
		return step("find login button", err)
	}
	if err := browser.JSClick(ctx, s, btn); err != nil {
		return step("submit login", err)
	}
	if err := c.rc.Pacer.Action(ctx); err != nil {
		return err
	}

	if _, _, err := browser.WaitAny(ctx, s, site.LoggedIn, c.rc.Config.Timeouts.Login); err != nil {
		return step("verify", err)
	}
	return nil
}

// Search fills the home page search form and submits it. The location box
// usually holds a prefilled postal code, so it is cleared three ways before
// typing.
func (c *Controller) Search(ctx context.Context, keyword, location string) error {
	s := c.rc.Session
	site := c.rc.Config.Site
	explicit := c.rc.Config.Timeouts.Explicit
	log := c.rc.Logger()

	if err := s.Navigate(ctx, site.BaseURL); err != nil {
		return fmt.Errorf("open search: %w", err)
	}
	if err := c.rc.Pacer.Action(ctx); err != nil {
		return err
	}
	kw, err := s.WaitFor(ctx, site.KeywordInput, explicit)
	if err != nil {
		return fmt.Errorf("find keyword input: %w", err)
	}
	loc, err := s.WaitFor(ctx, site.LocationInput, explicit)
	if err != nil {
		return fmt.Errorf("find location input: %w", err)
	}
	if err := s.SetValue(ctx, kw, keyword); err != nil {
		return fmt.Errorf("type keyword: %w", err)
	}
	if err := c.rc.Pacer.Short(ctx); err != nil {
		return err
	}

	if err := s.Click(ctx, loc); runctx.Fatal(ctx, err) {
		return err
	}
	for _, script := range []string{browser.ScriptSelectDelete, browser.ScriptClearValue} {
		if err := s.Exec(ctx, script, loc); err != nil {
			if runctx.Fatal(ctx, err) {
				return err
			}
			log.Debug("location clear script failed", "err", err)
		}
	}
	if err := s.SetValue(ctx, loc, location); err != nil {
		return fmt.Errorf("type location: %w", err)
	}
	if err := c.rc.Pacer.Short(ctx); err != nil {
		return err
	}

	btn, err := s.WaitFor(ctx, site.SearchButton, explicit)
	if err != nil {
		return fmt.Errorf("find search button: %w", err)
	}
	if err := browser.JSClick(ctx, s, btn); err != nil {
		return fmt.Errorf("click search: %w", err)
	}
	return c.rc.Pacer.Action(ctx)
}

// applyAll walks the current results until the quota is met or the listing
// runs out. Only fatal errors are returned.
func (c *Controller) applyAll(ctx context.Context, res *Result) error {
	log := c.rc.Logger()
	cur := listing.FromSelector(c.rc.Session, c.rc.Config.Site.ListingEntry)
	applier := apply.NewApplier(c.rc, c.cand, c.set)

	applied := 0
	for res.Applied < c.quota {
		el, pos, ok, err := cur.Next(ctx)
		if err != nil {
			if runctx.Fatal(ctx, err) {
				return err
			}
			log.Error("could not read listing, abandoning search", "err", err)
			break
		}
		if pos == 0 && ok {
			log.Info("listing loaded", "entries", cur.Seen())
		}
		if !ok {
			log.Info("listing exhausted", "processed", pos, "err", domain.ErrListingExhausted)
			break
		}

		jr, err := applier.Apply(ctx, el, pos)
		if err != nil {
			if runctx.Fatal(ctx, err) {
				return err
			}
			if jr.Outcome != "" {
				res.Attempted++
				if jr.Outcome == domain.OutcomeApplied {
					res.Applied++
					applied++
				}
			}
			if errors.Is(err, apply.ErrListingLost) {
				log.Warn("lost the listing, abandoning search", "err", err)
				break
			}
			log.Error("job failed", "position", pos, "err", err)
			continue
		}
		if jr.Skipped {
			res.Skipped++
			continue
		}
		res.Attempted++
		if jr.Outcome == domain.OutcomeApplied {
			res.Applied++
			applied++
		}
	}
	log.Info("search done", "applied", applied)
	return nil
}

// logout probes each logout control in order. Failure is logged only.
func (c *Controller) logout(ctx context.Context) {
	defer c.transition(StateLoggedOut)
	s := c.rc.Session
	log := c.rc.Logger()

	el, sel, err := browser.WaitAny(ctx, s, c.rc.Config.Site.Logout, c.rc.Config.Timeouts.Probe)
	if err != nil {
		log.Warn("logout link not found, continuing", "err", err)
		return
	}
	if err := browser.JSClick(ctx, s, el); err != nil {
		log.Warn("logout failed, continuing", "selector", sel, "err", err)
		return
	}
	_ = c.rc.Pacer.Action(ctx)
	log.Info("logged out")
}
