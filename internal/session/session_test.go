package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"jobbot-engine/internal/browser/browsertest"
	"jobbot-engine/internal/config"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/ledger"
	"jobbot-engine/internal/runctx"
)

var ada = domain.Candidate{Email: "a@x.com", Password: "pw", FirstName: "Ada", Phone: "5551234", Active: true}

func setup(t *testing.T, keywords, locations string) (*browsertest.Board, *runctx.Context) {
	t.Helper()
	cfg := config.Default()
	cfg.Search.Keywords = keywords
	cfg.Search.Locations = locations
	b := browsertest.NewBoard(cfg.Site)
	rc := &runctx.Context{
		RunID:   "test",
		Config:  cfg,
		Session: b.Fake,
		Ledger:  ledger.NewCSV(filepath.Join(t.TempDir(), "applied_jobs.csv")),
	}
	return b, rc
}

// perSearch gives every search its own two postings.
func perSearch(s browsertest.Search) []browsertest.Job {
	var out []browsertest.Job
	for i := 1; i <= 2; i++ {
		id := fmt.Sprintf("%s-%s-%d", s.Keyword, s.Location, i)
		out = append(out, browsertest.Job{ID: id, Title: s.Keyword + " role"})
	}
	return out
}

func TestConfiguredLocationsAreSearchedPerKeyword(t *testing.T) {
	b, rc := setup(t, "Go, Rust", "Remote,Dallas")
	b.Listing = perSearch

	res, err := New(rc, ada, nil, 100).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []browsertest.Search{
		{Keyword: "Go", Location: "Remote"},
		{Keyword: "Go", Location: "Dallas"},
		{Keyword: "Rust", Location: "Remote"},
		{Keyword: "Rust", Location: "Dallas"},
	}
	if !reflect.DeepEqual(b.Searches, want) {
		t.Fatalf("searches=%+v", b.Searches)
	}
	if res.Applied != 8 || res.Searches != 4 {
		t.Fatalf("res=%+v", res)
	}
}

func TestPreferredLocationOverridesConfig(t *testing.T) {
	b, rc := setup(t, "Go,Rust", "Remote,Dallas")
	b.Listing = perSearch
	c := ada
	c.PreferredLocation = "  Austin, TX "

	if _, err := New(rc, c, nil, 100).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []browsertest.Search{
		{Keyword: "Go", Location: "Austin, TX"},
		{Keyword: "Rust", Location: "Austin, TX"},
	}
	if !reflect.DeepEqual(b.Searches, want) {
		t.Fatalf("searches=%+v", b.Searches)
	}
}

func TestLoginFailureSkipsCandidate(t *testing.T) {
	b, rc := setup(t, "Go", "Remote")
	b.Listing = perSearch
	b.Accept = func(email, password string) bool { return false }

	ctl := New(rc, ada, nil, 10)
	res, err := ctl.Run(context.Background())
	if err != nil {
		t.Fatalf("login failure must not be fatal: %v", err)
	}
	if !errors.Is(res.Err, domain.ErrLogin) || res.State != StateLoginFailed || ctl.State() != StateLoginFailed {
		t.Fatalf("res=%+v", res)
	}
	if len(b.Searches) != 0 {
		t.Fatalf("searched after failed login: %+v", b.Searches)
	}
	if got, _ := rc.Ledger.Entries(context.Background()); len(got) != 0 {
		t.Fatalf("ledger=%+v", got)
	}
}

func TestMissingPasswordFailsLoginWithoutBrowsing(t *testing.T) {
	b, rc := setup(t, "Go", "Remote")
	c := ada
	c.Password = ""
	res, err := New(rc, c, nil, 10).Run(context.Background())
	if err != nil || !errors.Is(res.Err, domain.ErrLogin) {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if b.Count("navigate") != 0 {
		t.Fatal("browser used without credentials")
	}
}

func TestQuotaIsCheckedAcrossPairs(t *testing.T) {
	b, rc := setup(t, "Go,Rust,Java", "Remote")
	b.Listing = perSearch

	res, err := New(rc, ada, nil, 3).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied != 3 || len(b.Submitted) != 3 {
		t.Fatalf("applied=%d submitted=%v", res.Applied, b.Submitted)
	}
	if len(b.Searches) != 2 {
		t.Fatalf("third search should not run: %+v", b.Searches)
	}
	if b.Logouts != 1 || b.LoggedIn {
		t.Fatalf("logouts=%d loggedIn=%v", b.Logouts, b.LoggedIn)
	}
}

func TestSkipsHandledJobsAndCountsAttempts(t *testing.T) {
	b, rc := setup(t, "Go", "Remote")
	b.Listing = func(browsertest.Search) []browsertest.Job {
		return []browsertest.Job{
			{ID: "1", Title: "done before"},
			{ID: "2", Title: "no button", NoApply: true},
			{ID: "3", Title: "fresh"},
		}
	}
	set := ledger.NewSet()
	set.Add("1")

	res, err := New(rc, ada, set, 10).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Attempted != 2 || res.Applied != 1 {
		t.Fatalf("res=%+v", res)
	}
}

func TestSearchFailureSkipsPairButStillLogsOut(t *testing.T) {
	b, rc := setup(t, "Go,Rust", "Remote")
	b.Listing = perSearch
	delete(b.Pages["home"].Nodes, rc.Config.Site.KeywordInput)

	res, err := New(rc, ada, nil, 10).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied != 0 || res.Searches != 2 {
		t.Fatalf("res=%+v", res)
	}
	if b.Logouts != 1 {
		t.Fatalf("logouts=%d", b.Logouts)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	b, rc := setup(t, "Go", "Remote")
	b.NavigateErr = domain.Transport("chrome", errors.New("browser closed"))

	_, err := New(rc, ada, nil, 10).Run(context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err=%v", err)
	}
}

func TestBlankPreferredLocationWithNoConfiguredLocations(t *testing.T) {
	b, rc := setup(t, "Go", "")
	b.Listing = perSearch
	cand := ada
	cand.PreferredLocation = "   "

	res, err := New(rc, cand, nil, 10).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Searches != 0 || len(b.Searches) != 0 {
		t.Fatalf("res=%+v searches=%+v", res, b.Searches)
	}
	if b.Logouts != 1 || res.State != StateLoggedOut {
		t.Fatalf("logouts=%d state=%s", b.Logouts, res.State)
	}
}

func TestPanicWhileApplyingStillLogsOut(t *testing.T) {
	b, rc := setup(t, "Go", "Remote")
	b.Listing = func(browsertest.Search) []browsertest.Job { panic("listing markup changed") }

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("panic was swallowed")
		}
		if b.Logouts != 1 || b.LoggedIn {
			t.Fatalf("logouts=%d loggedIn=%v", b.Logouts, b.LoggedIn)
		}
	}()
	_, _ = New(rc, ada, nil, 10).Run(context.Background())
}

func TestTransportErrorSkipsLogout(t *testing.T) {
	b, rc := setup(t, "Go", "Remote")
	b.Listing = perSearch
	b.Pages["home"].Nodes[rc.Config.Site.SearchButton][0].ClickErr = domain.Transport("chrome", errors.New("target closed"))

	_, err := New(rc, ada, nil, 10).Run(context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err=%v", err)
	}
	if b.Logouts != 0 {
		t.Fatalf("logouts=%d", b.Logouts)
	}
}

func TestPageLoadFailureOnLiveTabSkipsCandidate(t *testing.T) {
	b, rc := setup(t, "Go", "Remote")
	b.NavigateErr = errors.New("net::ERR_CONNECTION_RESET")

	res, err := New(rc, ada, nil, 10).Run(context.Background())
	if err != nil {
		t.Fatalf("page load failure aborted the run: %v", err)
	}
	if !errors.Is(res.Err, domain.ErrLogin) || res.State != StateLoginFailed {
		t.Fatalf("res=%+v", res)
	}
}
