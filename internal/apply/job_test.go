package apply

import (
	"context"
	"errors"
	"testing"

	"jobbot-engine/internal/browser"
	"jobbot-engine/internal/browser/browsertest"
	"jobbot-engine/internal/config"
	"jobbot-engine/internal/domain"
	"jobbot-engine/internal/ledger"
)

func board(t *testing.T, jobs ...browsertest.Job) (*browsertest.Board, []browser.Element) {
	t.Helper()
	b := browsertest.NewBoard(config.DefaultSite())
	b.Listing = func(browsertest.Search) []browsertest.Job { return jobs }
	b.LoggedIn = true
	b.Go("results")
	els, err := b.FindAll(context.Background(), b.Site.ListingEntry)
	if err != nil {
		t.Fatal(err)
	}
	return b, els
}

func rows(t *testing.T, st ledger.Store) []domain.LedgerEntry {
	t.Helper()
	got, err := st.Entries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestApplyNewJob(t *testing.T) {
	b, els := board(t, browsertest.Job{ID: "10", Title: "Go Dev", OptionalSteps: true})
	rc := newRC(t, b.Fake)
	set := ledger.NewSet()

	res, err := NewApplier(rc, cand, set).Apply(context.Background(), els[0], 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != domain.OutcomeApplied || res.Posting.Identity != "10" || res.Posting.Tier != "link" {
		t.Fatalf("res=%+v", res)
	}
	if len(b.Submitted) != 1 || b.Submitted[0] != "10" {
		t.Fatalf("submitted=%v", b.Submitted)
	}
	if !set.Has("10") {
		t.Fatal("set not updated")
	}
	got := rows(t, rc.Ledger)
	if len(got) != 1 || got[0].JobTitle != "Go Dev" || got[0].Outcome != domain.OutcomeApplied {
		t.Fatalf("ledger=%+v", got)
	}
	if b.Current != "results" {
		t.Fatalf("ended on %q", b.Current)
	}
}

func TestApplySkipsHandledJob(t *testing.T) {
	b, els := board(t, browsertest.Job{ID: "10", Title: "Go Dev"})
	rc := newRC(t, b.Fake)
	set := ledger.NewSet()
	set.Add("10")

	res, err := NewApplier(rc, cand, set).Apply(context.Background(), els[0], 0)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Fatalf("res=%+v", res)
	}
	if n := b.Count("click"); n != 0 {
		t.Fatalf("clicks=%d", n)
	}
	if got := rows(t, rc.Ledger); len(got) != 0 {
		t.Fatalf("ledger=%+v", got)
	}
}

func TestApplyRecordsFailures(t *testing.T) {
	tests := []struct {
		name string
		job  browsertest.Job
		want domain.Outcome
	}{
		{"no apply button", browsertest.Job{ID: "11", Title: "SRE", NoApply: true}, domain.OutcomeNoApplyButton},
		{"no submit control", browsertest.Job{ID: "12", Title: "QA", NoSubmit: true}, domain.OutcomeFormError},
		{"submit click fails", browsertest.Job{ID: "13", Title: "PM", SubmitErr: errors.New("intercepted")}, domain.OutcomeFormError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, els := board(t, tt.job)
			rc := newRC(t, b.Fake)
			set := ledger.NewSet()

			res, err := NewApplier(rc, cand, set).Apply(context.Background(), els[0], 0)
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != tt.want {
				t.Fatalf("outcome=%q want %q", res.Outcome, tt.want)
			}
			got := rows(t, rc.Ledger)
			if len(got) != 1 || got[0].Outcome != tt.want || got[0].JobID != domain.JobIdentity(tt.job.ID) {
				t.Fatalf("ledger=%+v", got)
			}
			if !set.Has(domain.JobIdentity(tt.job.ID)) {
				t.Fatal("failed attempt must still be remembered for this run")
			}
			if b.Current != "results" {
				t.Fatalf("did not recover to the listing, on %q", b.Current)
			}
		})
	}
}

func TestInspectIdentityTiers(t *testing.T) {
	b, els := board(t,
		browsertest.Job{Key: "a", Title: "Analyst", Attrs: map[string]string{"data-job-id": "dj-1"}},
		browsertest.Job{Key: "b", Title: "Analyst", Attrs: map[string]string{"id": "row-7"}},
		browsertest.Job{Key: "c", Title: "Analyst"},
	)
	a := NewApplier(newRC(t, b.Fake), cand, ledger.NewSet())
	ctx := context.Background()

	want := []struct {
		id   domain.JobIdentity
		tier string
	}{
		{"dj-1", "data-attr"},
		{"row-7", "dom-id"},
		{"job_", "title-hash"},
	}
	for i, w := range want {
		p := a.Inspect(ctx, els[i], i)
		if p.Tier != w.tier {
			t.Fatalf("entry %d: tier %q want %q", i, p.Tier, w.tier)
		}
		if w.tier != "title-hash" && p.Identity != w.id {
			t.Fatalf("entry %d: id %q want %q", i, p.Identity, w.id)
		}
		if p.Title != "Analyst" {
			t.Fatalf("entry %d: title %q", i, p.Title)
		}
	}
	if a.Inspect(ctx, els[2], 2) != a.Inspect(ctx, els[2], 2) {
		t.Fatal("inspect is not deterministic")
	}
}

func TestApplyTransportErrorIsNotRecorded(t *testing.T) {
	b, els := board(t, browsertest.Job{ID: "10", Title: "Go Dev", SubmitErr: domain.Transport("chrome", errors.New("target closed"))})
	rc := newRC(t, b.Fake)

	_, err := NewApplier(rc, cand, ledger.NewSet()).Apply(context.Background(), els[0], 0)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err=%v", err)
	}
	if got := rows(t, rc.Ledger); len(got) != 0 {
		t.Fatalf("ledger=%+v", got)
	}
}

type brokenStore struct{ ledger.Store }

func (brokenStore) Append(context.Context, domain.LedgerEntry) error {
	return errors.New("read-only fs")
}

func TestApplyContinuesWhenLedgerWriteFails(t *testing.T) {
	b, els := board(t, browsertest.Job{ID: "10", Title: "Go Dev"})
	rc := newRC(t, b.Fake)
	rc.Ledger = brokenStore{Store: rc.Ledger}
	set := ledger.NewSet()

	res, err := NewApplier(rc, cand, set).Apply(context.Background(), els[0], 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != domain.OutcomeApplied || !set.Has("10") {
		t.Fatalf("res=%+v", res)
	}
}

func TestApplyReportsLostListing(t *testing.T) {
	calls := 0
	b := browsertest.NewBoard(config.DefaultSite())
	b.Listing = func(browsertest.Search) []browsertest.Job {
		calls++
		if calls > 1 {
			return nil
		}
		return []browsertest.Job{{ID: "10", Title: "Go Dev"}}
	}
	b.Go("results")
	els, _ := b.FindAll(context.Background(), b.Site.ListingEntry)
	rc := newRC(t, b.Fake)

	res, err := NewApplier(rc, cand, ledger.NewSet()).Apply(context.Background(), els[0], 0)
	if !errors.Is(err, ErrListingLost) {
		t.Fatalf("err=%v", err)
	}
	if res.Outcome != domain.OutcomeApplied {
		t.Fatalf("outcome=%q", res.Outcome)
	}
}
