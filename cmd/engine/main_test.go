package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobbot-engine/internal/events"
	"jobbot-engine/internal/run"
	"jobbot-engine/internal/session"
)

func TestReadSecret(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"hunter2\n", "hunter2", false},
		{"with space \r\nrest", "with space ", false},
		{"no-newline", "no-newline", false},
		{"\n", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := readSecret(strings.NewReader(c.in))
		if (err != nil) != c.wantErr || got != c.want {
			t.Errorf("readSecret(%q) = %q, %v", c.in, got, err)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	sum := run.Summary{
		RunID:    "r1",
		Started:  start,
		Finished: start.Add(90 * time.Second),
		Candidates: []run.CandidateSummary{
			{Email: "a@x.com", State: session.StateLoggedOut, Applied: 2, Attempted: 3},
			{Email: "b@x.com", State: session.StateLoginFailed, Err: errors.New("bad password")},
		},
	}
	var buf bytes.Buffer
	printSummary(&buf, sum)
	out := buf.String()
	for _, want := range []string{"a@x.com", "login_failed", "bad password", "run r1: 2 applications across 2 candidates in 1m30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestEventsStreamOverSSE(t *testing.T) {
	hub := events.NewHub("r1")
	srv := httptest.NewServer(eventsMux(hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%q", ct)
	}

	sc := bufio.NewScanner(res.Body)
	readData := func() string {
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "data: ") {
				return strings.TrimPrefix(line, "data: ")
			}
		}
		t.Fatalf("stream ended: %v", sc.Err())
		return ""
	}
	if got := readData(); !strings.Contains(got, "ping") {
		t.Fatalf("first event=%q", got)
	}

	hub.Emit(events.TypeJob, events.JobEvent{Candidate: "a@x.com", JobID: "10"})
	if got := readData(); !strings.Contains(got, `"type":"job"`) || !strings.Contains(got, `"run_id":"r1"`) {
		t.Fatalf("job event=%q", got)
	}

	// closing the hub ends the stream
	hub.Close()
	for sc.Scan() {
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	eventsMux(events.NewHub("")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok": true`) {
		t.Fatalf("health=%d %s", rec.Code, rec.Body.String())
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"run"}, {"scan"}, {"report"}, {"ledger", "archive"},
		{"roster", "template"}, {"roster", "list"},
		{"secrets", "set"}, {"secrets", "delete"},
		{"config", "init"}, {"config", "validate"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered: %v", path, err)
		}
	}
}

func TestArchiveNeedsConfirmation(t *testing.T) {
	archiveYes = false
	if err := ledgerArchiveCmd.RunE(ledgerArchiveCmd, nil); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("err=%v", err)
	}
}
