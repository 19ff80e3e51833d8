package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const listingHTML = `<html><body>
<div class="job-title" id="row-1"><a href="/job/8821?x=1">Go Developer</a></div>
<div class="job-title" data-job-id="554"><a href="/detail">Platform Engineer</a></div>
<div class="job-title"><span>No link</span></div>
</body></html>`

func newBoardServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingHTML)
	})
	mux.HandleFunc("/job/8821", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Go Developer</h1>
<form action="/apply" method="post">
<input id="phone" name="phone" value="">
<input type="radio" name="minreq" value="Yes">
<input type="radio" id="no" name="minreq" value="No">
<input type="submit" id="cmdApply" name="cmd" value="Apply">
</form></body></html>`)
	})
	mux.HandleFunc("/apply", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fmt.Fprintf(w, `<html><body><p id="echo">%s|%s|%s</p></body></html>`,
			r.PostForm.Get("phone"), r.PostForm.Get("minreq"), r.PostForm.Get("cmd"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStaticFindAllAndAttrs(t *testing.T) {
	srv := newBoardServer(t)
	ctx := context.Background()
	s := NewStatic(srv.Client())

	if err := s.Navigate(ctx, srv.URL+"/results"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	entries, err := s.FindAll(ctx, "div.job-title")
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("FindAll returned %d entries, want 3", len(entries))
	}

	link, err := s.FindIn(ctx, entries[0], "a")
	if err != nil {
		t.Fatalf("FindIn: %v", err)
	}
	href, ok, _ := s.Attr(ctx, link, "href")
	if !ok || href != "/job/8821?x=1" {
		t.Errorf("href = %q, %v", href, ok)
	}
	txt, _ := s.Text(ctx, link)
	if txt != "Go Developer" {
		t.Errorf("Text = %q", txt)
	}

	if v, ok, _ := s.Attr(ctx, entries[1], "data-job-id"); !ok || v != "554" {
		t.Errorf("data-job-id = %q, %v", v, ok)
	}
	if _, err := s.FindIn(ctx, entries[2], "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindIn without link err = %v, want ErrNotFound", err)
	}
}

func TestStaticClickBackAndStale(t *testing.T) {
	srv := newBoardServer(t)
	ctx := context.Background()
	s := NewStatic(srv.Client())

	if err := s.Navigate(ctx, srv.URL+"/results"); err != nil {
		t.Fatal(err)
	}
	entries, _ := s.FindAll(ctx, "div.job-title")
	if err := s.Click(ctx, entries[0]); err != nil {
		t.Fatalf("Click entry: %v", err)
	}
	if !strings.HasSuffix(s.URL(), "/job/8821?x=1") {
		t.Errorf("after click URL = %s", s.URL())
	}
	if _, err := s.Text(ctx, entries[1]); !errors.Is(err, ErrStale) {
		t.Errorf("old element err = %v, want ErrStale", err)
	}
	if err := s.Back(ctx); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if !strings.HasSuffix(s.URL(), "/results") {
		t.Errorf("after back URL = %s", s.URL())
	}
}

func TestStaticFormSubmit(t *testing.T) {
	srv := newBoardServer(t)
	ctx := context.Background()
	s := NewStatic(srv.Client())

	if err := s.Navigate(ctx, srv.URL+"/job/8821"); err != nil {
		t.Fatal(err)
	}
	phone, err := s.WaitFor(ctx, "#phone", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.SetValue(ctx, phone, "5551234")
	no, _ := s.WaitFor(ctx, "#no", time.Second)
	if err := s.Click(ctx, no); err != nil {
		t.Fatalf("Click radio: %v", err)
	}
	btn, _ := s.WaitFor(ctx, "#cmdApply", time.Second)
	if err := s.Click(ctx, btn); err != nil {
		t.Fatalf("Click submit: %v", err)
	}

	echo, err := s.WaitFor(ctx, "#echo", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.Text(ctx, echo)
	if got != "5551234|No|Apply" {
		t.Errorf("submitted form = %q", got)
	}
}

func TestStaticXPathIsNotFound(t *testing.T) {
	srv := newBoardServer(t)
	s := NewStatic(srv.Client())
	_ = s.Navigate(context.Background(), srv.URL+"/results")

	_, err := s.WaitFor(context.Background(), "//a[contains(text(),'Apply')]", time.Second)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.Exec(context.Background(), ScriptClick, nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Exec err = %v, want ErrUnsupported", err)
	}
}
