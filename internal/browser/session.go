// Package browser is the capability surface the engine drives: DOM
// query/click/navigate primitives with bounded waits.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound means no element matched within the allowed wait.
	ErrNotFound = errors.New("element not found")
	// ErrStale means a held element no longer belongs to the current page.
	ErrStale = errors.New("stale element")
	// ErrUnsupported is returned by adapters that cannot perform an action.
	ErrUnsupported = errors.New("unsupported by driver")
)

// Element is an opaque handle to a DOM node. It may go stale after any
// navigation or re-render.
type Element any

// Session is one browser tab. Implementations are not safe for concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor returns the first element matching selector, waiting up to timeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// FindAll returns every element currently matching selector, possibly none.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	FindIn(ctx context.Context, parent Element, selector string) (Element, error)
	Click(ctx context.Context, el Element) error
	SetValue(ctx context.Context, el Element, text string) error
	// Exec runs a JavaScript function body. When el is non-nil it is bound to `el`.
	Exec(ctx context.Context, script string, el Element) error
	ScrollIntoView(ctx context.Context, el Element) error
	Attr(ctx context.Context, el Element, name string) (string, bool, error)
	Text(ctx context.Context, el Element) (string, error)
	Back(ctx context.Context) error
	Quit() error
}

// Opener creates a session. Used for scoped acquisition.
type Opener func(ctx context.Context) (Session, error)

// With opens a session, runs fn and quits the session on every exit path,
// including a panic inside fn.
func With(ctx context.Context, open Opener, fn func(Session) error) (err error) {
	s, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if qerr := s.Quit(); qerr != nil && err == nil {
			err = fmt.Errorf("quit browser: %w", qerr)
		}
	}()
	return fn(s)
}

// WaitAny probes selectors in order, each with its own timeout, and returns
// the first hit with the selector that matched.
func WaitAny(ctx context.Context, s Session, selectors []string, timeout time.Duration) (Element, string, error) {
	for _, sel := range selectors {
		if strings.TrimSpace(sel) == "" {
			continue
		}
		el, err := s.WaitFor(ctx, sel, timeout)
		if err == nil {
			return el, sel, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, sel, err
		}
	}
	return nil, "", ErrNotFound
}

// IsXPath reports whether selector is written as XPath rather than CSS.
func IsXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(")
}

// Scripts shared by callers.
const (
	ScriptClick          = "el.click();"
	ScriptScrollTop      = "window.scrollTo(0, 0);"
	ScriptClearValue     = "el.value = '';"
	ScriptSelectDelete   = "el.focus(); el.select(); document.execCommand('delete');"
	ScriptRemoveReadonly = "el.removeAttribute('readonly');"
	ScriptScrollCenter   = "el.scrollIntoView({block: 'center', inline: 'center'});"
)

// JSClick clicks through script first, which avoids overlay interception, and
// falls back to a native click.
func JSClick(ctx context.Context, s Session, el Element) error {
	if err := s.Exec(ctx, ScriptClick, el); err == nil {
		return nil
	}
	return s.Click(ctx, el)
}
