// Package listing walks a search-results list that may re-render between
// steps.
package listing

import (
	"context"
	"errors"
	"fmt"

	"jobbot-engine/internal/browser"
)

// ErrFetch means the listing could not be re-queried; the search is abandoned.
var ErrFetch = errors.New("listing fetch failed")

// Source returns the entries currently on the page.
type Source func(ctx context.Context) ([]browser.Element, error)

// Cursor is an index into the most recent snapshot of the listing. Elements
// are never held across steps. If the listing shrinks or reorders between
// steps, entries may be skipped or seen twice; dedup catches repeats.
type Cursor struct {
	src   Source
	index int
	last  int
}

func New(src Source) *Cursor {
	return &Cursor{src: src}
}

// FromSelector builds a cursor over every element matching selector.
func FromSelector(s browser.Session, selector string) *Cursor {
	return New(func(ctx context.Context) ([]browser.Element, error) {
		return s.FindAll(ctx, selector)
	})
}

// Next re-queries the listing and returns the entry at the cursor position.
// ok is false once the position is past the end of the fresh snapshot.
func (c *Cursor) Next(ctx context.Context) (el browser.Element, pos int, ok bool, err error) {
	fresh, err := c.src(ctx)
	if err != nil {
		return nil, c.index, false, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	c.last = len(fresh)
	if c.index >= len(fresh) {
		return nil, c.index, false, nil
	}
	pos = c.index
	c.index++
	return fresh[pos], pos, true, nil
}

// Index is the position of the next entry to be returned.
func (c *Cursor) Index() int { return c.index }

// Seen is the length of the last observed snapshot.
func (c *Cursor) Seen() int { return c.last }
