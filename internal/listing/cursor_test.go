package listing

import (
	"context"
	"errors"
	"testing"

	"jobbot-engine/internal/browser"
)

// scripted returns snapshot sizes from sizes, repeating the last one.
func scripted(sizes []int) (Source, *int) {
	calls := 0
	return func(ctx context.Context) ([]browser.Element, error) {
		n := sizes[len(sizes)-1]
		if calls < len(sizes) {
			n = sizes[calls]
		}
		calls++
		out := make([]browser.Element, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}, &calls
}

func drain(t *testing.T, c *Cursor) (steps int, got []int) {
	t.Helper()
	for {
		steps++
		el, pos, ok, err := c.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			return steps, got
		}
		if el.(int) != pos {
			t.Fatalf("element %v at position %d", el, pos)
		}
		got = append(got, pos)
		if steps > 1000 {
			t.Fatal("cursor did not terminate")
		}
	}
}

func TestCursorStableListing(t *testing.T) {
	src, _ := scripted([]int{3})
	steps, got := drain(t, New(src))
	if steps != 4 || len(got) != 3 {
		t.Fatalf("steps=%d got=%v", steps, got)
	}
}

func TestCursorTerminatesOnShrinkingListing(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
		want  []int
	}{
		{"shrinks by one each step", []int{5, 4, 3, 2, 1, 0}, []int{0, 1, 2}},
		{"drops to empty", []int{4, 0}, []int{0}},
		{"empty from start", []int{0}, nil},
		{"shrinks once", []int{6, 6, 2}, []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := scripted(tt.sizes)
			steps, got := drain(t, New(src))
			if steps > tt.sizes[0]+1 {
				t.Fatalf("steps=%d exceeds initial+1=%d", steps, tt.sizes[0]+1)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCursorRequeriesEveryStep(t *testing.T) {
	src, calls := scripted([]int{2})
	c := New(src)
	drain(t, c)
	if *calls != 3 {
		t.Fatalf("calls=%d", *calls)
	}
	if c.Index() != 2 || c.Seen() != 2 {
		t.Fatalf("index=%d seen=%d", c.Index(), c.Seen())
	}
}

func TestCursorFetchError(t *testing.T) {
	boom := errors.New("session gone")
	c := New(func(ctx context.Context) ([]browser.Element, error) { return nil, boom })
	_, _, ok, err := c.Next(context.Background())
	if ok || !errors.Is(err, ErrFetch) || !errors.Is(err, boom) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}
