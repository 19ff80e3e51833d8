// Package browsertest provides a scripted in-memory browser.Session.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"jobbot-engine/internal/browser"
)

// Node is one fake DOM element.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Value    string
	Children map[string]*Node

	// OnClick runs when the node is clicked, natively or through script.
	OnClick  func(f *Fake)
	ClickErr error
	SetErr   error

	page *Page
}

// Page maps selectors to the nodes they match.
type Page struct {
	Name  string
	Nodes map[string][]*Node
	// Dynamic, when set, answers FindAll for a selector instead of Nodes.
	Dynamic map[string]func() []*Node
}

func NewPage(name string) *Page {
	return &Page{Name: name, Nodes: map[string][]*Node{}, Dynamic: map[string]func() []*Node{}}
}

// Add registers nodes under selector and returns the first one.
func (p *Page) Add(selector string, nodes ...*Node) *Node {
	for _, n := range nodes {
		n.page = p
	}
	p.Nodes[selector] = append(p.Nodes[selector], nodes...)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Fake is a browser.Session over named pages. Navigate looks the URL up in
// Routes; Go switches pages the way a click would.
type Fake struct {
	mu sync.Mutex

	Pages   map[string]*Page
	Routes  func(url string) string
	Current string
	history []string

	NavigateErr error
	FindAllErr  error
	Quits       int
	Log         []string
}

func New() *Fake {
	return &Fake{Pages: map[string]*Page{}}
}

func (f *Fake) AddPage(p *Page) *Page {
	f.Pages[p.Name] = p
	return p
}

// Go moves to page name, pushing the current page on the history.
func (f *Fake) Go(name string) {
	if f.Current != "" {
		f.history = append(f.history, f.Current)
	}
	f.Current = name
}

func (f *Fake) record(format string, args ...any) {
	f.Log = append(f.Log, fmt.Sprintf(format, args...))
}

// Count returns how many log lines start with prefix.
func (f *Fake) Count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.Log {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func (f *Fake) page() *Page {
	return f.Pages[f.Current]
}

func (f *Fake) node(el browser.Element) (*Node, error) {
	n, ok := el.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %T", browser.ErrStale, el)
	}
	if n.page != nil && n.page != f.page() {
		return nil, browser.ErrStale
	}
	return n, nil
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate %s", url)
	if f.NavigateErr != nil {
		return f.NavigateErr
	}
	name := url
	if f.Routes != nil {
		name = f.Routes(url)
	}
	f.Go(name)
	return nil
}

func (f *Fake) lookup(selector string) []*Node {
	p := f.page()
	if p == nil {
		return nil
	}
	if dyn, ok := p.Dynamic[selector]; ok {
		nodes := dyn()
		for _, n := range nodes {
			n.page = p
		}
		return nodes
	}
	return p.Nodes[selector]
}

func (f *Fake) WaitFor(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes := f.lookup(selector)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	return nodes[0], nil
}

func (f *Fake) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("findall %s", selector)
	if f.FindAllErr != nil {
		return nil, f.FindAllErr
	}
	nodes := f.lookup(selector)
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out, nil
}

func (f *Fake) FindIn(ctx context.Context, parent browser.Element, selector string) (browser.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.node(parent)
	if err != nil {
		return nil, err
	}
	c, ok := p.Children[selector]
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	c.page = p.page
	return c, nil
}

func (f *Fake) click(n *Node) error {
	f.record("click %s", n.Name)
	if n.ClickErr != nil {
		return n.ClickErr
	}
	if n.OnClick != nil {
		n.OnClick(f)
	}
	return nil
}

func (f *Fake) Click(ctx context.Context, el browser.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.node(el)
	if err != nil {
		return err
	}
	return f.click(n)
}

func (f *Fake) SetValue(ctx context.Context, el browser.Element, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.node(el)
	if err != nil {
		return err
	}
	f.record("set %s=%s", n.Name, text)
	if n.SetErr != nil {
		return n.SetErr
	}
	n.Value = text
	return nil
}

// Exec understands the click script; every other script is only recorded.
func (f *Fake) Exec(ctx context.Context, script string, el browser.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if el == nil {
		f.record("exec %s", script)
		return nil
	}
	n, err := f.node(el)
	if err != nil {
		return err
	}
	if script == browser.ScriptClick {
		return f.click(n)
	}
	f.record("exec %s on %s", script, n.Name)
	return nil
}

func (f *Fake) ScrollIntoView(ctx context.Context, el browser.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.node(el)
	return err
}

func (f *Fake) Attr(ctx context.Context, el browser.Element, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.node(el)
	if err != nil {
		return "", false, err
	}
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (f *Fake) Text(ctx context.Context, el browser.Element) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.node(el)
	if err != nil {
		return "", err
	}
	return n.Text, nil
}

func (f *Fake) Back(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("back")
	if len(f.history) == 0 {
		return errors.New("no history")
	}
	f.Current = f.history[len(f.history)-1]
	f.history = f.history[:len(f.history)-1]
	return nil
}

func (f *Fake) Quit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Quits++
	f.record("quit")
	return nil
}

var _ browser.Session = (*Fake)(nil)
