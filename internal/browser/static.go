package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobbot-engine/internal/domain"
)

// Static is a script-free session over plain HTTP and goquery. It follows
// links, submits forms and reads the DOM, which is enough to preview a
// listing without a real browser. It only understands CSS selectors.
type Static struct {
	hc      *http.Client
	doc     *goquery.Document
	cur     *url.URL
	history []*url.URL
	gen     int // bumped on every page load; older elements are stale
}

type staticElement struct {
	sel *goquery.Selection
	gen int
}

func NewStatic(hc *http.Client) *Static {
	if hc == nil {
		jar, _ := cookiejar.New(nil)
		hc = &http.Client{Jar: jar, Timeout: 20 * time.Second}
	}
	return &Static{hc: hc}
}

func (s *Static) load(ctx context.Context, req *http.Request) error {
	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	res, err := s.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.Transport(req.Method+" "+req.URL.String(), err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL, res.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", req.URL, err)
	}
	if s.cur != nil {
		s.history = append(s.history, s.cur)
	}
	s.doc = doc
	s.cur = res.Request.URL
	s.gen++
	return nil
}

func (s *Static) Navigate(ctx context.Context, raw string) error {
	u, err := s.resolve(raw)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	return s.load(ctx, req)
}

func (s *Static) resolve(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if s.cur != nil {
		u = s.cur.ResolveReference(u)
	}
	return u, nil
}

func (s *Static) elem(el Element) (*goquery.Selection, error) {
	e, ok := el.(staticElement)
	if !ok || e.sel == nil {
		return nil, fmt.Errorf("%w: %T is not a static element", ErrStale, el)
	}
	if e.gen != s.gen {
		return nil, ErrStale
	}
	return e.sel, nil
}

func (s *Static) find(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	if IsXPath(selector) {
		return nil, fmt.Errorf("%w: xpath %s", ErrNotFound, selector)
	}
	if root == nil {
		if s.doc == nil {
			return nil, fmt.Errorf("%w: no page loaded", ErrNotFound)
		}
		root = s.doc.Selection
	}
	return root.Find(selector), nil
}

// WaitFor does not wait: a static page never changes under us.
func (s *Static) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	found, err := s.find(nil, selector)
	if err != nil {
		return nil, err
	}
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return staticElement{sel: found.First(), gen: s.gen}, nil
}

func (s *Static) FindAll(ctx context.Context, selector string) ([]Element, error) {
	found, err := s.find(nil, selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, found.Length())
	found.Each(func(_ int, sel *goquery.Selection) {
		out = append(out, staticElement{sel: sel, gen: s.gen})
	})
	return out, nil
}

func (s *Static) FindIn(ctx context.Context, parent Element, selector string) (Element, error) {
	p, err := s.elem(parent)
	if err != nil {
		return nil, err
	}
	found, err := s.find(p, selector)
	if err != nil {
		return nil, err
	}
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return staticElement{sel: found.First(), gen: s.gen}, nil
}

// Click follows links and submits the enclosing form of submit controls.
func (s *Static) Click(ctx context.Context, el Element) error {
	sel, err := s.elem(el)
	if err != nil {
		return err
	}
	link := sel
	if !sel.Is("a[href]") {
		link = sel.Find("a[href]").First()
	}
	if href, ok := link.Attr("href"); ok && link.Length() > 0 {
		return s.Navigate(ctx, href)
	}
	if sel.Is("button, input[type=submit], input[type=image], input[type=button]") {
		form := sel.Closest("form")
		if form.Length() == 0 {
			return fmt.Errorf("%w: control outside a form", ErrUnsupported)
		}
		return s.submit(ctx, form, sel)
	}
	if sel.Is("input[type=radio], input[type=checkbox]") {
		if name, ok := sel.Attr("name"); ok && sel.Is("input[type=radio]") {
			s.doc.Find(fmt.Sprintf("input[type=radio][name=%q]", name)).RemoveAttr("checked")
		}
		sel.SetAttr("checked", "checked")
		return nil
	}
	return fmt.Errorf("%w: click on <%s>", ErrUnsupported, goquery.NodeName(sel))
}

func (s *Static) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	vals := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		typ := strings.ToLower(in.AttrOr("type", "text"))
		switch typ {
		case "submit", "button", "image":
			return
		case "radio", "checkbox":
			if _, on := in.Attr("checked"); !on {
				return
			}
		}
		vals.Add(name, in.AttrOr("value", ""))
	})
	if name, ok := submitter.Attr("name"); ok {
		vals.Set(name, submitter.AttrOr("value", ""))
	}

	target, err := s.resolve(form.AttrOr("action", ""))
	if err != nil {
		return err
	}
	var req *http.Request
	if strings.EqualFold(form.AttrOr("method", "get"), http.MethodPost) {
		req, err = http.NewRequest(http.MethodPost, target.String(), strings.NewReader(vals.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		target.RawQuery = vals.Encode()
		req, err = http.NewRequest(http.MethodGet, target.String(), nil)
	}
	if err != nil {
		return err
	}
	return s.load(ctx, req)
}

func (s *Static) SetValue(ctx context.Context, el Element, text string) error {
	sel, err := s.elem(el)
	if err != nil {
		return err
	}
	sel.SetAttr("value", text)
	return nil
}

func (s *Static) Exec(ctx context.Context, script string, el Element) error {
	return fmt.Errorf("%w: script execution", ErrUnsupported)
}

func (s *Static) ScrollIntoView(ctx context.Context, el Element) error {
	_, err := s.elem(el)
	return err
}

func (s *Static) Attr(ctx context.Context, el Element, name string) (string, bool, error) {
	sel, err := s.elem(el)
	if err != nil {
		return "", false, err
	}
	v, ok := sel.Attr(name)
	return v, ok, nil
}

func (s *Static) Text(ctx context.Context, el Element) (string, error) {
	sel, err := s.elem(el)
	if err != nil {
		return "", err
	}
	return sel.Text(), nil
}

func (s *Static) Back(ctx context.Context) error {
	if len(s.history) == 0 {
		return fmt.Errorf("%w: no history", ErrUnsupported)
	}
	prev := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	req, err := http.NewRequest(http.MethodGet, prev.String(), nil)
	if err != nil {
		return err
	}
	if err := s.load(ctx, req); err != nil {
		return err
	}
	// load pushed the page we came back from; drop it
	s.history = s.history[:len(s.history)-1]
	return nil
}

// URL returns the current page address.
func (s *Static) URL() string {
	if s.cur == nil {
		return ""
	}
	return s.cur.String()
}

func (s *Static) Quit() error {
	s.doc = nil
	s.history = nil
	s.gen++
	return nil
}
