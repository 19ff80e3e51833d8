package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"jobbot-engine/internal/domain"
)

type ChromeOptions struct {
	Headless  bool
	UserAgent string
	ExecPath  string // empty = find chrome on PATH
	// Explicit bounds FindAll/FindIn/attribute reads, which never wait for
	// elements to appear but may still block on a busy page.
	Explicit time.Duration
}

// Chrome drives a local Chrome through the DevTools protocol.
type Chrome struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	explicit    time.Duration
}

// OpenChrome starts a browser. The browser is tied to its own background
// context so that cancelling ctx interrupts calls without killing the
// process before Quit runs.
func OpenChrome(ctx context.Context, o ChromeOptions) (*Chrome, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	c := &Chrome{tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc, explicit: o.Explicit}
	if c.explicit <= 0 {
		c.explicit = 30 * time.Second
	}

	// first Run launches the browser
	if err := c.run(ctx, c.explicit); err != nil {
		c.cancelTab()
		c.cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return c, nil
}

func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(c.tab, timeout)
	} else {
		opCtx, cancel = context.WithCancel(c.tab)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && c.tab.Err() != nil {
		// the tab or the browser process is gone
		return domain.Transport("chrome", err)
	}
	return err
}

func node(el Element) (*cdp.Node, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %T is not a chrome element", ErrStale, el)
	}
	return n, nil
}

func ids(n *cdp.Node) []cdp.NodeID { return []cdp.NodeID{n.NodeID} }

func queryBy(selector string) chromedp.QueryOption {
	if IsXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, c.explicit, chromedp.Navigate(url))
}

func (c *Chrome) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	var nodes []*cdp.Node
	err := c.run(ctx, timeout, chromedp.Nodes(selector, &nodes, queryBy(selector)))
	if errors.Is(err, context.DeadlineExceeded) || (err == nil && len(nodes) == 0) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

func (c *Chrome) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, c.explicit, chromedp.Nodes(selector, &nodes, queryBy(selector), chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out, nil
}

func (c *Chrome) FindIn(ctx context.Context, parent Element, selector string) (Element, error) {
	p, err := node(parent)
	if err != nil {
		return nil, err
	}
	if IsXPath(selector) {
		return nil, fmt.Errorf("%w: xpath below an element", ErrUnsupported)
	}
	var nodes []*cdp.Node
	err = c.run(ctx, c.explicit, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.FromNode(p), chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return nodes[0], nil
}

func (c *Chrome) Click(ctx context.Context, el Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.explicit, chromedp.MouseClickNode(n))
}

func (c *Chrome) SetValue(ctx context.Context, el Element, text string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.explicit,
		chromedp.SetValue(ids(n), "", chromedp.ByNodeID),
		chromedp.SendKeys(ids(n), text, chromedp.ByNodeID),
	)
}

func (c *Chrome) Exec(ctx context.Context, script string, el Element) error {
	if el == nil {
		return c.run(ctx, c.explicit, chromedp.Evaluate("(function(){"+script+"})()", nil))
	}
	n, err := node(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.explicit, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
		_, exc, err := runtime.CallFunctionOn("function(el){" + script + "}").
			WithObjectID(obj.ObjectID).
			WithArguments([]*runtime.CallArgument{{ObjectID: obj.ObjectID}}).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return nil
	}))
}

func (c *Chrome) ScrollIntoView(ctx context.Context, el Element) error {
	return c.Exec(ctx, ScriptScrollCenter, el)
}

func (c *Chrome) Attr(ctx context.Context, el Element, name string) (string, bool, error) {
	n, err := node(el)
	if err != nil {
		return "", false, err
	}
	var (
		val string
		ok  bool
	)
	err = c.run(ctx, c.explicit, chromedp.AttributeValue(ids(n), name, &val, &ok, chromedp.ByNodeID))
	return val, ok, err
}

func (c *Chrome) Text(ctx context.Context, el Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	var txt string
	err = c.run(ctx, c.explicit, chromedp.TextContent(ids(n), &txt, chromedp.ByNodeID))
	return txt, err
}

func (c *Chrome) Back(ctx context.Context) error {
	return c.run(ctx, c.explicit, chromedp.NavigateBack())
}

func (c *Chrome) Quit() error {
	err := chromedp.Cancel(c.tab)
	c.cancelTab()
	c.cancelAlloc()
	return err
}
