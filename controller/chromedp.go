package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

type element struct {
	selector string
	node     *cdp.Node
}

func (e *element) Selector() string {
	return e.selector
}

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

// Chromedp implements Controller with chromedp.
type Chromedp struct {
	mu      sync.Mutex
	session Session
}

// NewChromedp wraps a session.
func NewChromedp(session Session) *Chromedp {
	return &Chromedp{session: session}
}

// run executes actions on the session's tab, cancelled when ctx is.
func (c *Chromedp) run(ctx context.Context, actions ...chromedp.Action) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}

	runCtx, cancel := context.WithCancel(s.Context())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return err
	}
	return nil
}

func (c *Chromedp) NavigateTo(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// FindElement looks the selector up once. A miss is reported right away.
func (c *Chromedp) FindElement(ctx context.Context, selector string) (ElementHandle, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("finding %s: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("finding %s: no such element", selector)
	}
	return &element{selector: selector, node: nodes[0]}, nil
}

func (c *Chromedp) Type(ctx context.Context, el ElementHandle, text string) error {
	if el == nil {
		if err := c.run(ctx, chromedp.KeyEvent(text)); err != nil {
			return fmt.Errorf("typing into focused element: %w", err)
		}
		return nil
	}
	e, err := asElement(el)
	if err != nil {
		return err
	}
	if err := c.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("typing into %s: %w", e.selector, err)
	}
	return nil
}

func (c *Chromedp) Click(ctx context.Context, el ElementHandle) error {
	e, err := asElement(el)
	if err != nil {
		return err
	}
	if err := c.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("clicking %s: %w", e.selector, err)
	}
	return nil
}

func (c *Chromedp) Title(ctx context.Context) (string, error) {
	var title string
	if err := c.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("reading title: %w", err)
	}
	return title, nil
}

func (c *Chromedp) ElementText(ctx context.Context, el ElementHandle) (string, error) {
	e, err := asElement(el)
	if err != nil {
		return "", err
	}
	var text string
	if err := c.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("reading text of %s: %w", e.selector, err)
	}
	return text, nil
}

func (c *Chromedp) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("taking screenshot: %w", err)
	}
	return buf, nil
}

// Quit closes the session. Later calls are no-ops.
func (c *Chromedp) Quit() error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Quit()
}

func asElement(el ElementHandle) (*element, error) {
	e, ok := el.(*element)
	if !ok || e == nil || e.node == nil {
		return nil, fmt.Errorf("element handle %v was not returned by this controller", el)
	}
	return e, nil
}
