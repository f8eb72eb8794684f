// Package controller is the browser automation facade test bodies use. The
// chromedp implementation drives Chrome over the DevTools protocol.
package controller

import (
	"context"
	"errors"

	"github.com/chromedp/chromedp/kb"
)

// Special keys accepted by Controller.Type.
const (
	KeyEnter  = kb.Enter
	KeyTab    = kb.Tab
	KeyEscape = kb.Escape
)

// ErrNoSession is returned once the controller's session has been quit.
var ErrNoSession = errors.New("browser session is closed")

// ElementHandle refers to an element found by FindElement.
type ElementHandle interface {
	Selector() string
}

// Controller is a normalized browser automation facade.
type Controller interface {
	NavigateTo(ctx context.Context, url string) error
	FindElement(ctx context.Context, selector string) (ElementHandle, error)
	// Type sends text to el, or to the focused element when el is nil.
	Type(ctx context.Context, el ElementHandle, text string) error
	Click(ctx context.Context, el ElementHandle) error
	Title(ctx context.Context) (string, error)
	ElementText(ctx context.Context, el ElementHandle) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	// Quit releases the underlying session.
	Quit() error
}

// Session is the browser session a controller drives.
type Session interface {
	// Context is the chromedp context bound to the session's tab.
	Context() context.Context
	Quit() error
}
