// Package engine starts browser sessions for the controller: a local Chrome,
// a remote DevTools endpoint, or a throwaway browser container.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/tomatool/endtoend/internal/container"
)

// ErrUnsupportedBrowser is returned when none of the requested browsers can be driven.
var ErrUnsupportedBrowser = errors.New("unsupported browser")

// DefaultBrowser is used when a spec does not ask for a browser.
const DefaultBrowser = "chrome"

// Options selects and configures the browser of a session.
type Options struct {
	// Browsers lists the requested browsers; the first supported one is used.
	Browsers []string
	Headless bool
	// RemoteURL connects to an already running browser's DevTools endpoint.
	RemoteURL string
	// Container starts a browser container per session when set.
	Container *ContainerOptions
	// ExecPath overrides the local browser binary.
	ExecPath     string
	WindowWidth  int
	WindowHeight int
}

// ContainerOptions configures the browser container.
type ContainerOptions struct {
	Image          string
	Port           string
	Env            map[string]string
	StartupTimeout time.Duration
}

// Mode names how sessions are obtained: "remote", "container" or "local".
func (o Options) Mode() string {
	switch {
	case o.RemoteURL != "":
		return "remote"
	case o.Container != nil:
		return "container"
	default:
		return "local"
	}
}

var startBrowser = container.StartBrowser

// quitTimeout bounds how long Quit waits for the browser to go away.
var quitTimeout = 10 * time.Second

// Session is one browser tab, with the browser process or container behind it.
type Session struct {
	Browser string

	ctx       context.Context
	cancel    context.CancelFunc
	container *container.Browser

	once    sync.Once
	quitErr error
}

// Create starts a new session. ctx bounds the startup only; the session lives
// until Quit.
func Create(ctx context.Context, opts Options) (*Session, error) {
	browser, err := SelectBrowser(opts.Browsers)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	base := context.WithoutCancel(ctx)
	s := &Session{Browser: browser}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	switch opts.Mode() {
	case "remote":
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(base, opts.RemoteURL)
	case "container":
		b, err := startBrowser(ctx, container.Config{
			Image:          opts.Container.Image,
			Port:           opts.Container.Port,
			Env:            opts.Container.Env,
			StartupTimeout: opts.Container.StartupTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("starting %s container: %w", browser, err)
		}
		s.container = b
		url, err := b.DevToolsURL(ctx)
		if err != nil {
			s.Quit()
			return nil, err
		}
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(base, url)
	default:
		allocCtx, allocCancel = chromedp.NewExecAllocator(base, execOptions(opts)...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	s.ctx = tabCtx
	s.cancel = func() {
		if err := chromedp.Cancel(tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug().Err(err).Msg("closing browser tab")
		}
		tabCancel()
		allocCancel()
	}

	// The first run launches the browser, tying it to the session context
	// rather than to ctx.
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx) }()

	var startErr error
	select {
	case err := <-done:
		if err != nil {
			startErr = fmt.Errorf("starting %s: %w", browser, err)
		}
	case <-ctx.Done():
		startErr = context.Cause(ctx)
	}
	if startErr != nil {
		// The browser never attached: the tab's cancel waits for an allocation
		// that only ends once the allocator is cancelled.
		s.cancel = func() {
			allocCancel()
			tabCancel()
		}
		s.Quit()
		return nil, startErr
	}

	log.Debug().
		Str("browser", browser).
		Str("mode", opts.Mode()).
		Dur("duration", time.Since(start)).
		Msg("browser session started")
	return s, nil
}

// Context returns the chromedp context of the session's tab.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Quit closes the tab, the browser and its container. Safe to call twice.
func (s *Session) Quit() error {
	s.once.Do(func() {
		if s.cancel != nil && !within(quitTimeout, s.cancel) {
			log.Warn().Str("browser", s.Browser).Dur("timeout", quitTimeout).Msg("browser did not shut down in time")
		}
		if s.container != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.quitErr = s.container.Terminate(ctx)
		}
		log.Debug().Str("browser", s.Browser).Msg("browser session closed")
	})
	return s.quitErr
}

// within runs fn and reports whether it returned before d passed.
func within(d time.Duration, fn func()) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// SelectBrowser returns the first requested browser that can be driven.
// An empty list selects DefaultBrowser.
func SelectBrowser(browsers []string) (string, error) {
	if len(browsers) == 0 {
		return DefaultBrowser, nil
	}
	for _, b := range browsers {
		switch name := strings.ToLower(strings.TrimSpace(b)); name {
		case "chrome", "chromium":
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s (supported: chrome, chromium)", ErrUnsupportedBrowser, strings.Join(browsers, ", "))
}

func execOptions(opts Options) []chromedp.ExecAllocatorOption {
	o := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		o = append(o, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		o = append(o, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		o = append(o, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	return o
}
