// Package page provides the browser page fixture: every test gets a brand new
// browser session, published to the test environment under the "controller"
// key.
package page

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tomatool/endtoend/controller"
	"github.com/tomatool/endtoend/describes"
	"github.com/tomatool/endtoend/engine"
	"github.com/tomatool/endtoend/internal/runlog"
)

// Launcher starts a browser session.
type Launcher func(ctx context.Context, opts engine.Options) (controller.Session, error)

// Options configures the page fixture.
type Options struct {
	Engine engine.Options
	// ArtifactDir receives a screenshot of every failed test. Empty disables screenshots.
	ArtifactDir string
	// Launcher overrides how sessions are started.
	Launcher Launcher
}

func launchEngine(ctx context.Context, opts engine.Options) (controller.Session, error) {
	s, err := engine.Create(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Page is the page fixture. It holds at most one live controller, between
// Setup and Teardown.
type Page struct {
	engine      engine.Options
	artifactDir string
	launch      Launcher
	wrap        func(controller.Session) controller.Controller

	ctrl controller.Controller
}

// New builds the fixture for one suite. Spec browsers take precedence over
// opts.Engine.Browsers; the "headless" spec option overrides the engine's.
func New(spec describes.Spec, opts Options) *Page {
	eng := opts.Engine
	if len(spec.Browsers) > 0 {
		eng.Browsers = append([]string(nil), spec.Browsers...)
	}
	if v, ok := spec.Option("headless"); ok {
		if headless, ok := v.(bool); ok {
			eng.Headless = headless
		}
	}

	p := &Page{
		engine:      eng,
		artifactDir: opts.ArtifactDir,
		launch:      opts.Launcher,
		wrap: func(s controller.Session) controller.Controller {
			return controller.NewChromedp(s)
		},
	}
	if p.launch == nil {
		p.launch = launchEngine
	}
	return p
}

func (p *Page) Name() string {
	return "page"
}

// IsOn is always true: every suite using the fixture gets a page.
func (p *Page) IsOn() bool {
	return true
}

// Setup starts a browser session and publishes its controller.
func (p *Page) Setup(ctx context.Context, env *describes.Env) error {
	session, err := p.launch(ctx, p.engine)
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	p.ctrl = p.wrap(session)
	env.Set(describes.ControllerKey, p.ctrl)
	return nil
}

// Teardown quits the session. The environment is left alone; the
// orchestrator clears it.
func (p *Page) Teardown(ctx context.Context, env *describes.Env) error {
	if p.ctrl == nil {
		return nil
	}
	err := p.ctrl.Quit()
	p.ctrl = nil
	if err != nil {
		return fmt.Errorf("quitting browser: %w", err)
	}
	return nil
}

// HandleFailure saves a screenshot of the page the failed test left behind.
func (p *Page) HandleFailure(ctx context.Context, env *describes.Env, cause error) {
	if p.ctrl == nil || p.artifactDir == "" {
		return
	}
	run, err := runlog.Shared(p.artifactDir)
	if err != nil {
		log.Warn().Err(err).Msg("creating artifact directory")
		return
	}
	shot, err := p.ctrl.Screenshot(ctx)
	if err != nil {
		log.Warn().Err(err).Str("test", env.TestID()).Msg("taking failure screenshot")
		return
	}
	path, err := run.WriteArtifact("failure-"+env.TestID(), "png", shot)
	if err != nil {
		log.Warn().Err(err).Msg("saving failure screenshot")
		return
	}
	log.Info().Str("test", env.TestID()).Str("path", path).AnErr("cause", cause).Msg("failure screenshot saved")
}

// Controller returns the controller published by the fixture.
func Controller(env *describes.Env) (controller.Controller, bool) {
	return describes.Lookup[controller.Controller](env, describes.ControllerKey)
}

// Factory returns a fixture factory with the page as the only fixture.
func Factory(opts Options) describes.Factory {
	return func(spec describes.Spec) []describes.Slot {
		return []describes.Slot{describes.Use(New(spec, opts))}
	}
}

// EndToEnd is DescribeEnv with the page fixture.
func EndToEnd(host describes.Host, opts Options, lifecycleOpts ...describes.Option) *describes.Describer {
	return describes.DescribeEnv(Factory(opts), host, lifecycleOpts...)
}
