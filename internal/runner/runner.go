package runner

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/rs/zerolog/log"

	"github.com/tomatool/endtoend/describes"
	"github.com/tomatool/endtoend/describes/godoghost"
	"github.com/tomatool/endtoend/fixture/app"
	"github.com/tomatool/endtoend/fixture/page"
	"github.com/tomatool/endtoend/internal/config"
	_ "github.com/tomatool/endtoend/internal/formatter"
	"github.com/tomatool/endtoend/steps"
)

// ScenarioContext is the part of godog.ScenarioContext the runner binds to.
type ScenarioContext interface {
	Before(h godog.BeforeScenarioHook)
	After(h godog.AfterScenarioHook)
	Step(expr interface{}, stepFunc interface{})
}

// Options configures runner behavior
type Options struct {
	Format   string // Override output format
	Scenario string // Only run scenarios whose name matches this regex
}

// Runner executes feature files with a browser page per scenario
type Runner struct {
	config        *config.Config
	lifecycle     *describes.Lifecycle
	opts          Options
	scenarioRegex *regexp.Regexp
}

// New creates a new test runner
func New(cfg *config.Config, opts Options) (*Runner, error) {
	lc := describes.Prepare("features", fixtures(cfg),
		describes.Spec{Browsers: cfg.Browser.Browsers},
		describes.WithTeardownOnSetupFailure(cfg.Settings.TeardownOnSetupFailure),
	)
	return newRunner(cfg, lc, opts)
}

// fixtures starts the app under test, when one is configured, before the
// browser page.
func fixtures(cfg *config.Config) describes.Factory {
	appOpts := cfg.AppOptions()
	pageOpts := page.Options{
		Engine:      cfg.EngineOptions(),
		ArtifactDir: cfg.Settings.Artifacts,
	}
	return func(spec describes.Spec) []describes.Slot {
		return []describes.Slot{
			describes.When(appOpts.Enabled(), app.New(appOpts)),
			describes.Use(page.New(spec, pageOpts)),
		}
	}
}

// newRunner is the internal constructor that allows dependency injection for testing
func newRunner(cfg *config.Config, lc *describes.Lifecycle, opts Options) (*Runner, error) {
	r := &Runner{
		config:    cfg,
		lifecycle: lc,
		opts:      opts,
	}

	if opts.Scenario != "" {
		log.Debug().Str("pattern", opts.Scenario).Msg("compiling scenario filter regex")
		regex, err := regexp.Compile(opts.Scenario)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario filter regex: %w", err)
		}
		r.scenarioRegex = regex
		log.Info().Str("pattern", opts.Scenario).Msg("scenario filter active")
	}

	return r, nil
}

// godogOptions builds the suite options. Scenarios share the page fixture, so
// they always run one at a time.
func (r *Runner) godogOptions(ctx context.Context) *godog.Options {
	format := r.config.Settings.Output
	if r.opts.Format != "" {
		format = r.opts.Format
	}

	return &godog.Options{
		Output:         colors.Colored(os.Stdout),
		Format:         format,
		Paths:          r.config.Features.Paths,
		Tags:           r.config.Features.Tags,
		StopOnFailure:  r.config.Settings.FailFast,
		Strict:         true,
		Concurrency:    1,
		DefaultContext: ctx,
	}
}

// Run executes all features
func (r *Runner) Run(ctx context.Context) error {
	suite := godog.TestSuite{
		Name:                "endtoend",
		ScenarioInitializer: r.initializeScenario,
		Options:             r.godogOptions(ctx),
	}

	if status := suite.Run(); status != 0 {
		return fmt.Errorf("tests failed with status %d", status)
	}

	return nil
}

func (r *Runner) initializeScenario(ctx *godog.ScenarioContext) {
	r.setupScenarioHooks(ctx)
	steps.Register(ctx)
}

// setupScenarioHooks binds the fixture lifecycle, with the scenario filter in
// front of the setups. It accepts an interface for testability.
func (r *Runner) setupScenarioHooks(ctx ScenarioContext) {
	var opts []godoghost.Option
	if r.scenarioRegex != nil {
		opts = append(opts, godoghost.WithFilter(func(sc *godog.Scenario) bool {
			return r.scenarioRegex.MatchString(sc.Name)
		}))
	}
	godoghost.Bind(ctx, r.lifecycle, opts...)
}
