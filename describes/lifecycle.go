package describes

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// Timeout bounds every test, fixture setup included. Suites cannot override it.
	Timeout = 20 * time.Second

	// InnerSuiteName labels the suite nesting the user's body. Runners refuse
	// to render an empty label, hence a single space.
	InnerSuiteName = " "
)

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithTeardownOnSetupFailure makes a failed setup tear down the fixtures that
// were already set up in the same attempt. Off by default: a failed setup
// tears nothing down.
func WithTeardownOnSetupFailure(enabled bool) Option {
	return func(l *Lifecycle) {
		l.teardownOnSetupFailure = enabled
	}
}

// withTimeout shortens the per-test timeout in tests.
func withTimeout(d time.Duration) Option {
	return func(l *Lifecycle) {
		l.timeout = d
	}
}

// BodyFunc is a test body run by Lifecycle.Run.
type BodyFunc func(ctx context.Context, env *Env) error

// Lifecycle holds the active fixtures of one suite registration and runs the
// per-test phases over them: BuildEnvironment, RunSetups, RunBody,
// RunTeardowns and ClearEnvironment. Hosts call the phases from their own
// hooks; Begin and Attempt.End bundle them for before/after hook pairs.
type Lifecycle struct {
	suite                  string
	fixtures               []Fixture
	timeout                time.Duration
	teardownOnSetupFailure bool
}

// Prepare computes the active fixtures for a suite once: the factory is
// called, omitted slots are dropped and so are fixtures that are not on.
func Prepare(suite string, factory Factory, spec Spec, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		suite:    suite,
		fixtures: activeFixtures(factory, spec.clone()),
		timeout:  Timeout,
	}
	for _, opt := range opts {
		opt(l)
	}

	log.Debug().
		Str("suite", suite).
		Int("fixtures", len(l.fixtures)).
		Msg("suite prepared")
	return l
}

func (l *Lifecycle) Suite() string {
	return l.suite
}

// Fixtures returns the active fixtures in setup order.
func (l *Lifecycle) Fixtures() []Fixture {
	return append([]Fixture(nil), l.fixtures...)
}

func (l *Lifecycle) Timeout() time.Duration {
	return l.timeout
}

// BuildEnvironment binds a fresh, empty mapping to env for a new test. A nil
// env gets a newly allocated one.
func (l *Lifecycle) BuildEnvironment(env *Env) *Env {
	if env == nil {
		env = NewEnv()
	}
	env.bind()
	return env
}

// RunSetups sets up the fixtures one after another in declared order. The
// first failure stops the chain. It returns how many fixtures were set up.
func (l *Lifecycle) RunSetups(ctx context.Context, env *Env) (int, error) {
	for i, f := range l.fixtures {
		name := fixtureName(f)
		start := time.Now()
		if err := await(ctx, func(ctx context.Context) error {
			return f.Setup(ctx, env)
		}); err != nil {
			log.Debug().Err(err).Str("suite", l.suite).Str("fixture", name).Msg("fixture setup failed")
			return i, &SetupError{Fixture: name, Err: err}
		}
		log.Debug().
			Str("suite", l.suite).
			Str("test", env.TestID()).
			Str("fixture", name).
			Dur("duration", time.Since(start)).
			Msg("fixture set up")
	}
	return len(l.fixtures), nil
}

// RunBody runs body against env, giving up when ctx is done.
func (l *Lifecycle) RunBody(ctx context.Context, env *Env, body BodyFunc) error {
	return await(ctx, func(ctx context.Context) error {
		return body(ctx, env)
	})
}

// HandleFailure lets the first n fixtures that implement FailureHandler look
// at a failed test, newest first.
func (l *Lifecycle) HandleFailure(ctx context.Context, env *Env, n int, cause error) {
	for i := n - 1; i >= 0; i-- {
		h, ok := l.fixtures[i].(FailureHandler)
		if !ok {
			continue
		}
		if err := await(ctx, func(ctx context.Context) error {
			h.HandleFailure(ctx, env, cause)
			return nil
		}); err != nil {
			log.Warn().Err(err).Str("fixture", fixtureName(l.fixtures[i])).Msg("failure handler did not complete")
		}
	}
}

// RunTeardowns tears down the first n fixtures in reverse order. Every
// teardown runs even if an earlier one failed; failures are joined.
func (l *Lifecycle) RunTeardowns(ctx context.Context, env *Env, n int) error {
	var errs []error
	for i := n - 1; i >= 0; i-- {
		f := l.fixtures[i]
		name := fixtureName(f)
		if err := await(ctx, func(ctx context.Context) error {
			return f.Teardown(ctx, env)
		}); err != nil {
			log.Warn().Err(err).Str("suite", l.suite).Str("fixture", name).Msg("fixture teardown failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		log.Debug().Str("suite", l.suite).Str("fixture", name).Msg("fixture torn down")
	}
	if len(errs) > 0 {
		return &TeardownError{Errs: errs}
	}
	return nil
}

// ClearEnvironment deletes every key from env and unbinds the test.
func (l *Lifecycle) ClearEnvironment(env *Env) {
	env.clear()
}

// Run executes one test end to end under the per-test timeout: environment,
// setups, body, teardowns, and a guaranteed environment clear.
func (l *Lifecycle) Run(ctx context.Context, body BodyFunc) error {
	ctx, cancel := l.withDeadline(ctx)
	defer cancel()

	a, err := l.Begin(ctx, nil)
	if err == nil {
		err = l.RunBody(ctx, a.Env(), body)
	}
	return errors.Join(err, a.End(ctx, err))
}

// withDeadline applies the per-test timeout, recording ErrTimeout as the cause.
func (l *Lifecycle) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(ctx, l.timeout, fmt.Errorf("%w after %s", ErrTimeout, l.timeout))
}

// Begin builds the environment and runs the setups of one test.
func (l *Lifecycle) Begin(ctx context.Context, env *Env) (*Attempt, error) {
	a := &Attempt{lc: l, env: l.BuildEnvironment(env).scope()}
	a.ready, a.setupErr = l.RunSetups(ctx, a.env)
	return a, a.setupErr
}

// Attempt is one test's pass through the lifecycle, from Begin to End.
type Attempt struct {
	lc       *Lifecycle
	env      *Env
	ready    int
	setupErr error
	ended    bool
}

func (a *Attempt) Env() *Env {
	return a.env
}

// SetupErr returns the setup failure of the attempt, if any.
func (a *Attempt) SetupErr() error {
	return a.setupErr
}

// End tears the attempt down and clears its environment. cause is the test
// failure, nil when the test passed. End is safe to call more than once.
func (a *Attempt) End(ctx context.Context, cause error) error {
	if a == nil || a.ended {
		return nil
	}
	a.ended = true

	// Teardown still runs when the test ran out of time.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.lc.timeout)
	defer cancel()
	defer a.lc.ClearEnvironment(a.env)

	n := a.ready
	if a.setupErr != nil && !a.lc.teardownOnSetupFailure {
		n = 0
	}
	if cause != nil && a.setupErr == nil {
		a.lc.HandleFailure(ctx, a.env, n, cause)
	}
	return a.lc.RunTeardowns(ctx, a.env, n)
}

// await runs fn and waits for its result or for ctx to be done, whichever
// comes first. Panics are turned into errors.
func await(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return context.Cause(ctx)
		}
		return err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
