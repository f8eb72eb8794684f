// Package godoghost runs describes fixtures around godog scenarios. Each
// scenario is one test: its Before hook sets the fixtures up and its After
// hook tears them down. Fixtures hold per-test state, so suites bound here
// must run with a concurrency of one.
package godoghost

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog/log"

	"github.com/tomatool/endtoend/describes"
)

// ScenarioContext abstracts godog.ScenarioContext for testing
type ScenarioContext interface {
	Before(h godog.BeforeScenarioHook)
	After(h godog.AfterScenarioHook)
}

type envKey struct{}

type attemptKey struct{}

type attemptState struct {
	attempt *describes.Attempt
	cancel  context.CancelFunc
}

// WithEnv stores env in ctx for step definitions.
func WithEnv(ctx context.Context, env *describes.Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFrom returns the environment of the running scenario.
func EnvFrom(ctx context.Context) (*describes.Env, bool) {
	env, ok := ctx.Value(envKey{}).(*describes.Env)
	return env, ok && env != nil
}

// Option configures Bind.
type Option func(*binding)

type binding struct {
	filter func(*godog.Scenario) bool
}

// WithFilter skips the scenarios keep rejects. Their fixtures are never set up.
func WithFilter(keep func(*godog.Scenario) bool) Option {
	return func(b *binding) {
		b.filter = keep
	}
}

// Bind installs the lifecycle's hooks on a scenario. The returned context of
// the Before hook carries the environment and the per-test deadline.
func Bind(sc ScenarioContext, lc *describes.Lifecycle, opts ...Option) {
	var b binding
	for _, opt := range opts {
		opt(&b)
	}

	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		// godog runs every Before hook even when one skips, so the filter has
		// to sit in front of the setups.
		if b.filter != nil && !b.filter(s) {
			log.Info().Str("scenario", s.Name).Msg("skipping scenario (doesn't match filter)")
			return ctx, godog.ErrSkip
		}

		runCtx, cancel := context.WithTimeoutCause(ctx, lc.Timeout(),
			fmt.Errorf("%w after %s", describes.ErrTimeout, lc.Timeout()))

		a, err := lc.Begin(runCtx, nil)
		if err != nil {
			endErr := a.End(ctx, err)
			cancel()
			log.Debug().Err(err).Str("scenario", s.Name).Msg("scenario setup failed")
			return ctx, errors.Join(err, endErr)
		}

		log.Debug().Str("scenario", s.Name).Str("test", a.Env().TestID()).Msg("scenario environment ready")
		runCtx = WithEnv(runCtx, a.Env())
		runCtx = context.WithValue(runCtx, attemptKey{}, &attemptState{attempt: a, cancel: cancel})
		return runCtx, nil
	})

	sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
		st, ok := ctx.Value(attemptKey{}).(*attemptState)
		if !ok {
			return ctx, nil
		}
		defer st.cancel()

		if errors.Is(err, godog.ErrSkip) {
			err = nil
		}
		if endErr := st.attempt.End(ctx, err); endErr != nil {
			log.Warn().Err(endErr).Str("scenario", s.Name).Msg("scenario teardown failed")
			return ctx, endErr
		}
		return ctx, nil
	})
}
