package describes

import (
	"context"
	"fmt"
	"time"
)

// Mode selects which suite primitive of the host a registration delegates to.
type Mode int

const (
	// ModeDefault registers an ordinary suite.
	ModeDefault Mode = iota
	// ModeOnly registers a focused suite; unfocused suites do not run.
	ModeOnly
	// ModeSkip registers a suite that is listed but none of its tests run.
	ModeSkip
)

func (m Mode) String() string {
	switch m {
	case ModeOnly:
		return "only"
	case ModeSkip:
		return "skip"
	default:
		return "default"
	}
}

// HookFunc is a before-each or after-each hook.
type HookFunc func(ctx context.Context) error

// Host is the test runner a Describer registers suites with.
type Host interface {
	// Describe registers a suite. body runs synchronously to collect the
	// suite's hooks, tests and nested suites.
	Describe(name string, mode Mode, body func())

	// Timeout sets the per-test timeout of the suite being collected.
	Timeout(d time.Duration)

	// BeforeEach adds a hook run before every test of the suite being collected.
	BeforeEach(fn HookFunc)

	// AfterEach adds a hook run after every test of the suite being collected.
	// Hosts put the test's failure, if any, in the hook context (see TestFailure).
	AfterEach(fn HookFunc)
}

type failureKey struct{}

// ContextWithTestFailure records the failure of the current test for after-each hooks.
func ContextWithTestFailure(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	return context.WithValue(ctx, failureKey{}, err)
}

// TestFailure returns the failure recorded by ContextWithTestFailure.
func TestFailure(ctx context.Context) error {
	err, _ := ctx.Value(failureKey{}).(error)
	return err
}

// Describer is the suite registration function returned by DescribeEnv.
// Describe, Only and Skip differ only in the host primitive they use.
type Describer struct {
	factory Factory
	host    Host
	opts    []Option
}

// DescribeEnv binds a fixture factory to a host.
func DescribeEnv(factory Factory, host Host, opts ...Option) *Describer {
	return &Describer{
		factory: factory,
		host:    host,
		opts:    opts,
	}
}

// Describe registers a suite whose tests run with the factory's fixtures.
// body receives the suite's environment; its values are only present while a
// test runs.
func (d *Describer) Describe(name string, spec Spec, body func(env *Env)) *Lifecycle {
	return d.register(name, spec, body, ModeDefault)
}

// Only registers a focused suite.
func (d *Describer) Only(name string, spec Spec, body func(env *Env)) *Lifecycle {
	return d.register(name, spec, body, ModeOnly)
}

// Skip registers a suite whose tests are all skipped.
func (d *Describer) Skip(name string, spec Spec, body func(env *Env)) *Lifecycle {
	return d.register(name, spec, body, ModeSkip)
}

func (d *Describer) register(name string, spec Spec, body func(env *Env), mode Mode) *Lifecycle {
	if name == "" {
		panic(fmt.Errorf("describes: %w", ErrEmptyName))
	}

	lc := Prepare(name, d.factory, spec, d.opts...)
	env := NewEnv()

	var attempt *Attempt
	d.host.Describe(name, mode, func() {
		d.host.Timeout(lc.Timeout())

		d.host.BeforeEach(func(ctx context.Context) error {
			a, err := lc.Begin(ctx, env)
			attempt = a
			return err
		})

		d.host.AfterEach(func(ctx context.Context) error {
			a := attempt
			attempt = nil
			if a == nil {
				// The before-each hook never ran, still leave nothing behind.
				lc.ClearEnvironment(env)
				return nil
			}
			return a.End(ctx, TestFailure(ctx))
		})

		d.host.Describe(InnerSuiteName, ModeDefault, func() {
			body(env)
		})
	})
	return lc
}
