package describes

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"
)

type failNowSignal struct{}

type skipSignal struct{}

// T is handed to the bodies of Tree tests. It satisfies testify's
// require.TestingT and gomega's GomegaTestingT.
type T struct {
	ctx    context.Context
	id     TestID
	logger TestLogger

	mu         sync.Mutex
	errors     []error
	skipped    bool
	skipReason string
}

func newT(ctx context.Context, id TestID, logger TestLogger) *T {
	return &T{ctx: ctx, id: id, logger: logger}
}

// Context is cancelled when the test times out.
func (t *T) Context() context.Context {
	return t.ctx
}

func (t *T) ID() TestID {
	return t.id
}

func (t *T) Name() string {
	return t.id.String()
}

func (t *T) Helper() {}

func (t *T) Errorf(format string, args ...any) {
	t.fail(fmt.Errorf(format, args...))
}

func (t *T) Error(args ...any) {
	t.fail(errors.New(fmt.Sprint(args...)))
}

func (t *T) Fail() {
	t.fail(errors.New("test failed"))
}

// FailNow stops the test body. Errors reported so far are kept.
func (t *T) FailNow() {
	t.mu.Lock()
	empty := len(t.errors) == 0
	t.mu.Unlock()
	if empty {
		t.fail(errors.New("test failed with no failure message"))
	}
	panic(failNowSignal{})
}

func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Skip stops the test body and reports the test as skipped.
func (t *T) Skip(reason string) {
	t.mu.Lock()
	t.skipped = true
	t.skipReason = reason
	t.mu.Unlock()
	panic(skipSignal{})
}

func (t *T) Logf(format string, args ...any) {
	log.Info().Str("test", t.id.String()).Msgf(format, args...)
}

func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.errors) > 0
}

func (t *T) fail(err error) {
	t.mu.Lock()
	t.errors = append(t.errors, err)
	t.mu.Unlock()
	t.logger.TestError(t.id, err)
}

func (t *T) err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Join(t.errors...)
}

func (t *T) result() TestResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TestResult{
		ID:         t.id,
		Errors:     append([]error(nil), t.errors...),
		Skipped:    t.skipped,
		SkipReason: t.skipReason,
	}
}

// run calls fn, turning FailNow and Skip into a normal return.
func (t *T) run(fn TestFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case failNowSignal, skipSignal:
				return
			}
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	fn(t)
	return nil
}
