package describes

import (
	"context"
	"fmt"
)

// Fixture is a unit of per-test environment setup and teardown.
type Fixture interface {
	// IsOn reports whether the fixture takes part in the suite. It is asked
	// once, when the suite is registered.
	IsOn() bool

	// Setup runs before every test and may publish values into env.
	Setup(ctx context.Context, env *Env) error

	// Teardown runs after every test whose setup ran, in reverse order.
	Teardown(ctx context.Context, env *Env) error
}

// FailureHandler is implemented by fixtures that want to inspect a failed test
// before they are torn down, e.g. to capture a screenshot.
type FailureHandler interface {
	HandleFailure(ctx context.Context, env *Env, cause error)
}

// Named is implemented by fixtures that want a readable name in logs and errors.
type Named interface {
	Name() string
}

// Slot is one entry of a factory's fixture list. A slot either holds a
// fixture or is explicitly omitted.
type Slot struct {
	fixture Fixture
}

// Use includes f. A nil fixture yields an omitted slot.
func Use(f Fixture) Slot {
	return Slot{fixture: f}
}

// Omit returns a slot that contributes no fixture.
func Omit() Slot {
	return Slot{}
}

// When includes f only if cond holds.
func When(cond bool, f Fixture) Slot {
	if !cond {
		return Omit()
	}
	return Use(f)
}

// Included reports whether the slot holds a fixture.
func (s Slot) Included() bool {
	return s.fixture != nil
}

// Factory turns a suite's spec into its ordered fixture slots.
type Factory func(spec Spec) []Slot

// activeFixtures runs the factory and keeps the included fixtures that are on.
func activeFixtures(factory Factory, spec Spec) []Fixture {
	var fixtures []Fixture
	for _, slot := range factory(spec) {
		if !slot.Included() {
			continue
		}
		if slot.fixture.IsOn() {
			fixtures = append(fixtures, slot.fixture)
		}
	}
	return fixtures
}

func fixtureName(f Fixture) string {
	if n, ok := f.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", f)
}
