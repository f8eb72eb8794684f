package describes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder keeps an ordered log of lifecycle events across fixtures.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// mockFixture records every call the orchestrator makes on it.
type mockFixture struct {
	name        string
	off         bool
	rec         *recorder
	setupDelay  time.Duration
	setupErr    error
	teardownErr error
	values      map[string]any

	mu        sync.Mutex
	isOnCalls int
	setups    int
	teardowns int
	failures  []error
}

func newMockFixture(name string, rec *recorder) *mockFixture {
	return &mockFixture{name: name, rec: rec}
}

func (m *mockFixture) Name() string { return m.name }

func (m *mockFixture) IsOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isOnCalls++
	return !m.off
}

func (m *mockFixture) Setup(ctx context.Context, env *Env) error {
	m.rec.add(m.name + ".setup")
	if m.setupDelay > 0 {
		select {
		case <-time.After(m.setupDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.setupErr != nil {
		return m.setupErr
	}
	for k, v := range m.values {
		env.Set(k, v)
	}
	m.mu.Lock()
	m.setups++
	m.mu.Unlock()
	m.rec.add(m.name + ".ready")
	return nil
}

func (m *mockFixture) Teardown(ctx context.Context, env *Env) error {
	m.rec.add(m.name + ".teardown")
	m.mu.Lock()
	m.teardowns++
	m.mu.Unlock()
	return m.teardownErr
}

func (m *mockFixture) HandleFailure(ctx context.Context, env *Env, cause error) {
	m.rec.add(m.name + ".failure")
	m.mu.Lock()
	m.failures = append(m.failures, cause)
	m.mu.Unlock()
}

func (m *mockFixture) counts() (setups, teardowns int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setups, m.teardowns
}

func factoryOf(slots ...Slot) Factory {
	return func(Spec) []Slot { return slots }
}

func TestSlots(t *testing.T) {
	f := newMockFixture("a", &recorder{})

	tests := []struct {
		name string
		slot Slot
		want bool
	}{
		{name: "use", slot: Use(f), want: true},
		{name: "use nil", slot: Use(nil), want: false},
		{name: "omit", slot: Omit(), want: false},
		{name: "when true", slot: When(true, f), want: true},
		{name: "when false", slot: When(false, f), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.slot.Included(); got != tt.want {
				t.Errorf("Included() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrepareFiltersFixtures(t *testing.T) {
	rec := &recorder{}
	a := newMockFixture("a", rec)
	off := newMockFixture("off", rec)
	off.off = true
	b := newMockFixture("b", rec)

	var factoryCalls int
	var gotSpec Spec
	factory := func(spec Spec) []Slot {
		factoryCalls++
		gotSpec = spec
		return []Slot{Use(a), Omit(), Use(off), Use(nil), Use(b)}
	}

	spec := Spec{Browsers: []string{"chrome"}}
	lc := Prepare("suite", factory, spec)

	fixtures := lc.Fixtures()
	if len(fixtures) != 2 || fixtures[0] != a || fixtures[1] != b {
		t.Fatalf("unexpected active fixtures: %v", fixtures)
	}
	if factoryCalls != 1 {
		t.Errorf("factory called %d times, want 1", factoryCalls)
	}
	if off.isOnCalls != 1 || a.isOnCalls != 1 {
		t.Errorf("IsOn should be asked once per registration, got a=%d off=%d", a.isOnCalls, off.isOnCalls)
	}

	spec.Browsers[0] = "firefox"
	if gotSpec.Browsers[0] != "chrome" {
		t.Error("factory should see a copy of the spec")
	}
	if lc.Timeout() != Timeout {
		t.Errorf("timeout = %v, want %v", lc.Timeout(), Timeout)
	}
}

func TestFixtureName(t *testing.T) {
	if got := fixtureName(newMockFixture("page", nil)); got != "page" {
		t.Errorf("named fixture: got %q", got)
	}
	if got := fixtureName(plainFixture{}); got != "describes.plainFixture" {
		t.Errorf("unnamed fixture: got %q", got)
	}
}

type plainFixture struct{}

func (plainFixture) IsOn() bool                           { return true }
func (plainFixture) Setup(context.Context, *Env) error    { return nil }
func (plainFixture) Teardown(context.Context, *Env) error { return errors.New("boom") }
