package describes

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ControllerKey is the Env key under which browser fixtures publish their controller.
const ControllerKey = "controller"

// Env is the mutable per-test context fixtures populate and test bodies read.
// Its values only exist while a test is bound to it; they are cleared when the
// test finishes, so nothing leaks into the next test.
//
// Fixtures receive a view scoped to their test. Once that test is cleared
// the view goes dead: writes through it are dropped and reads find nothing,
// so a setup abandoned after a timeout cannot reach a later test.
type Env struct {
	state *envState
	// gen is the test the view belongs to; 0 follows whichever test is bound.
	gen uint64
}

type envState struct {
	mu     sync.RWMutex
	gen    uint64
	testID string
	values map[string]any
}

// NewEnv returns an empty, unbound environment.
func NewEnv() *Env {
	return &Env{state: &envState{values: make(map[string]any)}}
}

// bind starts a new test on the environment with a fresh, empty mapping.
func (e *Env) bind() {
	s := e.state
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.testID = uuid.New().String()[:8]
	s.values = make(map[string]any)
}

// scope returns a view of the environment tied to the test bound now.
func (e *Env) scope() *Env {
	s := e.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Env{state: s, gen: s.gen}
}

// live reports whether the view still belongs to the bound test. The caller
// holds the state lock.
func (e *Env) live() bool {
	return e.gen == 0 || e.gen == e.state.gen
}

// clear deletes every key and unbinds the current test. Clearing a dead view
// leaves the environment alone.
func (e *Env) clear() {
	s := e.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if !e.live() {
		return
	}
	for k := range s.values {
		delete(s.values, k)
	}
	s.testID = ""
	s.gen++
}

// TestID returns the short id of the test currently bound, or "" between tests.
func (e *Env) TestID() string {
	s := e.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !e.live() {
		return ""
	}
	return s.testID
}

func (e *Env) Set(key string, value any) {
	s := e.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if !e.live() {
		log.Debug().Str("key", key).Msg("dropping write to the environment of a finished test")
		return
	}
	s.values[key] = value
}

func (e *Env) Get(key string) (any, bool) {
	s := e.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !e.live() {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

func (e *Env) Delete(key string) {
	s := e.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.live() {
		delete(s.values, key)
	}
}

// Keys returns the keys currently set, sorted.
func (e *Env) Keys() []string {
	s := e.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	if !e.live() {
		return keys
	}
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Env) Len() int {
	s := e.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !e.live() {
		return 0
	}
	return len(s.values)
}

// Lookup returns the value stored under key if it has type T.
func Lookup[T any](env *Env, key string) (T, bool) {
	var zero T
	if env == nil {
		return zero, false
	}
	v, ok := env.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
