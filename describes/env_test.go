package describes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvBindAndClear(t *testing.T) {
	env := NewEnv()
	assert.Empty(t, env.TestID())

	env.bind()
	id := env.TestID()
	require.Len(t, id, 8)

	env.Set("b", 2)
	env.Set("a", 1)
	assert.Equal(t, []string{"a", "b"}, env.Keys())
	assert.Equal(t, 2, env.Len())

	env.Delete("b")
	_, ok := env.Get("b")
	assert.False(t, ok)

	env.clear()
	assert.Zero(t, env.Len())
	assert.Empty(t, env.TestID())

	env.bind()
	assert.NotEqual(t, id, env.TestID(), "every test gets its own id")
	assert.Zero(t, env.Len())
}

func TestLookup(t *testing.T) {
	env := NewEnv()
	env.Set("count", 3)
	env.Set("name", "x")

	n, ok := Lookup[int](env, "count")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = Lookup[int](env, "name")
	assert.False(t, ok, "wrong type")

	_, ok = Lookup[string](env, "missing")
	assert.False(t, ok)

	_, ok = Lookup[string](nil, "name")
	assert.False(t, ok)
}

func TestEnvScope(t *testing.T) {
	env := NewEnv()
	env.bind()
	first := env.scope()
	first.Set("a", 1)
	assert.Equal(t, []string{"a"}, env.Keys(), "the root sees the bound test's values")

	first.clear()
	env.bind()
	second := env.scope()

	first.Set("late", true)
	first.Delete("b")
	assert.Empty(t, first.Keys())
	assert.Empty(t, first.TestID())
	assert.Zero(t, first.Len())
	_, ok := first.Get("late")
	assert.False(t, ok)

	second.Set("b", 2)
	first.clear()
	assert.Equal(t, []string{"b"}, env.Keys(), "clearing a dead view leaves the bound test alone")
	assert.Equal(t, env.TestID(), second.TestID())
}
