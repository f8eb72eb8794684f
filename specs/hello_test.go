//go:build e2e

package specs

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatool/endtoend/describes"
	"github.com/tomatool/endtoend/fixture/page"
)

var _ = endtoend.Describe("hello", describes.Spec{}, func(env *describes.Env) {
	describes.It("is not world", func(t *describes.T) {
		c, ok := page.Controller(env)
		require.True(t, ok)
		require.NoError(t, c.NavigateTo(t.Context(), "https://www.google.com"))

		assert.NotEqual(t, "hello", "world")
	})
})

