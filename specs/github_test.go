//go:build e2e

package specs

import (
	"strings"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatool/endtoend/controller"
	"github.com/tomatool/endtoend/describes"
	"github.com/tomatool/endtoend/fixture/page"
)

var _ = endtoend.Describe("GitHub", describes.Spec{Browsers: []string{"chrome"}}, func(env *describes.Env) {
	describes.It("finds TestCafe by search", func(t *describes.T) {
		ctx := t.Context()
		c, ok := page.Controller(env)
		require.True(t, ok)

		require.NoError(t, c.NavigateTo(ctx, "https://github.com"))
		input, err := c.FindElement(ctx, ".header-search-input")
		require.NoError(t, err)
		require.NoError(t, c.Type(ctx, input, "TestCafe"))
		require.NoError(t, c.Type(ctx, nil, controller.KeyEnter))

		assert.Eventually(t, func() bool {
			title, err := c.Title(ctx)
			return err == nil && strings.Contains(title, "TestCafe")
		}, 10*time.Second, 200*time.Millisecond)

		item, err := c.FindElement(ctx, ".repo-list-item")
		require.NoError(t, err)
		text, err := c.ElementText(ctx, item)
		require.NoError(t, err)
		assert.Contains(t, text, "DevExpress/testcafe")
	})

	describes.It("rejects an empty login", func(t *describes.T) {
		ctx := t.Context()
		c, ok := page.Controller(env)
		require.True(t, ok)

		require.NoError(t, c.NavigateTo(ctx, "https://github.com/login"))
		button, err := c.FindElement(ctx, ".btn.btn-primary.btn-block")
		require.NoError(t, err)
		require.NoError(t, c.Click(ctx, button))

		var flash controller.ElementHandle
		require.Eventually(t, func() bool {
			flash, err = c.FindElement(ctx, "#js-flash-container > div > div")
			return err == nil
		}, 10*time.Second, 200*time.Millisecond)
		text, err := c.ElementText(ctx, flash)
		require.NoError(t, err)
		assert.Contains(t, text, "Incorrect username or password.")
	})
})
