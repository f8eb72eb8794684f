package controller_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatool/endtoend/controller"
	"github.com/tomatool/endtoend/engine"
)

const page = `<!doctype html>
<html><head><title>Search</title></head>
<body>
<form action="/results">
  <input class="search" name="q" autofocus>
  <button class="go" type="submit">Go</button>
</form>
</body></html>`

// Runs against a local Chrome when ENDTOEND_BROWSER_TESTS is set.
func TestChromedpAgainstBrowser(t *testing.T) {
	if os.Getenv("ENDTOEND_BROWSER_TESTS") == "" {
		t.Skip("set ENDTOEND_BROWSER_TESTS=1 to run browser tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/results" {
			fmt.Fprintf(w, `<html><head><title>Results for %s</title></head><body><p class="result">found %s</p></body></html>`,
				r.URL.Query().Get("q"), r.URL.Query().Get("q"))
			return
		}
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := engine.Create(ctx, engine.Options{Browsers: []string{"chrome"}, Headless: true})
	require.NoError(t, err)
	c := controller.NewChromedp(session)
	defer c.Quit()

	require.NoError(t, c.NavigateTo(ctx, srv.URL))
	title, err := c.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Search", title)

	input, err := c.FindElement(ctx, ".search")
	require.NoError(t, err)
	require.NoError(t, c.Type(ctx, input, "tomato"))
	require.NoError(t, c.Type(ctx, nil, controller.KeyEnter))

	var result controller.ElementHandle
	require.Eventually(t, func() bool {
		result, err = c.FindElement(ctx, ".result")
		return err == nil
	}, 10*time.Second, 100*time.Millisecond)
	text, err := c.ElementText(ctx, result)
	require.NoError(t, err)
	assert.Contains(t, text, "found tomato")

	start := time.Now()
	_, err = c.FindElement(ctx, ".missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such element")
	assert.Less(t, time.Since(start), 5*time.Second, "a miss does not wait for the node")

	shot, err := c.Screenshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, shot)
}
