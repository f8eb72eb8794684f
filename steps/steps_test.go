package steps

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatool/endtoend/controller"
	"github.com/tomatool/endtoend/describes"
	"github.com/tomatool/endtoend/describes/godoghost"
	"github.com/tomatool/endtoend/fixture/app"
)

type mockStepContext struct {
	steps map[string]interface{}
}

func (m *mockStepContext) Step(expr interface{}, stepFunc interface{}) {
	if m.steps == nil {
		m.steps = make(map[string]interface{})
	}
	m.steps[expr.(string)] = stepFunc
}

type handle string

func (h handle) Selector() string { return string(h) }

type fakeController struct {
	calls  []string
	titles []string
	texts  map[string]string
	err    error
}

func (c *fakeController) NavigateTo(ctx context.Context, url string) error {
	c.calls = append(c.calls, "navigate "+url)
	return c.err
}

func (c *fakeController) FindElement(ctx context.Context, selector string) (controller.ElementHandle, error) {
	if c.err != nil {
		return nil, c.err
	}
	return handle(selector), nil
}

func (c *fakeController) Type(ctx context.Context, el controller.ElementHandle, text string) error {
	target := "<focused>"
	if el != nil {
		target = el.Selector()
	}
	c.calls = append(c.calls, "type "+text+" into "+target)
	return nil
}

func (c *fakeController) Click(ctx context.Context, el controller.ElementHandle) error {
	c.calls = append(c.calls, "click "+el.Selector())
	return nil
}

// Title returns the queued titles one by one, then repeats the last.
func (c *fakeController) Title(ctx context.Context) (string, error) {
	title := c.titles[0]
	if len(c.titles) > 1 {
		c.titles = c.titles[1:]
	}
	return title, nil
}

func (c *fakeController) ElementText(ctx context.Context, el controller.ElementHandle) (string, error) {
	return c.texts[el.Selector()], nil
}

func (c *fakeController) Screenshot(ctx context.Context) ([]byte, error) { return nil, nil }

func (c *fakeController) Quit() error { return nil }

func scenarioContext(t *testing.T, c controller.Controller) context.Context {
	t.Helper()
	env := describes.NewEnv()
	env.Set(describes.ControllerKey, c)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return godoghost.WithEnv(ctx, env)
}

func TestRegister(t *testing.T) {
	sc := &mockStepContext{}
	Register(sc)

	defs := Definitions()
	require.Len(t, sc.steps, len(defs))

	for _, d := range defs {
		assert.NotNil(t, sc.steps[d.Pattern], "pattern %q", d.Pattern)
		matched := 0
		for expr := range sc.steps {
			if regexp.MustCompile(expr).MatchString(d.Example) {
				matched++
			}
		}
		assert.Equal(t, 1, matched, "example %q", d.Example)
	}
}

func TestSearchFlow(t *testing.T) {
	c := &fakeController{
		titles: []string{"GitHub", "Search · TestCafe · GitHub"},
		texts:  map[string]string{".repo-list-item": "DevExpress/testcafe  A Node.js tool"},
	}
	ctx := scenarioContext(t, c)

	require.NoError(t, navigateTo(ctx, "https://github.com"))
	require.NoError(t, typeInto(ctx, "TestCafe", ".header-search-input"))
	require.NoError(t, pressEnter(ctx))
	require.NoError(t, titleShouldMatch(ctx, "TestCafe"))
	require.NoError(t, elementShouldContain(ctx, ".repo-list-item", "DevExpress/testcafe"))

	assert.Equal(t, []string{
		"navigate https://github.com",
		"type TestCafe into .header-search-input",
		"type " + controller.KeyEnter + " into <focused>",
	}, c.calls)
}

func TestNavigateResolvesAppPaths(t *testing.T) {
	c := &fakeController{}
	ctx := scenarioContext(t, c)

	require.NoError(t, navigateTo(ctx, "/login"), "no app: path is used as is")

	env, _ := godoghost.EnvFrom(ctx)
	env.Set(app.BaseURLKey, "http://localhost:3000/")
	require.NoError(t, navigateTo(ctx, "/login"))
	require.NoError(t, navigateTo(ctx, "https://github.com/login"))

	assert.Equal(t, []string{
		"navigate /login",
		"navigate http://localhost:3000/login",
		"navigate https://github.com/login",
	}, c.calls)
}

func TestClick(t *testing.T) {
	c := &fakeController{}
	require.NoError(t, click(scenarioContext(t, c), "#login"))
	assert.Equal(t, []string{"click #login"}, c.calls)
}

func TestAssertionsFail(t *testing.T) {
	orig := pollInterval
	pollInterval = 10 * time.Millisecond
	t.Cleanup(func() { pollInterval = orig })

	c := &fakeController{
		titles: []string{"GitHub"},
		texts:  map[string]string{"#js-flash-container": "Signed in"},
	}
	ctx := scenarioContext(t, c)

	err := titleShouldMatch(ctx, "TestCafe")
	assert.ErrorContains(t, err, `title "GitHub" does not match "TestCafe"`)

	err = elementShouldContain(ctx, "#js-flash-container", "Incorrect username or password.")
	assert.ErrorContains(t, err, "does not contain")

	assert.ErrorContains(t, titleShouldMatch(ctx, "("), "invalid title pattern")
}

func TestControllerErrors(t *testing.T) {
	assert.ErrorContains(t, navigateTo(context.Background(), "about:blank"), "no test environment")

	empty := godoghost.WithEnv(context.Background(), describes.NewEnv())
	assert.ErrorContains(t, pressEnter(empty), "no browser controller")

	c := &fakeController{err: errors.New("node not found")}
	assert.ErrorContains(t, typeInto(scenarioContext(t, c), "x", "#missing"), "node not found")
}
