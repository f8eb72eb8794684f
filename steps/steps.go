// Package steps holds the godog step definitions that drive the browser of
// the running scenario.
package steps

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tomatool/endtoend/controller"
	"github.com/tomatool/endtoend/describes/godoghost"
	"github.com/tomatool/endtoend/fixture/app"
	"github.com/tomatool/endtoend/fixture/page"
)

// StepContext abstracts godog.ScenarioContext for testing
type StepContext interface {
	Step(expr interface{}, stepFunc interface{})
}

// pollInterval is how often assertions re-read the page while it settles.
var pollInterval = 100 * time.Millisecond

// Definition describes one step sentence.
type Definition struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
	Example     string `json:"example"`

	fn interface{}
}

var definitions = []Definition{
	{`^I navigate to "([^"]*)"$`, "Open a URL, or a path on the app under test", `I navigate to "https://github.com"`, navigateTo},
	{`^I type "([^"]*)" into "([^"]*)"$`, "Type text into the element matching a CSS selector", `I type "TestCafe" into ".header-search-input"`, typeInto},
	{`^I press enter$`, "Press Enter on the focused element", `I press enter`, pressEnter},
	{`^I click "([^"]*)"$`, "Click the element matching a CSS selector", `I click ".btn.btn-primary.btn-block"`, click},
	{`^the title should match "([^"]*)"$`, "Wait until the page title matches a regular expression", `the title should match "TestCafe"`, titleShouldMatch},
	{`^the element "([^"]*)" should contain "([^"]*)"$`, "Wait until an element's text contains a string", `the element ".repo-list-item" should contain "DevExpress/testcafe"`, elementShouldContain},
}

// Definitions lists the browser steps in registration order.
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// Register adds the browser steps to a scenario.
func Register(sc StepContext) {
	for _, d := range definitions {
		sc.Step(d.Pattern, d.fn)
	}
}

func controllerFrom(ctx context.Context) (controller.Controller, error) {
	env, ok := godoghost.EnvFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("no test environment in scenario context")
	}
	c, ok := page.Controller(env)
	if !ok {
		return nil, fmt.Errorf("no browser controller in the test environment")
	}
	return c, nil
}

func navigateTo(ctx context.Context, url string) error {
	c, err := controllerFrom(ctx)
	if err != nil {
		return err
	}
	return c.NavigateTo(ctx, resolveURL(ctx, url))
}

// resolveURL prefixes paths with the base URL of the app under test.
func resolveURL(ctx context.Context, url string) string {
	if !strings.HasPrefix(url, "/") {
		return url
	}
	env, ok := godoghost.EnvFrom(ctx)
	if !ok {
		return url
	}
	base, ok := app.BaseURL(env)
	if !ok {
		return url
	}
	return strings.TrimRight(base, "/") + url
}

func typeInto(ctx context.Context, text, selector string) error {
	c, err := controllerFrom(ctx)
	if err != nil {
		return err
	}
	el, err := c.FindElement(ctx, selector)
	if err != nil {
		return err
	}
	return c.Type(ctx, el, text)
}

func pressEnter(ctx context.Context) error {
	c, err := controllerFrom(ctx)
	if err != nil {
		return err
	}
	return c.Type(ctx, nil, controller.KeyEnter)
}

func click(ctx context.Context, selector string) error {
	c, err := controllerFrom(ctx)
	if err != nil {
		return err
	}
	el, err := c.FindElement(ctx, selector)
	if err != nil {
		return err
	}
	return c.Click(ctx, el)
}

func titleShouldMatch(ctx context.Context, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid title pattern: %w", err)
	}
	c, err := controllerFrom(ctx)
	if err != nil {
		return err
	}
	return eventually(ctx, func() error {
		title, err := c.Title(ctx)
		if err != nil {
			return err
		}
		if !re.MatchString(title) {
			return fmt.Errorf("title %q does not match %q", title, pattern)
		}
		return nil
	})
}

func elementShouldContain(ctx context.Context, selector, text string) error {
	c, err := controllerFrom(ctx)
	if err != nil {
		return err
	}
	return eventually(ctx, func() error {
		el, err := c.FindElement(ctx, selector)
		if err != nil {
			return err
		}
		got, err := c.ElementText(ctx, el)
		if err != nil {
			return err
		}
		if !strings.Contains(got, text) {
			return fmt.Errorf("element %q text %q does not contain %q", selector, got, text)
		}
		return nil
	})
}

// eventually retries check until it passes or ctx is done, returning the
// last failure.
func eventually(ctx context.Context, check func() error) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		err := check()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-ticker.C:
		}
	}
}
