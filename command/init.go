package command

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/tomatool/endtoend/internal/config"
)

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "Create an endtoend.yml and an example feature",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite existing files",
		},
		&cli.BoolFlag{
			Name:  "container",
			Usage: "run the browser in a container instead of a local Chrome",
		},
	},
	Action: runInit,
}

func runInit(c *cli.Context) error {
	files := []struct {
		path    string
		content string
	}{
		{config.DefaultPath, generateConfig(c.Bool("container"))},
		{filepath.Join("features", "search.feature"), exampleFeature},
	}

	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil && !c.Bool("force") {
			fmt.Fprintln(c.App.Writer, warnStyle.Render("! "+f.path+" already exists, skipping (use --force to overwrite)"))
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.path, err)
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
		fmt.Fprintln(c.App.Writer, okStyle.Render("✓ created "+f.path))
	}

	fmt.Fprintln(c.App.Writer, suggestionStyle.Render("\nNext: endtoend check, then endtoend run"))
	return nil
}

func generateConfig(inContainer bool) string {
	return fmt.Sprintf(`version: 1

# Start the app under test before every scenario; "/path" steps resolve against it.
# app:
#   command: npm start
#   port: 3000
#   ready:
#     type: http
#     path: /health

browser:
  browsers: [chrome]
  headless: true
  window: 1280x800
  # remote_url: ws://localhost:9222
  container:
    enabled: %t
    image: chromedp/headless-shell:latest
    port: "9222/tcp"
    startup_timeout: 60s

settings:
  fail_fast: false
  output: pretty
  teardown_on_setup_failure: false
  artifacts: .endtoend/runs

features:
  paths:
    - ./features
  tags: ""
`, inContainer)
}

const exampleFeature = `Feature: GitHub search

  Scenario: Search for TestCafe
    Given I navigate to "https://github.com"
    When I type "TestCafe" into ".header-search-input"
    And I press enter
    Then the title should match "TestCafe"
    And the element ".repo-list-item" should contain "DevExpress/testcafe"
`
