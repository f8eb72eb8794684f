package command

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/urfave/cli/v2"

	"github.com/tomatool/endtoend/fixture/app"
	"github.com/tomatool/endtoend/internal/config"
	"github.com/tomatool/endtoend/internal/container"
	"github.com/tomatool/endtoend/steps"
)

var checkCommand = &cli.Command{
	Name:  "check",
	Usage: "Check configuration, browser availability and feature files",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   config.DefaultPath,
			Usage:   "config file path",
		},
		&cli.BoolFlag{
			Name:  "plain",
			Usage: "disable colors and interactive UI (for CI)",
		},
	},
	Action: runCheck,
}

// Overridden in tests.
var (
	lookPath        = exec.LookPath
	dockerAvailable = container.CheckDockerAvailable
)

// Binaries tried, in order, when no exec_path is configured.
var browserBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// CheckResult holds the result of a single check
type CheckResult struct {
	Category   string
	Item       string
	Status     string // "ok", "warning", "error"
	Message    string
	Suggestion string
}

// Checker performs all checks
type Checker struct {
	configPath   string
	config       *config.Config
	results      []CheckResult
	stepPatterns []*regexp.Regexp
}

func runCheck(c *cli.Context) error {
	ch := &Checker{configPath: c.String("config")}

	if c.Bool("plain") {
		return ch.runPlain(c.App.Writer)
	}
	return ch.runInteractive()
}

func (ch *Checker) add(category, item, status, message, suggestion string) {
	ch.results = append(ch.results, CheckResult{
		Category:   category,
		Item:       item,
		Status:     status,
		Message:    message,
		Suggestion: suggestion,
	})
}

func (ch *Checker) counts() (ok, warnings, errs int) {
	for _, r := range ch.results {
		switch r.Status {
		case "ok":
			ok++
		case "warning":
			warnings++
		case "error":
			errs++
		}
	}
	return ok, warnings, errs
}

// runPlain runs the checks without the Bubble Tea UI
func (ch *Checker) runPlain(w io.Writer) error {
	fmt.Fprintln(w, "Checking endtoend setup...")
	fmt.Fprintln(w)

	ch.check()

	category := ""
	for _, r := range ch.results {
		if r.Category != category {
			if category != "" {
				fmt.Fprintln(w)
			}
			category = r.Category
			fmt.Fprintf(w, "[%s]\n", category)
		}

		icon := "✓"
		if r.Status == "error" {
			icon = "✗"
		} else if r.Status == "warning" {
			icon = "!"
		}

		fmt.Fprintf(w, "  %s %s", icon, r.Item)
		if r.Message != "" {
			fmt.Fprintf(w, ": %s", r.Message)
		}
		fmt.Fprintln(w)
		if r.Suggestion != "" {
			fmt.Fprintf(w, "    → %s\n", r.Suggestion)
		}
	}
	fmt.Fprintln(w)

	okCount, warningCount, errorCount := ch.counts()
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warningCount, errorCount)

	if errorCount > 0 {
		return fmt.Errorf("check failed with %d error(s)", errorCount)
	}
	return nil
}

// runInteractive runs the checks with the Bubble Tea UI
func (ch *Checker) runInteractive() error {
	p := tea.NewProgram(newCheckModel(ch))
	m, err := p.Run()
	if err != nil {
		return err
	}

	if m.(checkModel).hasErrors {
		return fmt.Errorf("check failed")
	}
	return nil
}

func (ch *Checker) check() {
	for _, d := range steps.Definitions() {
		ch.stepPatterns = append(ch.stepPatterns, regexp.MustCompile(d.Pattern))
	}

	ch.checkConfig()
	ch.checkApp()
	ch.checkBrowser()
	ch.checkFeatures()
}

func (ch *Checker) checkApp() {
	if ch.config == nil || !ch.config.App.Enabled() {
		return
	}
	opts := ch.config.App

	if opts.Mode() == app.ModeContainer {
		if err := dockerAvailable(); err != nil {
			ch.add("App", "docker", "error", "docker is not available", err.Error())
			return
		}
		ch.add("App", "container", "ok", "image: "+opts.Image, "")
		return
	}

	bin, _, _ := strings.Cut(strings.TrimSpace(opts.Command), " ")
	if _, err := lookPath(bin); err != nil {
		ch.add("App", "command", "warning", bin+" not found in PATH",
			"Check app.command, or run endtoend from the app's directory")
		return
	}
	ch.add("App", "command", "ok", opts.Command, "")
}

func (ch *Checker) checkConfig() {
	cfg, err := config.Load(ch.configPath)
	switch {
	case err == nil:
		ch.config = cfg
		ch.add("Config", ch.configPath, "ok", "valid configuration", "")
	case errors.Is(err, fs.ErrNotExist):
		ch.config = config.Default()
		ch.add("Config", ch.configPath, "warning", "config file not found, using defaults",
			"Run 'endtoend init' to create one")
	default:
		ch.add("Config", ch.configPath, "error", err.Error(), "Check the config file syntax and structure")
	}
}

func (ch *Checker) checkBrowser() {
	if ch.config == nil {
		return
	}
	opts := ch.config.EngineOptions()

	switch opts.Mode() {
	case "remote":
		u, err := url.Parse(opts.RemoteURL)
		if err != nil || !map[string]bool{"ws": true, "wss": true, "http": true, "https": true}[u.Scheme] || u.Host == "" {
			ch.add("Browser", opts.RemoteURL, "error", "invalid remote DevTools URL",
				"Use a ws:// or http:// URL such as ws://localhost:9222")
			return
		}
		ch.add("Browser", "remote", "ok", opts.RemoteURL, "")

	case "container":
		if err := dockerAvailable(); err != nil {
			ch.add("Browser", "docker", "error", "docker is not available", err.Error())
			return
		}
		ch.add("Browser", "container", "ok", "image: "+opts.Container.Image, "")

	default:
		candidates := browserBinaries
		if opts.ExecPath != "" {
			candidates = []string{opts.ExecPath}
		}
		for _, bin := range candidates {
			if path, err := lookPath(bin); err == nil {
				ch.add("Browser", "local", "ok", path, "")
				return
			}
		}
		ch.add("Browser", "local", "error", "no Chrome or Chromium binary found",
			"Install Chrome, set browser.exec_path, or enable browser.container")
	}
}

func (ch *Checker) checkFeatures() {
	if ch.config == nil {
		return
	}

	var featureFiles []string
	for _, path := range ch.config.Features.Paths {
		filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() && filepath.Ext(p) == ".feature" {
				featureFiles = append(featureFiles, p)
			}
			return nil
		})
	}

	if len(featureFiles) == 0 {
		ch.add("Features", "(none)", "warning", "no feature files found",
			"Create .feature files in "+strings.Join(ch.config.Features.Paths, ", "))
		return
	}

	for _, file := range featureFiles {
		ch.checkFeatureFile(file)
	}
}

func (ch *Checker) checkFeatureFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		ch.add("Features", filepath.Base(path), "error", fmt.Sprintf("cannot read file: %v", err), "")
		return
	}

	doc, err := gherkin.ParseGherkinDocument(strings.NewReader(string(content)), (&messages.Incrementing{}).NewId)
	if err != nil {
		ch.add("Features", filepath.Base(path), "error", fmt.Sprintf("parse error: %v", err),
			"Check Gherkin syntax: https://cucumber.io/docs/gherkin/reference/")
		return
	}
	if doc.Feature == nil {
		ch.add("Features", filepath.Base(path), "error", "no Feature found in file",
			"Add 'Feature: <name>' at the top of the file")
		return
	}

	scenarioCount := 0
	var undefinedSteps []string
	collect := func(stepList []*messages.Step) {
		for _, step := range stepList {
			if !ch.isStepDefined(step.Text) {
				undefinedSteps = append(undefinedSteps, step.Text)
			}
		}
	}
	for _, child := range doc.Feature.Children {
		if child.Background != nil {
			collect(child.Background.Steps)
		}
		if child.Scenario != nil {
			scenarioCount++
			collect(child.Scenario.Steps)
		}
	}

	if len(undefinedSteps) > 0 {
		shown := undefinedSteps
		if len(shown) > 3 {
			shown = shown[:3]
		}
		ch.add("Features", filepath.Base(path), "warning",
			fmt.Sprintf("%d undefined step(s): %s", len(undefinedSteps), strings.Join(shown, ", ")),
			"Run 'endtoend steps' to see available steps")
		return
	}
	ch.add("Features", filepath.Base(path), "ok", fmt.Sprintf("%d scenario(s)", scenarioCount), "")
}

func (ch *Checker) isStepDefined(text string) bool {
	for _, pattern := range ch.stepPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// Bubble Tea Model
type checkModel struct {
	checker   *Checker
	spinner   spinner.Model
	done      bool
	hasErrors bool
}

func newCheckModel(ch *Checker) checkModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return checkModel{
		checker: ch,
		spinner: s,
	}
}

type checkDoneMsg struct{}

func (m checkModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			m.checker.check()
			return checkDoneMsg{}
		},
	)
}

func (m checkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case checkDoneMsg:
		m.done = true
		_, _, errs := m.checker.counts()
		m.hasErrors = errs > 0
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m checkModel) View() string {
	var s strings.Builder

	s.WriteString("\n")
	s.WriteString(titleStyle.Render("endtoend check"))
	s.WriteString("\n\n")

	if !m.done {
		s.WriteString(m.spinner.View())
		s.WriteString(" Checking setup...")
		return s.String()
	}

	category := ""
	for _, r := range m.checker.results {
		if r.Category != category {
			if category != "" {
				s.WriteString("\n")
			}
			category = r.Category
			s.WriteString(categoryStyle.Render(category))
			s.WriteString("\n")
		}

		var icon string
		switch r.Status {
		case "ok":
			icon = okStyle.Render("✓")
		case "warning":
			icon = warnStyle.Render("!")
		case "error":
			icon = errStyle.Render("✗")
		}

		s.WriteString(fmt.Sprintf("  %s %s", icon, r.Item))
		if r.Message != "" {
			s.WriteString(fmt.Sprintf(": %s", r.Message))
		}
		s.WriteString("\n")
		if r.Suggestion != "" {
			s.WriteString(fmt.Sprintf("    %s\n", suggestionStyle.Render("→ "+r.Suggestion)))
		}
	}
	s.WriteString("\n")

	okCount, warningCount, errorCount := m.checker.counts()
	summaryParts := []string{okStyle.Render(fmt.Sprintf("%d passed", okCount))}
	if warningCount > 0 {
		summaryParts = append(summaryParts, warnStyle.Render(fmt.Sprintf("%d warnings", warningCount)))
	}
	if errorCount > 0 {
		summaryParts = append(summaryParts, errStyle.Render(fmt.Sprintf("%d errors", errorCount)))
	}
	s.WriteString(fmt.Sprintf("Summary: %s\n", strings.Join(summaryParts, ", ")))

	switch {
	case m.hasErrors:
		s.WriteString(errStyle.Render("\n✗ Check failed\n"))
	case warningCount > 0:
		s.WriteString(warnStyle.Render("\n! Check passed with warnings\n"))
	default:
		s.WriteString(okStyle.Render("\n✓ Ready to run\n"))
	}

	return s.String()
}
