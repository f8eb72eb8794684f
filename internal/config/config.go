package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomatool/endtoend/engine"
	"github.com/tomatool/endtoend/fixture/app"
	"github.com/tomatool/endtoend/internal/container"
	"github.com/tomatool/endtoend/internal/runlog"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "endtoend.yml"

// Config represents the endtoend.yml configuration
type Config struct {
	Version  int         `yaml:"version"`
	App      app.Options `yaml:"app"`
	Browser  Browser     `yaml:"browser"`
	Settings Settings    `yaml:"settings"`
	Features Features    `yaml:"features"`
}

// Browser defines how browser sessions are obtained
type Browser struct {
	// Browsers in order of preference
	Browsers []string `yaml:"browsers"`
	// Headless is a pointer so an explicit false survives defaults
	Headless *bool `yaml:"headless,omitempty"`
	// Connect to a running browser instead of launching one
	RemoteURL string `yaml:"remote_url,omitempty"`
	// Window size as WIDTHxHEIGHT
	Window string `yaml:"window,omitempty"`
	// Local browser binary
	ExecPath  string           `yaml:"exec_path,omitempty"`
	Container BrowserContainer `yaml:"container"`
}

type BrowserContainer struct {
	Enabled        bool              `yaml:"enabled"`
	Image          string            `yaml:"image"`
	Port           string            `yaml:"port"`
	Env            map[string]string `yaml:"env,omitempty"`
	StartupTimeout time.Duration     `yaml:"startup_timeout"`
}

type Settings struct {
	FailFast bool   `yaml:"fail_fast"`
	Output   string `yaml:"output"`
	// Tear down the fixtures that did set up when a later one fails
	TeardownOnSetupFailure bool `yaml:"teardown_on_setup_failure"`
	// Base directory for run artifacts such as failure screenshots
	Artifacts string `yaml:"artifacts"`
}

type Features struct {
	Paths []string `yaml:"paths"`
	Tags  string   `yaml:"tags"`
}

// Load reads and parses the endtoend.yml configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file exists
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if len(c.Browser.Browsers) == 0 {
		c.Browser.Browsers = []string{engine.DefaultBrowser}
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
	if c.Browser.Window == "" {
		c.Browser.Window = "1280x800"
	}
	if c.Browser.Container.Image == "" {
		c.Browser.Container.Image = container.DefaultImage
	}
	if c.Browser.Container.Port == "" {
		c.Browser.Container.Port = container.DefaultPort
	}
	if c.Browser.Container.StartupTimeout == 0 {
		c.Browser.Container.StartupTimeout = container.DefaultStartupTimeout
	}
	if c.Settings.Output == "" {
		c.Settings.Output = "pretty"
	}
	if c.Settings.Artifacts == "" {
		c.Settings.Artifacts = runlog.DefaultBaseDir
	}
	if len(c.Features.Paths) == 0 {
		c.Features.Paths = []string{"./features"}
	}
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}

	if _, err := engine.SelectBrowser(c.Browser.Browsers); err != nil {
		return err
	}

	if _, _, err := ParseWindow(c.Browser.Window); err != nil {
		return err
	}

	if c.Browser.RemoteURL != "" && c.Browser.Container.Enabled {
		return fmt.Errorf("browser.remote_url and browser.container.enabled are mutually exclusive")
	}

	if r := c.App.Ready; r != nil {
		switch r.Type {
		case "", "http", "tcp":
		case "exec":
			if c.App.Mode() != app.ModeContainer {
				return fmt.Errorf("app.ready.type exec requires app.image")
			}
		default:
			return fmt.Errorf("invalid app.ready.type: %s", r.Type)
		}
		if r.Type != "exec" && c.App.Port == 0 {
			return fmt.Errorf("app.ready requires app.port")
		}
	}

	validOutputs := map[string]bool{"pretty": true, "progress": true, "junit": true, "cucumber": true, "events": true}
	if !validOutputs[c.Settings.Output] {
		return fmt.Errorf("invalid output format: %s", c.Settings.Output)
	}

	return nil
}

// ParseWindow parses a WIDTHxHEIGHT window size
func ParseWindow(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid window size %q (expected WIDTHxHEIGHT)", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid window width in %q", s)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid window height in %q", s)
	}
	return width, height, nil
}

// EngineOptions converts the browser section into engine options
func (c *Config) EngineOptions() engine.Options {
	width, height, _ := ParseWindow(c.Browser.Window)
	opts := engine.Options{
		Browsers:     c.Browser.Browsers,
		Headless:     c.Browser.Headless == nil || *c.Browser.Headless,
		RemoteURL:    c.Browser.RemoteURL,
		ExecPath:     c.Browser.ExecPath,
		WindowWidth:  width,
		WindowHeight: height,
	}
	if c.Browser.Container.Enabled {
		opts.Container = &engine.ContainerOptions{
			Image:          c.Browser.Container.Image,
			Port:           c.Browser.Container.Port,
			Env:            c.Browser.Container.Env,
			StartupTimeout: c.Browser.Container.StartupTimeout,
		}
	}
	return opts
}

// AppOptions returns the app fixture settings, with artifacts next to the
// browser's.
func (c *Config) AppOptions() app.Options {
	opts := c.App
	opts.ArtifactDir = c.Settings.Artifacts
	return opts
}
