package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Test helper to create temp config files
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "endtoend.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantErr     bool
		errContains string
		validate    func(*testing.T, *Config)
	}{
		{
			name: "minimal valid config",
			content: `
version: 1
`,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Version != 1 {
					t.Errorf("expected version 1, got %d", cfg.Version)
				}
				if !*cfg.Browser.Headless {
					t.Errorf("expected headless by default")
				}
			},
		},
		{
			name: "full config with all sections",
			content: `
version: 1
browser:
  browsers: [chromium, chrome]
  headless: false
  window: 1920x1080
  exec_path: /usr/bin/chromium
  container:
    enabled: true
    image: chromedp/headless-shell:126.0
    port: "9333/tcp"
    startup_timeout: 2m
settings:
  fail_fast: true
  output: junit
  teardown_on_setup_failure: true
  artifacts: ./out
features:
  paths:
    - ./features
    - ./smoke
  tags: "@smoke"
`,
			validate: func(t *testing.T, cfg *Config) {
				if len(cfg.Browser.Browsers) != 2 || cfg.Browser.Browsers[0] != "chromium" {
					t.Errorf("unexpected browsers %v", cfg.Browser.Browsers)
				}
				if *cfg.Browser.Headless {
					t.Errorf("explicit headless: false should be kept")
				}
				if cfg.Browser.Container.StartupTimeout != 2*time.Minute {
					t.Errorf("expected startup timeout 2m, got %v", cfg.Browser.Container.StartupTimeout)
				}
				if !cfg.Settings.FailFast || !cfg.Settings.TeardownOnSetupFailure {
					t.Errorf("expected fail_fast and teardown_on_setup_failure, got %+v", cfg.Settings)
				}
				if cfg.Settings.Output != "junit" {
					t.Errorf("expected output junit, got %s", cfg.Settings.Output)
				}
				if cfg.Settings.Artifacts != "./out" {
					t.Errorf("expected artifacts ./out, got %s", cfg.Settings.Artifacts)
				}
				if len(cfg.Features.Paths) != 2 {
					t.Errorf("expected 2 feature paths, got %d", len(cfg.Features.Paths))
				}
				if cfg.Features.Tags != "@smoke" {
					t.Errorf("expected tags @smoke, got %s", cfg.Features.Tags)
				}
			},
		},
		{
			name: "app section",
			content: `
app:
  command: npm start
  workdir: ./web
  port: 3000
  env:
    NODE_ENV: test
  ready:
    type: http
    path: /healthz
    timeout: 45s
  wait: 500ms
`,
			validate: func(t *testing.T, cfg *Config) {
				if !cfg.App.Enabled() {
					t.Fatal("expected app to be enabled")
				}
				if cfg.App.Port != 3000 || cfg.App.WorkDir != "./web" {
					t.Errorf("unexpected app %+v", cfg.App)
				}
				if cfg.App.Ready == nil || cfg.App.Ready.Path != "/healthz" || cfg.App.Ready.Timeout != 45*time.Second {
					t.Errorf("unexpected ready %+v", cfg.App.Ready)
				}
				if cfg.App.Wait != 500*time.Millisecond {
					t.Errorf("expected wait 500ms, got %v", cfg.App.Wait)
				}
				if cfg.AppOptions().ArtifactDir != cfg.Settings.Artifacts {
					t.Errorf("expected app artifacts in %s, got %s", cfg.Settings.Artifacts, cfg.AppOptions().ArtifactDir)
				}
			},
		},
		{
			name: "app ready without port",
			content: `
app:
  command: npm start
  ready:
    type: http
`,
			wantErr:     true,
			errContains: "requires app.port",
		},
		{
			name: "app exec ready needs an image",
			content: `
app:
  command: npm start
  ready:
    type: exec
    command: test -f /tmp/ready
`,
			wantErr:     true,
			errContains: "requires app.image",
		},
		{
			name: "app unknown ready type",
			content: `
app:
  image: nginx:alpine
  port: 80
  ready:
    type: grpc
`,
			wantErr:     true,
			errContains: "invalid app.ready.type",
		},
		{
			name:        "invalid yaml",
			content:     "version: [1",
			wantErr:     true,
			errContains: "parsing config",
		},
		{
			name:        "unsupported version",
			content:     "version: 2",
			wantErr:     true,
			errContains: "unsupported config version",
		},
		{
			name: "unsupported browser",
			content: `
browser:
  browsers: [firefox]
`,
			wantErr:     true,
			errContains: "unsupported browser",
		},
		{
			name: "invalid window",
			content: `
browser:
  window: wide
`,
			wantErr:     true,
			errContains: "invalid window size",
		},
		{
			name: "remote and container",
			content: `
browser:
  remote_url: ws://localhost:9222
  container:
    enabled: true
`,
			wantErr:     true,
			errContains: "mutually exclusive",
		},
		{
			name: "invalid output",
			content: `
settings:
  output: html
`,
			wantErr:     true,
			errContains: "invalid output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempConfig(t, tt.content)
			cfg, err := Load(path)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errContains)
				} else if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/endtoend.yml")
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("expected 'reading config' error, got %v", err)
	}
}

func TestLoadWithEnvVarExpansion(t *testing.T) {
	t.Setenv("ENDTOEND_TEST_REMOTE", "ws://chrome:9222")

	path := createTempConfig(t, `
version: 1
browser:
  remote_url: ${ENDTOEND_TEST_REMOTE}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Browser.RemoteURL != "ws://chrome:9222" {
		t.Errorf("expected env var expansion, got %s", cfg.Browser.RemoteURL)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Version != 1 {
		t.Errorf("expected default version 1, got %d", cfg.Version)
	}
	if len(cfg.Browser.Browsers) != 1 || cfg.Browser.Browsers[0] != "chrome" {
		t.Errorf("expected default browser chrome, got %v", cfg.Browser.Browsers)
	}
	if cfg.Browser.Window != "1280x800" {
		t.Errorf("expected default window 1280x800, got %s", cfg.Browser.Window)
	}
	if cfg.Browser.Container.Image != "chromedp/headless-shell:latest" {
		t.Errorf("expected default image, got %s", cfg.Browser.Container.Image)
	}
	if cfg.Browser.Container.Port != "9222/tcp" {
		t.Errorf("expected default port 9222/tcp, got %s", cfg.Browser.Container.Port)
	}
	if cfg.Browser.Container.StartupTimeout != 60*time.Second {
		t.Errorf("expected default startup timeout 60s, got %v", cfg.Browser.Container.StartupTimeout)
	}
	if cfg.Settings.Output != "pretty" {
		t.Errorf("expected default output pretty, got %s", cfg.Settings.Output)
	}
	if cfg.Settings.Artifacts != ".endtoend/runs" {
		t.Errorf("expected default artifacts dir, got %s", cfg.Settings.Artifacts)
	}
	if len(cfg.Features.Paths) != 1 || cfg.Features.Paths[0] != "./features" {
		t.Errorf("expected default features path ./features, got %v", cfg.Features.Paths)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{in: "1280x800", w: 1280, h: 800},
		{in: "1920X1080", w: 1920, h: 1080},
		{in: "1024 x 768", w: 1024, h: 768},
		{in: "1280", wantErr: true},
		{in: "0x800", wantErr: true},
		{in: "axb", wantErr: true},
	}

	for _, tt := range tests {
		w, h, err := ParseWindow(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseWindow(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || w != tt.w || h != tt.h {
			t.Errorf("ParseWindow(%q) = %d, %d, %v; want %d, %d", tt.in, w, h, err, tt.w, tt.h)
		}
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.EngineOptions()

	if !opts.Headless || opts.WindowWidth != 1280 || opts.WindowHeight != 800 {
		t.Errorf("unexpected engine options %+v", opts)
	}
	if opts.Container != nil {
		t.Errorf("container should be nil unless enabled")
	}
	if opts.Mode() != "local" {
		t.Errorf("expected local mode, got %s", opts.Mode())
	}

	cfg.Browser.Container.Enabled = true
	opts = cfg.EngineOptions()
	if opts.Container == nil || opts.Container.Image != "chromedp/headless-shell:latest" {
		t.Fatalf("expected container options, got %+v", opts.Container)
	}
	if opts.Mode() != "container" {
		t.Errorf("expected container mode, got %s", opts.Mode())
	}
}
