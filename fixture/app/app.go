// Package app provides the application fixture: it starts the web app under
// test before the browser and publishes its base URL under the "baseURL" key.
package app

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tomatool/endtoend/describes"
	"github.com/tomatool/endtoend/internal/runlog"
)

// BaseURLKey is the Env key holding the app's base URL.
const BaseURLKey = "baseURL"

// Mode determines how the app is run
type Mode string

const (
	ModeCommand   Mode = "command"   // local process
	ModeContainer Mode = "container" // docker container
)

const (
	defaultReadyTimeout = 30 * time.Second
	defaultReadyPath    = "/health"
	stopTimeout         = 5 * time.Second
	maxLogLines         = 100
)

// Ready configures how the fixture decides the app accepts traffic.
type Ready struct {
	Type    string        `yaml:"type"` // http, tcp or exec
	Path    string        `yaml:"path"`
	Status  int           `yaml:"status"`
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// Options configures the app fixture.
type Options struct {
	Command string            `yaml:"command"`
	WorkDir string            `yaml:"workdir"`
	Image   string            `yaml:"image"`
	Port    int               `yaml:"port"`
	Env     map[string]string `yaml:"env"`
	Ready   *Ready            `yaml:"ready"`
	Wait    time.Duration     `yaml:"wait"`

	// ArtifactDir receives the app log of every failed test. Empty disables it.
	ArtifactDir string `yaml:"-"`
}

// Enabled reports whether there is an app to start.
func (o Options) Enabled() bool {
	return o.Command != "" || o.Image != ""
}

// Mode reports how the app will be started.
func (o Options) Mode() Mode {
	if o.Image != "" {
		return ModeContainer
	}
	return ModeCommand
}

// App is the app fixture. At most one instance of the app runs at a time.
type App struct {
	opts Options

	cmd       *exec.Cmd
	exited    chan error
	container testcontainers.Container
	host      string
	port      int

	logs *logBuffer
}

// New creates the fixture.
func New(opts Options) *App {
	return &App{opts: opts}
}

func (a *App) Name() string {
	return "app"
}

// IsOn reports whether a command or image is configured.
func (a *App) IsOn() bool {
	return a.opts.Enabled()
}

// Setup starts the app and waits until it is ready. An instance left running
// by an attempt whose later setup failed is stopped first.
func (a *App) Setup(ctx context.Context, env *describes.Env) error {
	if err := a.stop(); err != nil {
		log.Warn().Err(err).Msg("stopping previous app instance")
	}
	a.logs = &logBuffer{}

	var err error
	switch a.opts.Mode() {
	case ModeContainer:
		err = a.startContainer(ctx)
	default:
		err = a.startCommand(ctx)
	}
	if err != nil {
		return err
	}

	if a.opts.Wait > 0 {
		select {
		case <-time.After(a.opts.Wait):
		case <-ctx.Done():
			if err := a.stop(); err != nil {
				log.Warn().Err(err).Msg("stopping app after cancelled wait")
			}
			return ctx.Err()
		}
	}

	if a.port > 0 {
		env.Set(BaseURLKey, a.BaseURL())
	}
	return nil
}

// Teardown stops the app.
func (a *App) Teardown(ctx context.Context, env *describes.Env) error {
	return a.stop()
}

// HandleFailure saves the recent app output next to the failure screenshot.
func (a *App) HandleFailure(ctx context.Context, env *describes.Env, cause error) {
	if a.opts.ArtifactDir == "" || a.logs == nil {
		return
	}
	lines := a.logs.Recent(maxLogLines)
	if len(lines) == 0 {
		return
	}
	run, err := runlog.Shared(a.opts.ArtifactDir)
	if err != nil {
		log.Warn().Err(err).Msg("creating artifact directory")
		return
	}
	path, err := run.WriteArtifact("app-"+env.TestID(), "log", []byte(strings.Join(lines, "\n")+"\n"))
	if err != nil {
		log.Warn().Err(err).Msg("saving app log")
		return
	}
	log.Info().Str("test", env.TestID()).Str("path", path).Msg("app log saved")
}

// BaseURL returns the URL the browser should use to reach the app.
func (a *App) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", a.host, a.port)
}

// RecentLogs returns up to n of the last output lines of the app.
func (a *App) RecentLogs(n int) []string {
	if a.logs == nil {
		return nil
	}
	return a.logs.Recent(n)
}

// BaseURL returns the base URL published by the fixture.
func BaseURL(env *describes.Env) (string, bool) {
	return describes.Lookup[string](env, BaseURLKey)
}

func (a *App) startCommand(ctx context.Context) error {
	cmd := exec.Command("sh", "-c", a.opts.Command)
	cmd.Dir = a.opts.WorkDir
	cmd.Env = os.Environ()
	for k, v := range a.opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdout = a.logs
	cmd.Stderr = a.logs
	cmd.WaitDelay = stopTimeout
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	log.Debug().Str("command", a.opts.Command).Msg("starting app process")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting app: %w", err)
	}
	a.cmd = cmd
	a.exited = make(chan error, 1)
	go func() {
		a.exited <- cmd.Wait()
	}()

	a.host = "localhost"
	a.port = a.opts.Port

	if err := a.waitForReady(ctx); err != nil {
		a.stop()
		return fmt.Errorf("app not ready: %w", err)
	}

	log.Debug().
		Str("command", a.opts.Command).
		Int("pid", cmd.Process.Pid).
		Int("port", a.port).
		Msg("app process ready")
	return nil
}

// waitForReady polls the app until it answers or the ready timeout passes.
func (a *App) waitForReady(ctx context.Context) error {
	if a.opts.Ready == nil && a.port == 0 {
		return nil
	}

	timeout := defaultReadyTimeout
	if a.opts.Ready != nil && a.opts.Ready.Timeout > 0 {
		timeout = a.opts.Ready.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-a.exited:
			a.exited <- err
			return fmt.Errorf("app exited before becoming ready: %v", err)
		default:
		}

		if a.probe(ctx) == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for app to be ready after %s", timeout)
		case <-ticker.C:
		}
	}
}

func (a *App) probe(ctx context.Context) error {
	ready := a.opts.Ready
	if ready != nil && ready.Type == "http" {
		path := ready.Path
		if path == "" {
			path = defaultReadyPath
		}
		status := ready.Status
		if status == 0 {
			status = http.StatusOK
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL()+path, nil)
		if err != nil {
			return err
		}
		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != status {
			return fmt.Errorf("health check returned status %d, expected %d", resp.StatusCode, status)
		}
		return nil
	}

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", a.host, a.port), 2*time.Second)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (a *App) startContainer(ctx context.Context) error {
	req := testcontainers.ContainerRequest{
		Image:      a.opts.Image,
		Env:        a.opts.Env,
		WaitingFor: a.waitStrategy(),
	}
	req.LogConsumerCfg = &testcontainers.LogConsumerConfig{
		Consumers: []testcontainers.LogConsumer{a.logs},
	}
	if a.opts.Port > 0 {
		req.ExposedPorts = []string{fmt.Sprintf("%d/tcp", a.opts.Port)}
	}

	start := time.Now()
	log.Debug().Str("image", a.opts.Image).Msg("starting app container")
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		// The container may exist even though it never became ready.
		if termErr := testcontainers.TerminateContainer(c); termErr != nil {
			log.Warn().Err(termErr).Msg("failed to remove app container")
		}
		return fmt.Errorf("starting app container: %w", err)
	}
	a.container = c

	if a.opts.Port > 0 {
		host, err := c.Host(ctx)
		if err != nil {
			a.stop()
			return fmt.Errorf("getting app host: %w", err)
		}
		mapped, err := c.MappedPort(ctx, nat.Port(fmt.Sprintf("%d/tcp", a.opts.Port)))
		if err != nil {
			a.stop()
			return fmt.Errorf("getting mapped port: %w", err)
		}
		a.host, a.port = host, mapped.Int()
	}

	log.Debug().
		Str("image", a.opts.Image).
		Str("host", a.host).
		Int("port", a.port).
		Dur("duration", time.Since(start)).
		Msg("app container ready")
	return nil
}

// waitStrategy translates the ready settings to a testcontainers strategy.
func (a *App) waitStrategy() wait.Strategy {
	port := nat.Port(fmt.Sprintf("%d/tcp", a.opts.Port))
	ready := a.opts.Ready
	if ready == nil {
		if a.opts.Port > 0 {
			return wait.ForListeningPort(port).WithStartupTimeout(defaultReadyTimeout)
		}
		return nil
	}

	timeout := ready.Timeout
	if timeout == 0 {
		timeout = defaultReadyTimeout
	}

	switch ready.Type {
	case "http":
		path := ready.Path
		if path == "" {
			path = defaultReadyPath
		}
		status := ready.Status
		if status == 0 {
			status = http.StatusOK
		}
		return wait.ForHTTP(path).
			WithPort(port).
			WithStatusCodeMatcher(func(got int) bool { return got == status }).
			WithStartupTimeout(timeout)
	case "exec":
		return wait.ForExec([]string{"sh", "-c", ready.Command}).WithStartupTimeout(timeout)
	default:
		return wait.ForListeningPort(port).WithStartupTimeout(timeout)
	}
}

func (a *App) stop() error {
	defer func() {
		a.host, a.port = "", 0
	}()

	if a.container != nil {
		c := a.container
		a.container = nil
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		log.Debug().Msg("stopping app container")
		if err := c.Terminate(ctx); err != nil {
			return fmt.Errorf("terminating app container: %w", err)
		}
		return nil
	}

	if a.cmd == nil {
		return nil
	}
	cmd := a.cmd
	a.cmd = nil
	pid := cmd.Process.Pid

	log.Debug().Int("pid", pid).Msg("stopping app process")
	// The negative pid signals the whole process group started for the app.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		log.Debug().Err(err).Msg("failed to send SIGTERM, trying SIGKILL")
	}

	select {
	case <-a.exited:
	case <-time.After(stopTimeout):
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			return fmt.Errorf("killing app process: %w", err)
		}
		<-a.exited
	}
	return nil
}

// logBuffer keeps the last output lines of the app. It serves both as the
// process stdout/stderr and as a testcontainers log consumer.
type logBuffer struct {
	mu      sync.Mutex
	lines   []string
	partial []byte
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := append(b.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		b.add(string(data[:i]))
		data = data[i+1:]
	}
	b.partial = append([]byte(nil), data...)
	return len(p), nil
}

func (b *logBuffer) Accept(l testcontainers.Log) {
	_, _ = b.Write(l.Content)
}

func (b *logBuffer) add(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	log.Trace().Str("source", "app").Msg(line)
	b.lines = append(b.lines, line)
	if len(b.lines) > maxLogLines {
		b.lines = b.lines[1:]
	}
}

// Recent returns up to n of the last lines.
func (b *logBuffer) Recent(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || len(b.lines) == 0 {
		return nil
	}
	start := max(len(b.lines)-n, 0)
	return append([]string(nil), b.lines[start:]...)
}
