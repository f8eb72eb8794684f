package container

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultImage          = "chromedp/headless-shell:latest"
	DefaultPort           = "9222/tcp"
	DefaultStartupTimeout = 60 * time.Second
)

// CheckDockerAvailable verifies that Docker daemon is running and accessible
func CheckDockerAvailable() error {
	cmd := exec.Command("docker", "info")
	if err := cmd.Run(); err != nil {
		return &DockerNotRunningError{}
	}
	return nil
}

// DockerNotRunningError provides helpful instructions for starting Docker
type DockerNotRunningError struct{}

func (e *DockerNotRunningError) Error() string {
	switch runtime.GOOS {
	case "darwin":
		return `Docker is not running. To fix this:

  1. Open Docker Desktop application
  2. Wait for Docker to start (whale icon in menu bar stops animating)
  3. Run endtoend again

  Or run the browser locally by setting browser.container.enabled: false`

	case "linux":
		return `Docker is not running. To fix this:

  1. Start Docker daemon:
       sudo systemctl start docker

  2. Make sure your user is in the docker group:
       sudo usermod -aG docker $USER
       (log out and back in after this)

  3. Run endtoend again`

	default:
		return `Docker is not running. Please start Docker and try again, or set browser.container.enabled: false.`
	}
}

// Config describes the browser container started for a session.
type Config struct {
	Image          string
	Port           string
	Env            map[string]string
	StartupTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.StartupTimeout == 0 {
		c.StartupTimeout = DefaultStartupTimeout
	}
	return c
}

func (c Config) request(name string) testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Name:         name,
		Image:        c.Image,
		Env:          c.Env,
		ExposedPorts: []string{c.Port},
		WaitingFor:   wait.ForListeningPort(nat.Port(c.Port)).WithStartupTimeout(c.StartupTimeout),
	}
}

// endpoint is the part of testcontainers.Container a Browser needs.
type endpoint interface {
	Host(ctx context.Context) (string, error)
	MappedPort(ctx context.Context, port nat.Port) (nat.Port, error)
	Terminate(ctx context.Context, opts ...testcontainers.TerminateOption) error
}

var startContainer = func(ctx context.Context, req testcontainers.GenericContainerRequest) (endpoint, error) {
	c, err := testcontainers.GenericContainer(ctx, req)
	if c == nil {
		return nil, err
	}
	return c, err
}

// Browser is a running headless browser container exposing the DevTools protocol.
type Browser struct {
	name string
	port nat.Port
	c    endpoint
}

// StartBrowser starts a fresh browser container and waits for its DevTools port.
func StartBrowser(ctx context.Context, cfg Config) (*Browser, error) {
	cfg = cfg.withDefaults()
	name := fmt.Sprintf("endtoend-browser-%s", uuid.New().String()[:8])

	log.Debug().Str("container", name).Str("image", cfg.Image).Msg("starting browser container")
	startTime := time.Now()

	c, err := startContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: cfg.request(name),
		Started:          true,
	})
	if err != nil {
		if c != nil {
			if termErr := c.Terminate(context.WithoutCancel(ctx)); termErr != nil {
				log.Warn().Err(termErr).Str("container", name).Msg("failed to remove browser container")
			}
		}
		return nil, fmt.Errorf("creating browser container: %w", err)
	}

	log.Debug().
		Str("container", name).
		Dur("duration", time.Since(startTime)).
		Msg("browser container ready")

	return &Browser{name: name, port: nat.Port(cfg.Port), c: c}, nil
}

func (b *Browser) Name() string {
	return b.name
}

// DevToolsURL returns the websocket address of the browser's DevTools endpoint
// as reachable from the host.
func (b *Browser) DevToolsURL(ctx context.Context) (string, error) {
	host, err := b.c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving host of %s: %w", b.name, err)
	}
	mapped, err := b.c.MappedPort(ctx, b.port)
	if err != nil {
		return "", fmt.Errorf("resolving port %s of %s: %w", b.port, b.name, err)
	}
	return fmt.Sprintf("ws://%s:%s", host, mapped.Port()), nil
}

// Terminate stops and removes the container.
func (b *Browser) Terminate(ctx context.Context) error {
	log.Debug().Str("container", b.name).Msg("stopping browser container")
	if err := b.c.Terminate(ctx); err != nil {
		return fmt.Errorf("stopping %s: %w", b.name, err)
	}
	return nil
}
