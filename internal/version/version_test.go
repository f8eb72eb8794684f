package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.2.0", Commit: "abc123", BuildDate: "2026-10-01"}
	assert.Equal(t, "endtoend v1.2.0 (commit abc123, built 2026-10-01)", info.String())
}

func TestGet(t *testing.T) {
	orig := Version
	Version = "v9.9.9"
	t.Cleanup(func() { Version = orig })

	info := Get()
	assert.Equal(t, "v9.9.9", info.Version, "a stamped version is never replaced")
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
	assert.Contains(t, info.Platform, "/")
	assert.NotNil(t, info.Drivers)
	for name := range info.Drivers {
		assert.Contains(t, []string{"chromedp", "godog", "ginkgo", "testcontainers"}, name)
	}
}
