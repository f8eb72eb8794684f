package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseDir is where run directories are created when no base is configured.
const DefaultBaseDir = ".endtoend/runs"

// RunContext holds information about the current test run
type RunContext struct {
	ID        string    // Short unique identifier (8 chars)
	Timestamp time.Time // When the run started
	Dir       string    // Full path to the run directory
}

// New creates a new run context and initializes the run directory under base
func New(base string) (*RunContext, error) {
	if base == "" {
		base = DefaultBaseDir
	}
	now := time.Now()
	shortID := uuid.New().String()[:8]

	// Format: .endtoend/runs/2025-01-15_143052_a1b2c3d4/
	dirName := fmt.Sprintf("%s_%s", now.Format("2006-01-02_150405"), shortID)
	runDir := filepath.Join(base, dirName)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	return &RunContext{
		ID:        shortID,
		Timestamp: now,
		Dir:       runDir,
	}, nil
}

var (
	sharedMu sync.Mutex
	shared   = map[string]*RunContext{}
)

// Shared returns the run context for base, creating it on first use. Every
// fixture writing artifacts during one process ends up in the same run.
func Shared(base string) (*RunContext, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if run, ok := shared[base]; ok {
		return run, nil
	}
	run, err := New(base)
	if err != nil {
		return nil, err
	}
	shared[base] = run
	return run, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName turns a test name into a file name safe on every platform.
func FileName(name string) string {
	name = strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_"), "_.")
	if name == "" {
		return "unnamed"
	}
	return name
}

// ArtifactPath returns the path of an artifact with the given name and extension
func (r *RunContext) ArtifactPath(name, ext string) string {
	return filepath.Join(r.Dir, FileName(name)+"."+strings.TrimPrefix(ext, "."))
}

// WriteArtifact stores content as an artifact, returning its path.
// Existing artifacts with the same name are not overwritten; a numeric suffix is added.
func (r *RunContext) WriteArtifact(name, ext string, content []byte) (string, error) {
	path := r.ArtifactPath(name, ext)
	for i := 2; fileExists(path); i++ {
		path = r.ArtifactPath(fmt.Sprintf("%s-%d", name, i), ext)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// CreateLogFile creates a log file and returns the file handle
func (r *RunContext) CreateLogFile(name string) (*os.File, error) {
	return os.Create(r.ArtifactPath(name, "log"))
}

// RunInfo contains information about a stored run
type RunInfo struct {
	Name      string
	Dir       string
	Timestamp time.Time
	Artifacts int
}

// ListRuns returns all run directories under base sorted by most recent first
func ListRuns(base string) ([]RunInfo, error) {
	if base == "" {
		base = DefaultBaseDir
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunInfo{}, nil
		}
		return nil, err
	}

	var runs []RunInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dir := filepath.Join(base, entry.Name())
		files, _ := os.ReadDir(dir)
		runs = append(runs, RunInfo{
			Name:      entry.Name(),
			Dir:       dir,
			Timestamp: info.ModTime(),
			Artifacts: len(files),
		})
	}

	// Names start with the timestamp.
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name > runs[j].Name })
	return runs, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
