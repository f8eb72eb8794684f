package describes

import (
	"strings"
	"time"
)

// TestID is the path of suite names leading to a test, the test name last.
type TestID struct {
	Path []string
}

func (id TestID) String() string {
	return strings.Join(id.Path, " / ")
}

// TestResult is the outcome of one test.
type TestResult struct {
	ID         TestID
	Errors     []error
	Skipped    bool
	SkipReason string
	Duration   time.Duration
}

func (r TestResult) Failed() bool {
	return !r.Skipped && len(r.Errors) > 0
}

// Results lists every test that was run or skipped, and the failures among them.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Find returns the result whose ID renders as name.
func (r Results) Find(name string) (TestResult, bool) {
	for _, t := range r.Tests {
		if t.ID.String() == name {
			return t, true
		}
	}
	return TestResult{}, false
}
