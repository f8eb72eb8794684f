package describes

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TestFunc is the body of a Tree test.
type TestFunc func(t *T)

type suiteNode struct {
	name     string
	mode     Mode
	timeout  time.Duration
	before   []HookFunc
	after    []HookFunc
	children []treeEntry
}

type testNode struct {
	name string
	fn   TestFunc
}

type treeEntry struct {
	suite *suiteNode
	test  *testNode
}

// Tree is the built-in Host. Suites are collected first, the way mocha
// collects describe blocks, and run afterwards by Execute or RunSpecs.
// Collection is not safe for concurrent use.
type Tree struct {
	root    *suiteNode
	current *suiteNode
}

var defaultTree = NewTree()

func NewTree() *Tree {
	root := &suiteNode{}
	return &Tree{root: root, current: root}
}

// DefaultTree returns the tree used by the package-level Describe, It,
// BeforeEach and AfterEach, and run by RunSpecs.
func DefaultTree() *Tree {
	return defaultTree
}

func (t *Tree) Describe(name string, mode Mode, body func()) {
	if name == "" {
		panic(fmt.Errorf("describes: %w", ErrEmptyName))
	}
	parent := t.current
	s := &suiteNode{name: name, mode: mode}
	parent.children = append(parent.children, treeEntry{suite: s})

	t.current = s
	defer func() { t.current = parent }()
	body()
}

func (t *Tree) Timeout(d time.Duration) {
	t.current.timeout = d
}

func (t *Tree) BeforeEach(fn HookFunc) {
	t.current.before = append(t.current.before, fn)
}

func (t *Tree) AfterEach(fn HookFunc) {
	t.current.after = append(t.current.after, fn)
}

// It adds a test to the suite being collected.
func (t *Tree) It(name string, fn TestFunc) {
	t.current.children = append(t.current.children, treeEntry{test: &testNode{name: name, fn: fn}})
}

// Describe adds a fixture-less suite to the default tree.
func Describe(name string, body func()) {
	defaultTree.Describe(name, ModeDefault, body)
}

// It adds a test to the default tree.
func It(name string, fn TestFunc) {
	defaultTree.It(name, fn)
}

// BeforeEach adds a before-each hook to the default tree.
func BeforeEach(fn HookFunc) {
	defaultTree.BeforeEach(fn)
}

// AfterEach adds an after-each hook to the default tree.
func AfterEach(fn HookFunc) {
	defaultTree.AfterEach(fn)
}

// Execute runs the collected tests one at a time. If any suite was
// registered with ModeOnly, tests outside focused suites are left out.
// Tests in ModeSkip suites are reported as skipped.
func (t *Tree) Execute(ctx context.Context, logger TestLogger) Results {
	if logger == nil {
		logger = nullTestLogger{}
	}
	r := &treeRun{logger: logger, focus: hasFocus(t.root)}
	r.walk(ctx, t.root, nil, false, false)
	return r.results
}

func hasFocus(s *suiteNode) bool {
	if s.mode == ModeOnly {
		return true
	}
	for _, e := range s.children {
		if e.suite != nil && hasFocus(e.suite) {
			return true
		}
	}
	return false
}

type treeRun struct {
	logger  TestLogger
	focus   bool
	results Results
}

func (r *treeRun) walk(ctx context.Context, s *suiteNode, chain []*suiteNode, focused, skipped bool) {
	chain = append(chain[:len(chain):len(chain)], s)
	focused = focused || s.mode == ModeOnly
	skipped = skipped || s.mode == ModeSkip

	for _, e := range s.children {
		if e.suite != nil {
			r.walk(ctx, e.suite, chain, focused, skipped)
			continue
		}
		if r.focus && !focused {
			continue
		}
		id := testID(chain, e.test.name)
		if skipped {
			r.logger.TestSkipped(id, "suite skipped")
			r.record(TestResult{ID: id, Skipped: true, SkipReason: "suite skipped"})
			continue
		}
		r.run(ctx, chain, e.test, id)
	}
}

// run executes one test: before-each hooks from the outermost suite in,
// the body, then after-each hooks from the innermost suite out. A failing
// before-each hook skips the body; after-each hooks of every suite whose
// before-each hooks were reached still run.
func (r *treeRun) run(ctx context.Context, chain []*suiteNode, test *testNode, id TestID) {
	r.logger.TestStarted(id)
	start := time.Now()

	timeout := effectiveTimeout(chain)
	testCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		testCtx, cancel = context.WithTimeoutCause(ctx, timeout, fmt.Errorf("%w after %s", ErrTimeout, timeout))
	}
	defer cancel()

	t := newT(testCtx, id, r.logger)

	entered := 0
	var hookErr error
before:
	for i, s := range chain {
		entered = i + 1
		for _, h := range s.before {
			if hookErr = await(testCtx, func(ctx context.Context) error { return h(ctx) }); hookErr != nil {
				t.fail(fmt.Errorf("before each hook: %w", hookErr))
				break before
			}
		}
	}

	if hookErr == nil {
		if err := await(testCtx, func(context.Context) error { return t.run(test.fn) }); err != nil {
			t.fail(err)
		}
	}

	afterCtx := ContextWithTestFailure(context.WithoutCancel(testCtx), t.err())
	if timeout > 0 {
		var cancelAfter context.CancelFunc
		afterCtx, cancelAfter = context.WithTimeout(afterCtx, timeout)
		defer cancelAfter()
	}
	for i := entered - 1; i >= 0; i-- {
		for _, h := range chain[i].after {
			if err := await(afterCtx, func(ctx context.Context) error { return h(ctx) }); err != nil {
				t.fail(fmt.Errorf("after each hook: %w", err))
			}
		}
	}

	result := t.result()
	result.Duration = time.Since(start)
	if result.Skipped {
		r.logger.TestSkipped(id, result.SkipReason)
	} else {
		r.logger.TestFinished(id, result.Failed(), result.Duration)
	}
	r.record(result)
}

func (r *treeRun) record(result TestResult) {
	r.results.Tests = append(r.results.Tests, result)
	if result.Failed() {
		r.results.Failures = append(r.results.Failures, result)
	}
}

// effectiveTimeout is the timeout of the innermost suite that sets one.
func effectiveTimeout(chain []*suiteNode) time.Duration {
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].timeout > 0 {
			return chain[i].timeout
		}
	}
	return 0
}

// testID leaves out the unnamed root and whitespace-only suite labels.
func testID(chain []*suiteNode, name string) TestID {
	var path []string
	for _, s := range chain {
		if strings.TrimSpace(s.name) == "" {
			continue
		}
		path = append(path, s.name)
	}
	return TestID{Path: append(path, name)}
}
