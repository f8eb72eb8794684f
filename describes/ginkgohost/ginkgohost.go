// Package ginkgohost registers describes suites with Ginkgo.
//
//	var host = ginkgohost.New()
//	var endtoend = page.EndToEnd(host, page.Options{})
//
//	var _ = endtoend.Describe("search", describes.Spec{}, func(env *describes.Env) {
//		host.It("finds the project", func(ctx SpecContext) { ... })
//	})
//
// The describes timeout bounds each hook through NodeTimeout. Specs declared
// with Host.It also get it as their SpecTimeout; a plain ginkgo.It has no
// budget beyond its hooks.
package ginkgohost

import (
	"errors"
	"time"

	"github.com/onsi/ginkgo/v2"

	"github.com/tomatool/endtoend/describes"
)

// Host maps describes suites onto Ginkgo containers.
type Host struct {
	timeout time.Duration
}

func New() *Host {
	return &Host{}
}

func (h *Host) Describe(name string, mode describes.Mode, body func()) {
	prev := h.timeout
	container := func() {
		defer func() { h.timeout = prev }()
		body()
	}

	switch mode {
	case describes.ModeOnly:
		ginkgo.FDescribe(name, container)
	case describes.ModeSkip:
		ginkgo.PDescribe(name, container)
	default:
		ginkgo.Describe(name, container)
	}
}

// Timeout applies to the hooks registered after it in the current container.
func (h *Host) Timeout(d time.Duration) {
	h.timeout = d
}

func (h *Host) BeforeEach(fn describes.HookFunc) {
	ginkgo.BeforeEach(h.node(func(ctx ginkgo.SpecContext) {
		if err := fn(ctx); err != nil {
			ginkgo.Fail(err.Error())
		}
	})...)
}

func (h *Host) AfterEach(fn describes.HookFunc) {
	ginkgo.AfterEach(h.node(func(ctx ginkgo.SpecContext) {
		var cause error
		if report := ginkgo.CurrentSpecReport(); report.Failed() {
			cause = errors.New(report.Failure.Message)
		}
		if err := fn(describes.ContextWithTestFailure(ctx, cause)); err != nil {
			ginkgo.Fail(err.Error())
		}
	})...)
}

// It declares a spec bounded by the timeout of the enclosing suite.
func (h *Host) It(text string, fn func(ginkgo.SpecContext), args ...any) bool {
	return ginkgo.It(text, h.spec(fn, args)...)
}

func (h *Host) spec(fn func(ginkgo.SpecContext), args []any) []any {
	args = append(args, fn)
	if h.timeout > 0 {
		args = append(args, ginkgo.SpecTimeout(h.timeout))
	}
	return args
}

func (h *Host) node(fn func(ginkgo.SpecContext)) []any {
	args := []any{fn}
	if h.timeout > 0 {
		args = append(args, ginkgo.NodeTimeout(h.timeout))
	}
	return args
}
