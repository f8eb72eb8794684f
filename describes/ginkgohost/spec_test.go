package ginkgohost

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomatool/endtoend/describes"
)

func TestSpecTimeout(t *testing.T) {
	g := NewWithT(t)
	fn := func(ginkgo.SpecContext) {}

	h := New()
	g.Expect(h.spec(fn, nil)).To(HaveLen(1), "no suite timeout yet")

	h.Timeout(describes.Timeout)
	args := h.spec(fn, []any{ginkgo.Label("e2e")})
	g.Expect(args).To(HaveLen(3))
	g.Expect(args).To(ContainElement(ginkgo.SpecTimeout(describes.Timeout)))
	g.Expect(args).To(ContainElement(ginkgo.Label("e2e")))
}
