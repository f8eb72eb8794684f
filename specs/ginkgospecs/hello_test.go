//go:build e2e

package ginkgospecs

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomatool/endtoend/describes"
	"github.com/tomatool/endtoend/fixture/page"
)

var _ = endtoend.Describe("hello", describes.Spec{Browsers: []string{"chrome"}}, func(env *describes.Env) {
	host.It("loads a page with a title", func(ctx SpecContext) {
		c, ok := page.Controller(env)
		Expect(ok).To(BeTrue())

		Expect(c.NavigateTo(ctx, "https://www.google.com")).To(Succeed())
		Eventually(func() (string, error) {
			return c.Title(ctx)
		}).Should(ContainSubstring("Google"))

		Expect("hello").NotTo(Equal("world"))
	})
})
