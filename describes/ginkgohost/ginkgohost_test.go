package ginkgohost_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomatool/endtoend/describes"
	"github.com/tomatool/endtoend/describes/ginkgohost"
)

type recFixture struct {
	name   string
	events *[]string
}

func (f *recFixture) Name() string { return f.name }

func (f *recFixture) IsOn() bool { return true }

func (f *recFixture) Setup(ctx context.Context, env *describes.Env) error {
	*f.events = append(*f.events, f.name+".setup")
	env.Set(f.name, true)
	return nil
}

func (f *recFixture) Teardown(ctx context.Context, env *describes.Env) error {
	*f.events = append(*f.events, f.name+".teardown")
	return nil
}

var _ = Describe("ginkgo host", Ordered, func() {
	var events []string
	var suiteEnv *describes.Env

	endtoend := describes.DescribeEnv(func(describes.Spec) []describes.Slot {
		return []describes.Slot{
			describes.Use(&recFixture{name: "A", events: &events}),
			describes.Use(&recFixture{name: "B", events: &events}),
		}
	}, ginkgohost.New())

	endtoend.Describe("with fixtures", describes.Spec{}, func(env *describes.Env) {
		suiteEnv = env

		BeforeEach(func() {
			events = append(events, "before")
		})

		It("sees every fixture", func() {
			Expect(env.Keys()).To(Equal([]string{"A", "B"}))
			events = append(events, "body")
		})

		It("gets a fresh environment", func() {
			Expect(env.Len()).To(Equal(2))
			Expect(env.TestID()).NotTo(BeEmpty())
		})
	})

	endtoend.Skip("skipped suite", describes.Spec{}, func(env *describes.Env) {
		It("never runs", func() {
			Fail("pending suites must not run")
		})
	})

	It("set up in order and tore down in reverse", func() {
		Expect(events).To(Equal([]string{
			"A.setup", "B.setup", "before", "body", "B.teardown", "A.teardown",
			"A.setup", "B.setup", "before", "B.teardown", "A.teardown",
		}))
	})

	It("left the environment empty", func() {
		Expect(suiteEnv.Len()).To(BeZero())
	})
})

var _ = Describe("ginkgo host specs", func() {
	host := ginkgohost.New()
	endtoend := describes.DescribeEnv(func(describes.Spec) []describes.Slot {
		return nil
	}, host)

	endtoend.Describe("bounded", describes.Spec{}, func(env *describes.Env) {
		host.It("runs with a live context", func(ctx SpecContext) {
			Expect(ctx.Err()).NotTo(HaveOccurred())
			Expect(env.TestID()).NotTo(BeEmpty())
		})
	})
})
