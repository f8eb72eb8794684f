// Package describes wraps a test runner's suite registration so that every suite
// declares a list of fixtures. Fixtures are built once per suite registration,
// set up before each test in declared order and torn down after each test in
// reverse order. The per-test Env they populate is handed to the suite body.
//
// A suite is declared through a Describer bound to a Host:
//
//	var endtoend = describes.DescribeEnv(func(spec describes.Spec) []describes.Slot {
//		return []describes.Slot{describes.Use(page.New(spec, opts))}
//	}, describes.DefaultTree())
//
//	var _ = endtoend.Describe("GitHub login", describes.Spec{Browsers: []string{"chrome"}}, func(env *describes.Env) {
//		describes.It("rejects empty credentials", func(t *describes.T) { ... })
//	})
//
// The built-in Tree host runs suites from go test through RunSpecs. The
// ginkgohost and godoghost packages bind the same lifecycle to ginkgo and godog.
package describes
