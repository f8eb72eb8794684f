package describes

import "testing"

// RunSpecs runs the suites of the default tree and reports each test as a
// subtest of t.
func RunSpecs(t *testing.T) Results {
	t.Helper()
	return RunTree(t, defaultTree)
}

// RunTree runs tree and reports each test as a subtest of t.
func RunTree(t *testing.T, tree *Tree) Results {
	t.Helper()
	results := tree.Execute(t.Context(), LogTestLogger{})
	for _, res := range results.Tests {
		t.Run(res.ID.String(), func(t *testing.T) {
			if res.Skipped {
				t.Skip(res.SkipReason)
			}
			for _, err := range res.Errors {
				t.Error(err)
			}
		})
	}
	return results
}
