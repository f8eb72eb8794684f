//go:build integration

package main

import (
	"os"
	"testing"
)

// TestMainWithCoverage runs the CLI for integration coverage.
// Build with: go test -coverpkg=./... -c -tags integration -o endtoend.test
// Run with: ./endtoend.test -test.run "^TestMainWithCoverage$" -test.coverprofile=coverage.out run features
func TestMainWithCoverage(t *testing.T) {
	if len(os.Args) < 2 {
		t.Skip("No arguments provided, skipping integration test")
	}

	main()
}
