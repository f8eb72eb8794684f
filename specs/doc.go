// Package specs holds end-to-end specs run against real sites through the
// built-in tree runner:
//
//	go test -tags e2e ./specs/...
//
// Set ENDTOEND_REMOTE_URL to drive an already running browser and
// ENDTOEND_HEADED to watch the tests.
package specs
