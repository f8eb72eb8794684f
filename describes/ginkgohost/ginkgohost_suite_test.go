package ginkgohost_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGinkgoHost(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ginkgohost Suite")
}
