// Package ginkgospecs runs the hello spec through Ginkgo.
package ginkgospecs
