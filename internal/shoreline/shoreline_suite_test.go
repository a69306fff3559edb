package shoreline_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestShoreline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Shoreline Suite")
}
