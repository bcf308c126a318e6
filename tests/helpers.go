package tests

import (
	"math/rand"

	"github.com/mr-tron/base58"
)

func randomBytes(n int) []byte {
	a := make([]byte, n)
	rand.Read(a) //nolint:staticcheck // SA1019: rand.Read has been deprecated since Go 1.20
	return a
}

// randomReportRef returns a base58 encoded reference mimicking a content
// address of an off-chain report.
func randomReportRef() []byte {
	return []byte(base58.Encode(randomBytes(32)))
}
