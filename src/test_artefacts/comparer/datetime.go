package comparer

import (
	"time"

	"github.com/google/go-cmp/cmp"
)

// TimeWithinTolerance trata como iguais instantes a até toleranceMs de distância.
// Backends como o Redis guardam o score em milissegundos.
func TimeWithinTolerance(toleranceMs int) cmp.Option {
	tolerance := time.Duration(toleranceMs) * time.Millisecond

	return cmp.Comparer(func(x, y time.Time) bool {
		diff := x.Sub(y)
		if diff < 0 {
			diff = -diff
		}
		return diff <= tolerance
	})
}

// SameInstant compares times by instant, ignoring location and monotonic readings.
func SameInstant() cmp.Option {
	return cmp.Comparer(func(x, y time.Time) bool {
		return x.Equal(y)
	})
}
