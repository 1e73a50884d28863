// Package checked provides overflow-checked integer arithmetic for offsets and
// sizes that originate from untrusted file contents.
package checked

import (
	"math"
	"math/bits"
)

// Add64 returns a+b and whether the sum fits in 64 bits.
func Add64(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// Sub64 returns a-b and whether the result is non-negative.
func Sub64(a, b uint64) (uint64, bool) {
	diff, borrow := bits.Sub64(a, b, 0)
	return diff, borrow == 0
}

// Mul64 returns a*b and whether the product fits in 64 bits.
func Mul64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// Sum64 adds all values, reporting false as soon as the running total overflows.
func Sum64(values ...uint64) (uint64, bool) {
	var total uint64
	for _, v := range values {
		var ok bool
		if total, ok = Add64(total, v); !ok {
			return 0, false
		}
	}
	return total, true
}

// Int64 converts v to an int64 offset suitable for io.ReaderAt.
func Int64(v uint64) (int64, bool) {
	if v > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}
