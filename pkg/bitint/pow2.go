// SPDX-License-Identifier: MIT

// Package bitint holds the power-of-two helpers used when sizing transform
// blocks. All functions are allocation free and safe to call from the
// per-frame path.
package bitint

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of two.
//
//	8  -> true   (1000 & 0111 == 0)
//	7  -> false  (0111 & 0110 != 0)
//	0  -> false
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n. Values <= 0 map to 1.
// The n-1 keeps exact powers of two unchanged (8 -> 8, not 16).
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// PrevPowerOfTwo returns the largest power of two <= n, or 0 when n <= 0.
func PrevPowerOfTwo(n int) int {
	if n <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(n)) - 1)
}

// Log2 returns the exponent of a power of two, or -1 if n is not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
