// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"
	"time"
)

// MulSaturating multiplies two non-negative values, pinning the result at
// math.MaxInt64 instead of wrapping around.
func MulSaturating(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

// AddSaturating adds two non-negative values without wrapping.
func AddSaturating(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// RatePerSecond converts "amount per interval" into a per-second rate.
func RatePerSecond(amount int64, interval time.Duration) float64 {
	if interval <= 0 {
		return 0
	}
	return float64(amount) / interval.Seconds()
}
