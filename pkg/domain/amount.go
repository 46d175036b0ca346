package domain

import "math"

// AddAmount returns a+b, or ok=false when the sum does not fit in an int64.
func AddAmount(a, b int64) (sum int64, ok bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}
