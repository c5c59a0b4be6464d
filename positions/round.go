package positions

import "github.com/shopspring/decimal"

// roundTo rounds half away from zero, never banker's rounding (spec §4.4
// step 3: PL is rounded, not truncated, so ties must round away from zero
// rather than to-even).
func roundTo(v float64, digits int32) float64 {
	out, _ := decimal.NewFromFloat(v).Round(digits).Float64()
	return out
}
