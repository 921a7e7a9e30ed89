package money

import "github.com/shopspring/decimal"

// Places is the fixed number of decimal places for all monetary values
const Places = 2

// Quantize rounds v to 2 decimal places, half away from zero.
// All monetary amounts in the system pass through here exactly once
// before being stored or compared.
func Quantize(v decimal.Decimal) decimal.Decimal {
	return v.Round(Places)
}

// QuantizeOrZero treats a nil value as zero, then quantizes.
// Used in aggregation context where an absent sum means "no rows".
func QuantizeOrZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero.Round(Places)
	}
	return v.Round(Places)
}

// QuantizeOptional quantizes v if present and preserves absence otherwise.
// Used for optional monetary fields that must stay null when unset.
func QuantizeOptional(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	q := v.Round(Places)
	return &q
}

// Ptr returns a pointer to v. Convenience for nullable amount columns.
func Ptr(v decimal.Decimal) *decimal.Decimal {
	return &v
}
