package calc

import (
	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
)

// TaxableSlice returns the part of this period's wages still under an annual
// wage base, given gross wages paid earlier in the year. An uncapped tax
// (invalid annualCap) taxes all period wages.
func TaxableSlice(periodWages, ytdBefore decimal.Decimal, annualCap decimal.NullDecimal) decimal.Decimal {
	if !annualCap.Valid {
		return periodWages
	}
	if ytdBefore.GreaterThanOrEqual(annualCap.Decimal) {
		return decimal.Zero
	}
	return decimal.Min(periodWages, annualCap.Decimal.Sub(ytdBefore))
}

// WagesAboveThreshold is the complement of TaxableSlice: the part of this
// period's wages that pushes year-to-date wages past threshold.
func WagesAboveThreshold(periodWages, ytdBefore, threshold decimal.Decimal) decimal.Decimal {
	ytdAfter := ytdBefore.Add(periodWages)
	if !ytdAfter.GreaterThan(threshold) {
		return decimal.Zero
	}
	if ytdBefore.LessThan(threshold) {
		return ytdAfter.Sub(threshold)
	}
	return periodWages
}

// capped applies a wage-base cap and its rate, rounded to cents.
func capped(c domain.WageBaseCap, periodWages, ytdBefore decimal.Decimal) decimal.Decimal {
	return domain.RoundCents(TaxableSlice(periodWages, ytdBefore, c.AnnualCap).Mul(c.Rate))
}
