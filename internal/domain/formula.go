package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// FormulaMode names the calculation a withholding row carries.
type FormulaMode string

const (
	ModeFixed      FormulaMode = "fixed"
	ModePercentage FormulaMode = "percentage"
)

// Formula is the single calculation mode of a withholding row. It is one of
// FixedAmount or PercentageMethod, resolved when the row is loaded.
type Formula interface {
	Mode() FormulaMode
	// Apply evaluates the formula for wages already known to fall in the
	// row's range. The result is unrounded and may be negative.
	Apply(wage decimal.Decimal) decimal.Decimal
	sealed()
}

// FixedAmount withholds the same amount for every wage in the range.
type FixedAmount struct {
	Amount decimal.Decimal
}

func (FixedAmount) Mode() FormulaMode                       { return ModeFixed }
func (f FixedAmount) Apply(decimal.Decimal) decimal.Decimal { return f.Amount }
func (FixedAmount) sealed()                                 {}

// PercentageMethod is Base + Rate × (wage − ExcessOver). Federal rows use
// the range minimum as ExcessOver; state effective-rate rows use zero.
type PercentageMethod struct {
	Base       decimal.Decimal
	Rate       decimal.Decimal
	ExcessOver decimal.Decimal
}

func (PercentageMethod) Mode() FormulaMode { return ModePercentage }

func (p PercentageMethod) Apply(wage decimal.Decimal) decimal.Decimal {
	return p.Base.Add(p.Rate.Mul(wage.Sub(p.ExcessOver)))
}

func (PercentageMethod) sealed() {}

// RawFormula is the nullable column set a withholding row is stored as.
// Percentage is the legacy column, equivalent to Rate with ExcessOver at the
// range minimum.
type RawFormula struct {
	FixedAmount decimal.NullDecimal
	BaseAmount  decimal.NullDecimal
	Rate        decimal.NullDecimal
	ExcessOver  decimal.NullDecimal
	Percentage  decimal.NullDecimal
}

var ErrNoFormula = errors.New("row carries no calculation mode")

// ResolveFormula picks the row's one active mode.
//
// Federal rows: base+rate (ExcessOver defaults to wageMin), then legacy
// base+percentage, then fixed amount.
//
// State and local rows: fixed amount, then base+rate where rate is an
// effective rate on the full wage, then base only.
func ResolveFormula(kind ScopeKind, wageMin decimal.Decimal, raw RawFormula) (Formula, error) {
	base := decimal.Zero
	if raw.BaseAmount.Valid {
		base = raw.BaseAmount.Decimal
	}

	if kind == ScopeFederal {
		switch {
		case raw.Rate.Valid:
			excess := wageMin
			if raw.ExcessOver.Valid {
				excess = raw.ExcessOver.Decimal
			}
			return PercentageMethod{Base: base, Rate: raw.Rate.Decimal, ExcessOver: excess}, nil
		case raw.Percentage.Valid:
			return PercentageMethod{Base: base, Rate: raw.Percentage.Decimal, ExcessOver: wageMin}, nil
		case raw.FixedAmount.Valid:
			return FixedAmount{Amount: raw.FixedAmount.Decimal}, nil
		}
		return nil, ErrNoFormula
	}

	switch {
	case raw.FixedAmount.Valid:
		return FixedAmount{Amount: raw.FixedAmount.Decimal}, nil
	case raw.Rate.Valid || raw.Percentage.Valid:
		rate := raw.Percentage.Decimal
		if raw.Rate.Valid {
			rate = raw.Rate.Decimal
		}
		excess := decimal.Zero
		if raw.ExcessOver.Valid {
			excess = raw.ExcessOver.Decimal
		}
		return PercentageMethod{Base: base, Rate: rate, ExcessOver: excess}, nil
	case raw.BaseAmount.Valid:
		return FixedAmount{Amount: base}, nil
	}
	return nil, ErrNoFormula
}

// Raw converts a resolved formula back to its storage columns.
func Raw(f Formula) RawFormula {
	switch v := f.(type) {
	case FixedAmount:
		return RawFormula{FixedAmount: decimal.NewNullDecimal(v.Amount)}
	case PercentageMethod:
		return RawFormula{
			BaseAmount: decimal.NewNullDecimal(v.Base),
			Rate:       decimal.NewNullDecimal(v.Rate),
			ExcessOver: decimal.NewNullDecimal(v.ExcessOver),
		}
	}
	return RawFormula{}
}
