package calc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
)

type LocalRequest struct {
	Year               int
	State              string
	Jurisdiction       string
	Frequency          domain.PayFrequency
	TaxableWages       decimal.Decimal
	AnnualTaxableGross decimal.Decimal
}

// LocalCalculator computes city, county and school-district taxes.
type LocalCalculator struct {
	store ports.RateTableStore
	log   *slog.Logger
}

func NewLocalCalculator(store ports.RateTableStore, log *slog.Logger) *LocalCalculator {
	return &LocalCalculator{store: store, log: log}
}

// Compute returns the local taxes keyed by jurisdiction. "NONE" or an empty
// jurisdiction yields an empty map without a lookup.
func (c *LocalCalculator) Compute(ctx context.Context, req LocalRequest) (map[string]domain.TaxLine, error) {
	out := map[string]domain.TaxLine{}
	if req.Jurisdiction == "" || strings.EqualFold(req.Jurisdiction, domain.LocalNone) {
		return out, nil
	}

	rule, found, err := c.store.LocalTax(ctx, req.Year, req.State, req.Jurisdiction)
	if err != nil {
		return nil, domain.StoreFailure("local tax lookup", err)
	}
	if !found {
		key := domain.LookupKey{
			Year:         req.Year,
			Scope:        domain.LocalScope(req.State, req.Jurisdiction),
			PayFrequency: req.Frequency,
		}
		c.log.Error("local tax rule missing", "key", key.String())
		return nil, domain.TableNotFound(key, req.TaxableWages)
	}

	amount, err := LocalAmount(rule, req.TaxableWages, req.AnnualTaxableGross, req.Frequency.PeriodsPerYear())
	if err != nil {
		return nil, err
	}
	c.log.Debug("local tax", "scope", rule.Scope(), "kind", rule.Kind, "amount", amount)

	out[rule.Jurisdiction] = domain.TaxLine{Name: rule.Jurisdiction, Amount: amount}
	return out, nil
}

// LocalAmount evaluates a local rule for one period, rounded to cents.
func LocalAmount(rule domain.LocalTaxRule, periodWages, annualWages decimal.Decimal, periods int) (decimal.Decimal, error) {
	if periods <= 0 {
		return decimal.Zero, domain.InvalidInput("pay periods must be positive")
	}
	n := decimal.NewFromInt(int64(periods))

	var amount decimal.Decimal
	switch rule.Kind {
	case domain.LocalFlat:
		amount = periodWages.Mul(rule.Rate)
	case domain.LocalFixed:
		amount = rule.AnnualAmount.Div(n)
	case domain.LocalBrackets:
		amount = BracketTax(annualWages, rule.Brackets).Div(n)
	default:
		return decimal.Zero, domain.DataIntegrity("local tax %s has unknown kind %q", rule.Scope(), rule.Kind)
	}
	return domain.FloorZero(domain.RoundCents(amount)), nil
}

// BracketTax sums marginal tax across brackets. Brackets must be ordered by
// Min; an invalid Max is unbounded.
func BracketTax(income decimal.Decimal, brackets []domain.LocalTaxBracket) decimal.Decimal {
	tax := decimal.Zero
	for _, b := range brackets {
		if !income.GreaterThan(b.Min) {
			break
		}
		top := income
		if b.Max.Valid && b.Max.Decimal.LessThan(income) {
			top = b.Max.Decimal
		}
		tax = tax.Add(top.Sub(b.Min).Mul(b.Rate))
	}
	return tax
}
