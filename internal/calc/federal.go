package calc

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
)

// FederalRequest is one period's input to the Pub 15-T percentage method.
type FederalRequest struct {
	Year         int
	TaxableWages decimal.Decimal
	Frequency    domain.PayFrequency
	FilingStatus domain.FilingStatus
	W4           domain.W4Adjustments
}

// FederalCalculator computes federal income tax withholding from the
// percentage-method tables only. There is no annualized bracket fallback.
type FederalCalculator struct {
	store ports.RateTableStore
	log   *slog.Logger
}

func NewFederalCalculator(store ports.RateTableStore, log *slog.Logger) *FederalCalculator {
	return &FederalCalculator{store: store, log: log}
}

// AdjustedWages applies W-4 Step 4(a) other income and Step 4(b) deductions
// (annual, spread over the year's periods), floored at zero.
func AdjustedWages(wages decimal.Decimal, periods int, w4 domain.W4Adjustments) decimal.Decimal {
	adj := wages.Add(w4.Step4aOtherIncome)
	if periods > 0 && !w4.Step4bDeductions.IsZero() {
		adj = adj.Sub(w4.Step4bDeductions.Div(decimal.NewFromInt(int64(periods))))
	}
	return domain.FloorZero(adj)
}

func (c *FederalCalculator) Compute(ctx context.Context, req FederalRequest) (decimal.Decimal, error) {
	periods := req.Frequency.PeriodsPerYear()
	wages := AdjustedWages(req.TaxableWages, periods, req.W4)

	key := domain.LookupKey{
		Year:         req.Year,
		Scope:        domain.FederalScope,
		PayFrequency: req.Frequency,
		FilingStatus: req.FilingStatus,
		Supplemental: req.W4.Step2Checkbox,
	}
	c.log.Debug("federal lookup", "key", key.String(), "wages", wages)

	row, found, err := c.store.LookupWithholding(ctx, key, wages)
	if err != nil {
		return decimal.Zero, domain.StoreFailure("federal withholding lookup", err)
	}
	if !found {
		c.log.Error("federal withholding table missing", "key", key.String(), "wages", wages)
		return decimal.Zero, domain.TableNotFound(key, wages)
	}

	withholding := row.Formula.Apply(wages)
	if periods > 0 && !req.W4.Step3Credits.IsZero() {
		withholding = withholding.Sub(req.W4.Step3Credits.Div(decimal.NewFromInt(int64(periods))))
	}
	withholding = withholding.Add(req.W4.Step4cExtraWithholding)
	withholding = domain.FloorZero(domain.RoundDollars(withholding))

	c.log.Debug("federal withholding",
		"range", row.RangeString(),
		"mode", row.Formula.Mode(),
		"withholding", withholding,
	)
	return withholding, nil
}
