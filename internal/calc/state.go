package calc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
)

// noIncomeTaxStates levy no tax on wage income. Withholding for these is
// zero and no table is consulted.
var noIncomeTaxStates = map[string]bool{
	"AK": true, "FL": true, "NV": true, "NH": true, "SD": true,
	"TN": true, "TX": true, "WA": true, "WY": true,
}

// HasIncomeTax reports whether a state withholds income tax on wages.
func HasIncomeTax(state string) bool {
	return !noIncomeTaxStates[strings.ToUpper(state)]
}

// NoIncomeTaxStates returns the exempt state codes in alphabetical order.
func NoIncomeTaxStates() []string {
	return []string{"AK", "FL", "NH", "NV", "SD", "TN", "TX", "WA", "WY"}
}

type StateRequest struct {
	Year               int
	State              string
	TaxableWages       decimal.Decimal
	Frequency          domain.PayFrequency
	FilingStatus       domain.FilingStatus
	AnnualTaxableGross decimal.Decimal
}

// StateCalculator computes state income tax withholding from the state's
// withholding table. A missing table for a taxing state is fatal.
type StateCalculator struct {
	store ports.RateTableStore
	log   *slog.Logger
}

func NewStateCalculator(store ports.RateTableStore, log *slog.Logger) *StateCalculator {
	return &StateCalculator{store: store, log: log}
}

func (c *StateCalculator) Compute(ctx context.Context, req StateRequest) (decimal.Decimal, error) {
	if !HasIncomeTax(req.State) {
		c.log.Debug("state has no income tax", "state", req.State)
		return decimal.Zero, nil
	}

	key := domain.LookupKey{
		Year:         req.Year,
		Scope:        domain.StateScope(req.State),
		PayFrequency: req.Frequency,
		FilingStatus: req.FilingStatus,
	}
	row, found, err := c.store.LookupWithholding(ctx, key, req.TaxableWages)
	if err != nil {
		return decimal.Zero, domain.StoreFailure("state withholding lookup", err)
	}
	if !found {
		c.log.Error("state withholding table missing", "key", key.String(), "wages", req.TaxableWages)
		return decimal.Zero, domain.TableNotFound(key, req.TaxableWages)
	}

	withholding := domain.FloorZero(domain.RoundCents(row.Formula.Apply(req.TaxableWages)))
	c.log.Debug("state withholding",
		"state", req.State,
		"annualTaxableGross", req.AnnualTaxableGross,
		"range", row.RangeString(),
		"mode", row.Formula.Mode(),
		"withholding", withholding,
	)
	return withholding, nil
}
