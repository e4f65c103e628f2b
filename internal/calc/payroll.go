package calc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
)

type FICARequest struct {
	Year           int
	Wages          decimal.Decimal
	YTDGross       decimal.Decimal
	EmployeeStatus domain.EmployeeStatus
}

type FICAResult struct {
	SocialSecurity     decimal.Decimal
	Medicare           decimal.Decimal
	AdditionalMedicare decimal.Decimal
}

// FICACalculator computes Social Security, Medicare and Additional Medicare.
type FICACalculator struct {
	store ports.RateTableStore
	log   *slog.Logger
}

func NewFICACalculator(store ports.RateTableStore, log *slog.Logger) *FICACalculator {
	return &FICACalculator{store: store, log: log}
}

func (c *FICACalculator) Compute(ctx context.Context, req FICARequest) (FICAResult, error) {
	zero := FICAResult{SocialSecurity: decimal.Zero, Medicare: decimal.Zero, AdditionalMedicare: decimal.Zero}
	if req.EmployeeStatus.FICAExempt() {
		c.log.Debug("employee exempt from FICA", "status", req.EmployeeStatus)
		return zero, nil
	}

	rates, found, err := c.store.FICARates(ctx, req.Year)
	if err != nil {
		return zero, domain.StoreFailure("FICA rate lookup", err)
	}
	if !found {
		return zero, &domain.CalculationError{
			Code:    domain.CodeTableNotFound,
			Message: fmt.Sprintf("FICA rates not found for year=%d", req.Year),
			Key:     &domain.LookupKey{Year: req.Year, Scope: "fica"},
		}
	}

	addl := rates.AdditionalMedicareCap()
	return FICAResult{
		SocialSecurity: capped(rates.SocialSecurityCap(), req.Wages, req.YTDGross),
		Medicare:       capped(rates.MedicareCap(), req.Wages, req.YTDGross),
		AdditionalMedicare: domain.RoundCents(
			WagesAboveThreshold(req.Wages, req.YTDGross, addl.AnnualCap.Decimal).Mul(addl.Rate),
		),
	}, nil
}

type StatePayrollRequest struct {
	Year     int
	State    string
	Wages    decimal.Decimal
	YTDGross decimal.Decimal
}

// StatePayrollCalculator computes employee-paid state payroll taxes
// (unemployment, disability, family leave, ...). A state with none
// configured yields an empty map.
type StatePayrollCalculator struct {
	store ports.RateTableStore
	log   *slog.Logger
}

func NewStatePayrollCalculator(store ports.RateTableStore, log *slog.Logger) *StatePayrollCalculator {
	return &StatePayrollCalculator{store: store, log: log}
}

func (c *StatePayrollCalculator) Compute(ctx context.Context, req StatePayrollRequest) (map[string]domain.TaxLine, error) {
	taxes, err := c.store.StatePayrollTaxes(ctx, req.Year, req.State)
	if err != nil {
		return nil, domain.StoreFailure("state payroll tax lookup", err)
	}
	out := make(map[string]domain.TaxLine, len(taxes))
	for _, t := range taxes {
		if !t.EmployeePaid {
			continue
		}
		amount := capped(t.Cap(), req.Wages, req.YTDGross)
		out[t.TaxType] = domain.TaxLine{Name: domain.PayrollTaxName(t.TaxType), Amount: amount}
		c.log.Debug("state payroll tax", "state", req.State, "type", t.TaxType, "amount", amount)
	}
	return out, nil
}
