// Package calc is the withholding engine: it turns one paycheck request into
// a paystub using only the provisioned rate tables.
//
// The federal, state, local, FICA and state payroll calculators share no
// state and run concurrently; the first failure aborts the paystub.
package calc

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
)

var (
	stateCodeRE    = regexp.MustCompile(`^[A-Z]{2}$`)
	jurisdictionRE = regexp.MustCompile(`^[A-Z0-9_]{1,40}$`)
	maxGrossPay    = decimal.NewFromInt(100_000_000)
)

type Engine struct {
	federal      *FederalCalculator
	state        *StateCalculator
	local        *LocalCalculator
	fica         *FICACalculator
	statePayroll *StatePayrollCalculator
	log          *slog.Logger
	defaultYear  int
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDefaultYear sets the tax year used when a request omits one.
func WithDefaultYear(year int) Option {
	return func(e *Engine) { e.defaultYear = year }
}

// New builds an engine over a read-only rate table store.
func New(store ports.RateTableStore, opts ...Option) *Engine {
	e := &Engine{log: slog.Default(), defaultYear: domain.DefaultTaxYear}
	for _, o := range opts {
		o(e)
	}
	e.federal = NewFederalCalculator(store, e.log)
	e.state = NewStateCalculator(store, e.log)
	e.local = NewLocalCalculator(store, e.log)
	e.fica = NewFICACalculator(store, e.log)
	e.statePayroll = NewStatePayrollCalculator(store, e.log)
	return e
}

// paycheck is a validated, normalized PaycheckInput.
type paycheck struct {
	in           *domain.PaycheckInput
	year         int
	state        string
	jurisdiction string
	status       domain.EmployeeStatus
	filing       domain.FilingStatus
	frequency    domain.PayFrequency
	preTaxTotal  decimal.Decimal
	taxableGross decimal.Decimal
}

// Calculate implements ports.PaystubCalculator.
func (e *Engine) Calculate(ctx context.Context, in *domain.PaycheckInput) (*domain.PaystubResult, error) {
	p, err := e.validate(in)
	if err != nil {
		return nil, err
	}
	periods := decimal.NewFromInt(int64(in.PayPeriods))
	annualTaxable := p.taxableGross.Mul(periods)

	e.log.Debug("calculating paystub",
		"year", p.year,
		"state", p.state,
		"frequency", p.frequency,
		"filingStatus", p.filing,
		"grossPay", in.GrossPay,
		"taxableGross", p.taxableGross,
	)

	var (
		federalTax, stateTax decimal.Decimal
		fica                 FICAResult
		payrollTaxes         map[string]domain.TaxLine
		localTaxes           map[string]domain.TaxLine
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		federalTax, err = e.federal.Compute(gctx, FederalRequest{
			Year:         p.year,
			TaxableWages: p.taxableGross,
			Frequency:    p.frequency,
			FilingStatus: p.filing,
			W4:           in.W4,
		})
		return err
	})
	g.Go(func() (err error) {
		stateTax, err = e.state.Compute(gctx, StateRequest{
			Year:               p.year,
			State:              p.state,
			TaxableWages:       p.taxableGross,
			Frequency:          p.frequency,
			FilingStatus:       p.filing,
			AnnualTaxableGross: annualTaxable,
		})
		return err
	})
	g.Go(func() (err error) {
		localTaxes, err = e.local.Compute(gctx, LocalRequest{
			Year:               p.year,
			State:              p.state,
			Jurisdiction:       p.jurisdiction,
			Frequency:          p.frequency,
			TaxableWages:       p.taxableGross,
			AnnualTaxableGross: annualTaxable,
		})
		return err
	})
	g.Go(func() (err error) {
		fica, err = e.fica.Compute(gctx, FICARequest{
			Year:           p.year,
			Wages:          p.taxableGross,
			YTDGross:       in.YearToDateGross,
			EmployeeStatus: p.status,
		})
		return err
	})
	g.Go(func() (err error) {
		payrollTaxes, err = e.statePayroll.Compute(gctx, StatePayrollRequest{
			Year:     p.year,
			State:    p.state,
			Wages:    p.taxableGross,
			YTDGross: in.YearToDateGross,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		e.log.Warn("paystub calculation failed", "code", domain.CodeOf(err), "err", err)
		return nil, err
	}

	total := p.preTaxTotal.
		Add(federalTax).
		Add(stateTax).
		Add(domain.SumLines(payrollTaxes)).
		Add(domain.SumLines(localTaxes)).
		Add(fica.SocialSecurity).
		Add(fica.Medicare).
		Add(fica.AdditionalMedicare)
	net := in.GrossPay.Sub(total)

	preTax := domain.PreTaxDeductions{}
	for k, v := range in.PreTaxDeductions {
		if !strings.EqualFold(k, "total") {
			preTax[k] = v
		}
	}

	return &domain.PaystubResult{
		TaxYear:               p.year,
		PayFrequency:          p.frequency,
		GrossPay:              in.GrossPay,
		PreTaxDeductions:      preTax,
		PreTaxDeductionsTotal: p.preTaxTotal,
		TaxableGrossPay:       p.taxableGross,
		FederalIncomeTax:      federalTax,
		StateIncomeTax:        stateTax,
		StatePayrollTaxes:     payrollTaxes,
		LocalTaxes:            localTaxes,
		SocialSecurity:        fica.SocialSecurity,
		Medicare:              fica.Medicare,
		AdditionalMedicare:    fica.AdditionalMedicare,
		TotalDeductions:       total,
		NetPay:                net,
		YTDGross:              in.YearToDateGross.Add(in.GrossPay),
		YTDNet:                in.YearToDateNet.Add(net),
		AnnualGross:           in.GrossPay.Mul(periods),
	}, nil
}

// TaxableGross is the explicit taxable gross when supplied, otherwise gross
// less pre-tax deductions, floored at zero.
func TaxableGross(in *domain.PaycheckInput) decimal.Decimal {
	if in.TaxableGrossPay.Valid {
		return in.TaxableGrossPay.Decimal
	}
	return domain.FloorZero(in.GrossPay.Sub(in.PreTaxDeductions.Total()))
}

// validate rejects bad input before any table lookup.
func (e *Engine) validate(in *domain.PaycheckInput) (*paycheck, error) {
	if in == nil {
		return nil, domain.InvalidInput("missing paycheck input")
	}
	if !in.GrossPay.IsPositive() {
		return nil, domain.InvalidInput("grossPay must be greater than zero")
	}
	if in.GrossPay.GreaterThanOrEqual(maxGrossPay) {
		return nil, domain.InvalidInput("grossPay %s is out of range", in.GrossPay)
	}
	if in.TaxableGrossPay.Valid && in.TaxableGrossPay.Decimal.IsNegative() {
		return nil, domain.InvalidInput("taxableGrossPay must not be negative")
	}
	for k, v := range in.PreTaxDeductions {
		if v.IsNegative() {
			return nil, domain.InvalidInput("pre-tax deduction %q must not be negative", k)
		}
	}

	state := strings.ToUpper(strings.TrimSpace(in.State))
	if state == "" {
		return nil, domain.InvalidInput("state is required")
	}
	if !stateCodeRE.MatchString(state) {
		return nil, domain.InvalidInput("malformed state code %q", in.State)
	}
	jur := strings.ToUpper(strings.TrimSpace(in.LocalJurisdiction))
	if jur == "" {
		jur = domain.LocalNone
	}
	if !jurisdictionRE.MatchString(jur) {
		return nil, domain.InvalidInput("malformed local jurisdiction %q", in.LocalJurisdiction)
	}

	if in.FilingStatus == "" {
		return nil, domain.InvalidInput("filingStatus is required")
	}
	filing, ok := domain.ParseFilingStatus(string(in.FilingStatus))
	if !ok {
		return nil, domain.InvalidInput("unknown filingStatus %q", in.FilingStatus)
	}
	status, ok := domain.ParseEmployeeStatus(string(in.EmployeeStatus))
	if !ok {
		return nil, domain.InvalidInput("unknown employeeStatus %q", in.EmployeeStatus)
	}
	if in.PayPeriods == 0 {
		return nil, domain.InvalidInput("payPeriods is required")
	}
	freq, ok := domain.FrequencyForPeriods(in.PayPeriods)
	if !ok {
		return nil, domain.InvalidInput("unsupported payPeriods %d (want 52, 26, 24, 12, 4 or 1)", in.PayPeriods)
	}

	w4 := in.W4
	for name, v := range map[string]decimal.Decimal{
		"step3Credits":           w4.Step3Credits,
		"step4aOtherIncome":      w4.Step4aOtherIncome,
		"step4bDeductions":       w4.Step4bDeductions,
		"step4cExtraWithholding": w4.Step4cExtraWithholding,
	} {
		if v.IsNegative() {
			return nil, domain.InvalidInput("w4Data.%s must not be negative", name)
		}
	}
	if in.YearToDateGross.IsNegative() || in.YearToDateNet.IsNegative() {
		return nil, domain.InvalidInput("year-to-date totals must not be negative")
	}

	year := in.TaxYear
	if year == 0 {
		year = e.defaultYear
	}
	if year < 2000 || year > 2100 {
		return nil, domain.InvalidInput("taxYear %d is out of range", in.TaxYear)
	}

	return &paycheck{
		in:           in,
		year:         year,
		state:        state,
		jurisdiction: jur,
		status:       status,
		filing:       filing,
		frequency:    freq,
		preTaxTotal:  in.PreTaxDeductions.Total(),
		taxableGross: TaxableGross(in),
	}, nil
}
