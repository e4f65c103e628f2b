package calc_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/paystub-engine/internal/calc"
	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
	"github.com/csg33k/paystub-engine/internal/ratetable"
)

const year = 2026

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !d(want).Equal(got) {
		t.Errorf("want %s, got %s", want, got)
	}
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type band struct {
	min, max string
	f        domain.Formula
}

func marginal(base, rate, over string) domain.Formula {
	return domain.PercentageMethod{Base: d(base), Rate: d(rate), ExcessOver: d(over)}
}

func effective(rate string) domain.Formula {
	return domain.PercentageMethod{Base: decimal.Zero, Rate: d(rate), ExcessOver: decimal.Zero}
}

func partition(key domain.LookupKey, bands ...band) []domain.WithholdingRow {
	rows := make([]domain.WithholdingRow, len(bands))
	for i, b := range bands {
		rows[i] = domain.WithholdingRow{ID: int64(i + 1), Key: key, WageMin: d(b.min), Formula: b.f}
		if b.max != "" {
			rows[i].WageMax = nd(b.max)
		}
	}
	return rows
}

func federalKey(freq domain.PayFrequency, fs domain.FilingStatus, step2 bool) domain.LookupKey {
	return domain.LookupKey{Year: year, Scope: domain.FederalScope, PayFrequency: freq, FilingStatus: fs, Supplemental: step2}
}

func stateKey(state string, freq domain.PayFrequency, fs domain.FilingStatus) domain.LookupKey {
	return domain.LookupKey{Year: year, Scope: domain.StateScope(state), PayFrequency: freq, FilingStatus: fs}
}

// fixtureTables is a small but internally consistent 2026 data set.
func fixtureTables() *domain.TaxTables {
	var rows []domain.WithholdingRow
	rows = append(rows, partition(federalKey(domain.Monthly, domain.Single, false),
		band{"0", "1000", domain.FixedAmount{Amount: decimal.Zero}},
		band{"1000", "2000", marginal("0", "0.10", "1000")},
		band{"2000", "5000", marginal("100", "0.12", "2000")},
		band{"5000", "10000", marginal("460", "0.22", "5000")},
		band{"10000", "20000", marginal("1560", "0.24", "10000")},
		band{"20000", "", marginal("3960", "0.32", "20000")},
	)...)
	rows = append(rows, partition(federalKey(domain.Monthly, domain.Single, true),
		band{"0", "500", domain.FixedAmount{Amount: decimal.Zero}},
		band{"500", "", marginal("0", "0.22", "500")},
	)...)
	rows = append(rows, partition(stateKey("CA", domain.Monthly, domain.Single),
		band{"0", "2000", effective("0.01")},
		band{"2000", "", effective("0.04")},
	)...)
	rows = append(rows, partition(stateKey("NY", domain.Monthly, domain.Single),
		band{"0", "", effective("0.05")},
	)...)

	return &domain.TaxTables{
		Year:        year,
		Withholding: rows,
		FICA: &domain.FICARates{
			Year:                        year,
			SocialSecurityRate:          d("0.062"),
			SocialSecurityWageBase:      d("184500"),
			MedicareRate:                d("0.0145"),
			AdditionalMedicareRate:      d("0.009"),
			AdditionalMedicareThreshold: d("200000"),
		},
		StatePayroll: []domain.StatePayrollTax{
			{Year: year, State: "CA", TaxType: "SDI", Rate: d("0.011"), WageBase: nd("153164"), EmployeePaid: true},
			{Year: year, State: "CA", TaxType: "ETT", Rate: d("0.001"), WageBase: nd("7000"), EmployeePaid: false},
		},
		Local: []domain.LocalTaxRule{
			{Year: year, State: "NY", Jurisdiction: "NYC", Kind: domain.LocalBrackets, Brackets: []domain.LocalTaxBracket{
				{Min: d("0"), Max: nd("12000"), Rate: d("0.03078")},
				{Min: d("12000"), Max: nd("25000"), Rate: d("0.03762")},
				{Min: d("25000"), Max: nd("50000"), Rate: d("0.03819")},
				{Min: d("50000"), Rate: d("0.03876")},
			}},
			{Year: year, State: "NY", Jurisdiction: "YONKERS", Kind: domain.LocalFlat, Rate: d("0.015")},
			{Year: year, State: "PA", Jurisdiction: "LOCAL_LST", Kind: domain.LocalFixed, AnnualAmount: d("52")},
		},
	}
}

func fixtureStore(t *testing.T) *ratetable.Store {
	t.Helper()
	s, err := ratetable.Build(fixtureTables())
	require.NoError(t, err)
	return s
}

// spyStore records which scopes the engine asked for.
type spyStore struct {
	ports.RateTableStore

	mu     sync.Mutex
	scopes []domain.Scope
	calls  int
}

func (s *spyStore) record(scope domain.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes = append(s.scopes, scope)
	s.calls++
}

func (s *spyStore) LookupWithholding(ctx context.Context, key domain.LookupKey, wage decimal.Decimal) (domain.WithholdingRow, bool, error) {
	s.record(key.Scope)
	return s.RateTableStore.LookupWithholding(ctx, key, wage)
}

func (s *spyStore) FICARates(ctx context.Context, y int) (domain.FICARates, bool, error) {
	s.record("fica")
	return s.RateTableStore.FICARates(ctx, y)
}

func (s *spyStore) StatePayrollTaxes(ctx context.Context, y int, state string) ([]domain.StatePayrollTax, error) {
	s.record(domain.Scope("payroll:" + state))
	return s.RateTableStore.StatePayrollTaxes(ctx, y, state)
}

func (s *spyStore) LocalTax(ctx context.Context, y int, state, jur string) (domain.LocalTaxRule, bool, error) {
	s.record(domain.LocalScope(state, jur))
	return s.RateTableStore.LocalTax(ctx, y, state, jur)
}

func (s *spyStore) Scopes() []domain.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Scope(nil), s.scopes...)
}

func (s *spyStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errOffline = errors.New("store offline")

// failingStore fails every query.
type failingStore struct{}

func (failingStore) LookupWithholding(context.Context, domain.LookupKey, decimal.Decimal) (domain.WithholdingRow, bool, error) {
	return domain.WithholdingRow{}, false, errOffline
}

func (failingStore) FICARates(context.Context, int) (domain.FICARates, bool, error) {
	return domain.FICARates{}, false, errOffline
}

func (failingStore) StatePayrollTaxes(context.Context, int, string) ([]domain.StatePayrollTax, error) {
	return nil, errOffline
}

func (failingStore) LocalTax(context.Context, int, string, string) (domain.LocalTaxRule, bool, error) {
	return domain.LocalTaxRule{}, false, errOffline
}

func newEngine(store ports.RateTableStore) *calc.Engine {
	return calc.New(store, calc.WithLogger(quietLogger()), calc.WithDefaultYear(year))
}

func monthlyInput(gross string) *domain.PaycheckInput {
	return &domain.PaycheckInput{
		GrossPay:          d(gross),
		State:             "CA",
		LocalJurisdiction: domain.LocalNone,
		EmployeeStatus:    domain.USCitizen,
		FilingStatus:      domain.Single,
		PayPeriods:        12,
	}
}
