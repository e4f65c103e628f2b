package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/paystub-engine/internal/adapters/sqlite"
	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
	"github.com/csg33k/paystub-engine/internal/ratetable"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

var fedKey = domain.LookupKey{Year: 2026, Scope: domain.FederalScope, PayFrequency: domain.Monthly, FilingStatus: domain.Single}

func sampleTables() *domain.TaxTables {
	caKey := domain.LookupKey{Year: 2026, Scope: domain.StateScope("CA"), PayFrequency: domain.Monthly, FilingStatus: domain.Single}
	return &domain.TaxTables{
		Year: 2026,
		Withholding: []domain.WithholdingRow{
			{Key: fedKey, WageMin: d("0"), WageMax: nd("5000"), Formula: domain.FixedAmount{Amount: d("0")}},
			{Key: fedKey, WageMin: d("5000"), WageMax: nd("10000"), Formula: domain.PercentageMethod{Base: d("460"), Rate: d("0.22"), ExcessOver: d("5000")}},
			{Key: fedKey, WageMin: d("10000"), Formula: domain.PercentageMethod{Base: d("1560"), Rate: d("0.24"), ExcessOver: d("10000")}},
			{Key: caKey, WageMin: d("0"), Formula: domain.PercentageMethod{Rate: d("0.04")}},
		},
		FICA: &domain.FICARates{
			Year:                        2026,
			SocialSecurityRate:          d("0.062"),
			SocialSecurityWageBase:      d("184500"),
			MedicareRate:                d("0.0145"),
			AdditionalMedicareRate:      d("0.009"),
			AdditionalMedicareThreshold: d("200000"),
		},
		StatePayroll: []domain.StatePayrollTax{
			{Year: 2026, State: "CA", TaxType: "SDI", Rate: d("0.011"), WageBase: nd("153164"), EmployeePaid: true},
			{Year: 2026, State: "CA", TaxType: "ETT", Rate: d("0.001"), WageBase: nd("7000")},
		},
		Local: []domain.LocalTaxRule{
			{Year: 2026, State: "NY", Jurisdiction: "NYC", Kind: domain.LocalBrackets, Brackets: []domain.LocalTaxBracket{
				{Min: d("0"), Max: nd("12000"), Rate: d("0.03078")},
				{Min: d("12000"), Rate: d("0.03762")},
			}},
			{Year: 2026, State: "PA", Jurisdiction: "LOCAL_LST", Kind: domain.LocalFixed, AnnualAmount: d("52")},
		},
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.New(filepath.Join(t.TempDir(), "paystub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	applied, err := repo.Migrate(context.Background(), filepath.Join("..", "..", "..", "db", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, applied)
	return repo
}

func importedRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo := newRepo(t)
	require.NoError(t, repo.ImportTables(context.Background(), sampleTables()))
	return repo
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := newRepo(t)
	applied, err := repo.Migrate(context.Background(), filepath.Join("..", "..", "..", "db", "migrations"))
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestLookupWithholding(t *testing.T) {
	repo := importedRepo(t)
	ctx := context.Background()

	row, found, err := repo.LookupWithholding(ctx, fedKey, d("8749.70"))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, row.WageMin.Equal(d("5000")))
	assert.True(t, row.Formula.Apply(d("8749.70")).Equal(d("1284.934")))

	row, found, err = repo.LookupWithholding(ctx, fedKey, d("10000"))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, row.WageMin.Equal(d("10000")), "upper bound is exclusive")
	assert.False(t, row.WageMax.Valid)

	row, found, err = repo.LookupWithholding(ctx, fedKey, d("9999999"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.ModePercentage, row.Formula.Mode())

	step2 := fedKey
	step2.Supplemental = true
	_, found, err = repo.LookupWithholding(ctx, step2, d("8000"))
	require.NoError(t, err)
	assert.False(t, found)

	other := fedKey
	other.Year = 2025
	_, found, err = repo.LookupWithholding(ctx, other, d("8000"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStateRowsUseEffectiveRate(t *testing.T) {
	repo := importedRepo(t)
	key := domain.LookupKey{Year: 2026, Scope: domain.StateScope("CA"), PayFrequency: domain.Monthly, FilingStatus: domain.Single}
	row, found, err := repo.LookupWithholding(context.Background(), key, d("8013"))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, row.Formula.Apply(d("8013")).Equal(d("320.52")))
}

func TestFICAAndPayroll(t *testing.T) {
	repo := importedRepo(t)
	ctx := context.Background()

	f, found, err := repo.FICARates(ctx, 2026)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, f.SocialSecurityWageBase.Equal(d("184500")))
	assert.True(t, f.AdditionalMedicareRate.Equal(d("0.009")))

	_, found, err = repo.FICARates(ctx, 2024)
	require.NoError(t, err)
	assert.False(t, found)

	taxes, err := repo.StatePayrollTaxes(ctx, 2026, "ca")
	require.NoError(t, err)
	require.Len(t, taxes, 1)
	assert.Equal(t, "SDI", taxes[0].TaxType)
	assert.True(t, taxes[0].WageBase.Decimal.Equal(d("153164")))
}

func TestLocalTax(t *testing.T) {
	repo := importedRepo(t)
	ctx := context.Background()

	nyc, found, err := repo.LocalTax(ctx, 2026, "ny", "nyc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.LocalBrackets, nyc.Kind)
	require.Len(t, nyc.Brackets, 2)
	assert.True(t, nyc.Brackets[1].Rate.Equal(d("0.03762")))
	assert.False(t, nyc.Brackets[1].Max.Valid)

	lst, found, err := repo.LocalTax(ctx, 2026, "PA", "LOCAL_LST")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, lst.AnnualAmount.Equal(d("52")))

	_, found, err = repo.LocalTax(ctx, 2026, "NY", "ALBANY")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSnapshotBuildsStore(t *testing.T) {
	repo := importedRepo(t)
	ctx := context.Background()

	years, err := repo.TaxYears(ctx)
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, 2026, years[0].Year)

	snap, err := repo.Snapshot(ctx, 2026)
	require.NoError(t, err)
	assert.Len(t, snap.Withholding, 4)
	assert.Len(t, snap.StatePayroll, 2, "employer-paid rows are part of the snapshot")
	require.NotNil(t, snap.FICA)

	var store ports.RateTableStore
	store, err = ratetable.Load(ctx, repo, nil, 2026)
	require.NoError(t, err)
	row, found, err := store.LookupWithholding(ctx, fedKey, d("8749.70"))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, row.WageMin.Equal(d("5000")))
}

func TestReimportReplacesYear(t *testing.T) {
	repo := importedRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.ImportTables(ctx, sampleTables()))

	snap, err := repo.Snapshot(ctx, 2026)
	require.NoError(t, err)
	assert.Len(t, snap.Withholding, 4)

	dups, err := repo.Duplicates(ctx, 2026)
	require.NoError(t, err)
	assert.Empty(t, dups)
}

func TestDuplicatesAndFirstRowWins(t *testing.T) {
	repo := importedRepo(t)
	ctx := context.Background()
	_, err := repo.DB().ExecContext(ctx, `
		INSERT INTO withholding_rows (tax_year, scope, pay_frequency, filing_status, supplemental, wage_min, wage_max, fixed_amount)
		VALUES (2026, 'federal', 'MONTHLY', 'SINGLE', 0, 5000, 10000, 999)`)
	require.NoError(t, err)

	dups, err := repo.Duplicates(ctx, 2026)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, 2, dups[0].Count)
	assert.True(t, dups[0].WageMin.Equal(d("5000")))

	row, found, err := repo.LookupWithholding(ctx, fedKey, d("6000"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.ModePercentage, row.Formula.Mode(), "the earlier row shadows the duplicate")

	snap, err := repo.Snapshot(ctx, 2026)
	require.NoError(t, err)
	assert.NotEmpty(t, ratetable.Validate(snap.Withholding))
}

func TestRecordCalculation(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	in := &domain.PaycheckInput{EmployeeID: "E-100", GrossPay: d("5000"), State: "TX", PayPeriods: 26}
	out := &domain.PaystubResult{TaxYear: 2026, GrossPay: d("5000"), NetPay: d("4000")}

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.RecordCalculation(ctx, ports.AuditEntry{
			CalculationID: "CALC-2026-test",
			EmployeeID:    "E-100",
			TaxYear:       2026,
			Input:         in,
			Output:        out,
			CalculatedBy:  "api",
			IPAddress:     "127.0.0.1",
		}))
	}
	n, err := repo.CountCalculations(ctx, "E-100")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
