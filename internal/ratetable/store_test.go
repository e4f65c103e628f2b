package ratetable_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ratetable"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var key = domain.LookupKey{Year: 2026, Scope: domain.FederalScope, PayFrequency: domain.Biweekly, FilingStatus: domain.MarriedJointly}

// rows builds a partition from boundaries; "" as the last bound is unbounded.
func rows(k domain.LookupKey, bounds ...string) []domain.WithholdingRow {
	out := make([]domain.WithholdingRow, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		r := domain.WithholdingRow{
			ID:      int64(i + 1),
			Key:     k,
			WageMin: d(bounds[i]),
			Formula: domain.PercentageMethod{Base: decimal.NewFromInt(int64(i)), Rate: d("0.1"), ExcessOver: d(bounds[i])},
		}
		if bounds[i+1] != "" {
			r.WageMax = decimal.NewNullDecimal(d(bounds[i+1]))
		}
		out = append(out, r)
	}
	return out
}

func TestBuildRejectsBrokenPartitions(t *testing.T) {
	tests := []struct {
		name string
		rows []domain.WithholdingRow
		msg  string
	}{
		{"gap", append(rows(key, "0", "100"), rows(key, "150", "")...), "gap"},
		{"not from zero", rows(key, "10", "100", ""), "not 0"},
		{"bounded top", rows(key, "0", "100", "200"), "bounded"},
		{"empty range", rows(key, "0", "100", "100", ""), "empty"},
		{"no formula", func() []domain.WithholdingRow {
			r := rows(key, "0", "")
			r[0].Formula = nil
			return r
		}(), "no calculation mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ratetable.Build(&domain.TaxTables{Year: 2026, Withholding: tt.rows})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrDataIntegrity))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCheckPartitionOverlapAndDuplicate(t *testing.T) {
	r := rows(key, "0", "100", "")
	overlap := append(r[:1:1], domain.WithholdingRow{Key: key, WageMin: d("90"), Formula: r[1].Formula})
	issues := ratetable.CheckPartition(key, overlap)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "overlap")

	dup := []domain.WithholdingRow{r[0], r[0], r[1]}
	issues = ratetable.CheckPartition(key, dup)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Message, "duplicate")
}

func TestBuildRejectsMergedDuplicates(t *testing.T) {
	a := &domain.TaxTables{Year: 2026, Withholding: rows(key, "0", "100", "")}
	b := &domain.TaxTables{Year: 2026, Withholding: rows(key, "0", "100", "")}
	_, err := ratetable.Build(a, b)
	assert.True(t, errors.Is(err, domain.ErrDataIntegrity))
}

func TestBuildRejectsDuplicateLocalRules(t *testing.T) {
	rule := domain.LocalTaxRule{Year: 2026, State: "PA", Jurisdiction: "LOCAL_LST", Kind: domain.LocalFixed, AnnualAmount: d("52")}
	_, err := ratetable.Build(&domain.TaxTables{Year: 2026, Local: []domain.LocalTaxRule{rule, rule}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate local tax rule")
}

func TestValidateLocalBrackets(t *testing.T) {
	bad := domain.LocalTaxRule{
		Year: 2026, State: "NY", Jurisdiction: "NYC", Kind: domain.LocalBrackets,
		Brackets: []domain.LocalTaxBracket{
			{Min: d("12000"), Rate: d("0.04")},
			{Min: d("0"), Max: decimal.NewNullDecimal(d("10000")), Rate: d("0.03")},
		},
	}
	issues := ratetable.ValidateLocal([]domain.LocalTaxRule{bad})
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "gap")

	empty := domain.LocalTaxRule{Year: 2026, State: "NY", Jurisdiction: "X", Kind: domain.LocalBrackets}
	assert.NotEmpty(t, ratetable.ValidateLocal([]domain.LocalTaxRule{empty}))

	unknown := domain.LocalTaxRule{Year: 2026, State: "NY", Jurisdiction: "X", Kind: "graduated"}
	assert.NotEmpty(t, ratetable.ValidateLocal([]domain.LocalTaxRule{unknown}))
}

// Every non-negative wage lands in exactly one row of a valid partition.
func TestLookupPartitionProperty(t *testing.T) {
	bounds := []string{"0", "315", "1236", "4050", "8214", "15346", "19512", "29315", ""}
	part := rows(key, bounds...)
	// shuffle so Build has to order them
	rng := rand.New(rand.NewSource(2026))
	rng.Shuffle(len(part), func(i, j int) { part[i], part[j] = part[j], part[i] })

	s, err := ratetable.Build(&domain.TaxTables{Year: 2026, Withholding: part})
	require.NoError(t, err)

	check := func(w decimal.Decimal) {
		row, found, err := s.LookupWithholding(context.Background(), key, w)
		require.NoError(t, err)
		require.True(t, found, "wage %s", w)
		require.True(t, row.Contains(w), "wage %s in %s", w, row.RangeString())
		hits := 0
		for _, r := range s.Rows(key) {
			if r.Contains(w) {
				hits++
			}
		}
		require.Equal(t, 1, hits, "wage %s", w)
	}
	for i := 0; i < 2000; i++ {
		check(decimal.New(rng.Int63n(5_000_000), -2))
	}
	for _, b := range bounds[:len(bounds)-1] {
		check(d(b))
		if b != "0" {
			check(d(b).Sub(d("0.01")))
		}
	}

	_, found, err := s.LookupWithholding(context.Background(), key, d("-1"))
	require.NoError(t, err)
	assert.False(t, found)

	other := key
	other.FilingStatus = domain.Single
	_, found, err = s.LookupWithholding(context.Background(), other, d("500"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreLookups(t *testing.T) {
	s, err := ratetable.Build(&domain.TaxTables{
		Year: 2026,
		FICA: &domain.FICARates{Year: 2026, SocialSecurityRate: d("0.062")},
		StatePayroll: []domain.StatePayrollTax{
			{Year: 2026, State: "NJ", TaxType: "UI", Rate: d("0.003825"), EmployeePaid: true},
			{Year: 2026, State: "NJ", TaxType: "ER", Rate: d("0.01"), EmployeePaid: false},
		},
		Local: []domain.LocalTaxRule{
			{Year: 2026, State: "PA", Jurisdiction: "LOCAL_LST", Kind: domain.LocalFixed, AnnualAmount: d("52")},
		},
	})
	require.NoError(t, err)
	ctx := context.Background()

	f, ok, err := s.FICARates(ctx, 2026)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, f.SocialSecurityRate.Equal(d("0.062")))
	_, ok, _ = s.FICARates(ctx, 2025)
	assert.False(t, ok)

	taxes, err := s.StatePayrollTaxes(ctx, 2026, "nj")
	require.NoError(t, err)
	require.Len(t, taxes, 1)
	assert.Equal(t, "UI", taxes[0].TaxType)

	rule, ok, err := s.LocalTax(ctx, 2026, "pa", "local_lst")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.LocalFixed, rule.Kind)

	assert.Equal(t, []int{2026}, s.Years())
}

type memSource struct{ tables map[int]*domain.TaxTables }

func (m memSource) TaxYears(context.Context) ([]domain.TaxYearInfo, error) {
	var out []domain.TaxYearInfo
	for y := range m.tables {
		out = append(out, domain.TaxYearInfo{Year: y, Status: "active"})
	}
	return out, nil
}

func (m memSource) Snapshot(_ context.Context, year int) (*domain.TaxTables, error) {
	t, ok := m.tables[year]
	if !ok {
		return nil, errors.New("no such year")
	}
	return t, nil
}

func TestLoad(t *testing.T) {
	src := memSource{tables: map[int]*domain.TaxTables{
		2025: {Year: 2025, Withholding: rows(domain.LookupKey{Year: 2025, Scope: domain.FederalScope, PayFrequency: domain.Weekly, FilingStatus: domain.Single}, "0", "")},
		2026: {Year: 2026, Withholding: rows(key, "0", "100", "")},
	}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := ratetable.Load(context.Background(), src, log)
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2026}, s.Years())
	assert.Len(t, s.Keys(), 2)

	s, err = ratetable.Load(context.Background(), src, log, 2026)
	require.NoError(t, err)
	assert.Equal(t, []int{2026}, s.Years())

	_, err = ratetable.Load(context.Background(), src, log, 2030)
	assert.Error(t, err)
}

func TestStatusOf(t *testing.T) {
	rep := ratetable.StatusOf(&domain.TaxTables{Year: 2026, Withholding: rows(key, "0", "")})
	assert.False(t, rep.Ready)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "fica_rates")
	assert.NotEmpty(t, rep.Warnings)

	rep = ratetable.StatusOf(&domain.TaxTables{
		Year:        2026,
		Withholding: rows(key, "0", ""),
		FICA:        &domain.FICARates{Year: 2026},
	})
	assert.True(t, rep.Ready)
}
