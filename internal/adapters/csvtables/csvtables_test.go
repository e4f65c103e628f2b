package csvtables_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/paystub-engine/internal/adapters/csvtables"
	"github.com/csg33k/paystub-engine/internal/domain"
)

const sample = `tax_year,scope,pay_frequency,filing_status,step2,wage_min,wage_max,fixed_amount,base_amount,rate,excess_over,percentage
2026,federal,MONTHLY,SINGLE,false,0,5000,0,,,,
2026,federal,MONTHLY,SINGLE,false,5000,10000,,460,0.22,5000,
2026,federal,MONTHLY,SINGLE,false,10000,,,1560,,,0.24
2026,federal,monthly,single,true,0,,,0,0.22,,
2026,state:ca,MONTHLY,SINGLE,false,0,,,,0.04,,
`

func TestRead(t *testing.T) {
	rows, err := csvtables.Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, domain.ModeFixed, rows[0].Formula.Mode())

	r := rows[1]
	assert.Equal(t, domain.FederalScope, r.Key.Scope)
	assert.Equal(t, domain.Monthly, r.Key.PayFrequency)
	assert.True(t, r.Formula.Apply(decimal.RequireFromString("8749.70")).Equal(decimal.RequireFromString("1284.934")))

	// legacy percentage column measures from wage_min
	assert.False(t, rows[2].WageMax.Valid)
	assert.True(t, rows[2].Formula.Apply(decimal.NewFromInt(11000)).Equal(decimal.NewFromInt(1800)))

	assert.True(t, rows[3].Key.Supplemental)
	assert.Equal(t, domain.Single, rows[3].Key.FilingStatus)

	assert.Equal(t, domain.StateScope("CA"), rows[4].Key.Scope)
	assert.True(t, rows[4].Formula.Apply(decimal.NewFromInt(8013)).Equal(decimal.RequireFromString("320.52")))

	assert.Len(t, csvtables.ByYear(rows)[2026], 5)
}

func TestWriteThenRead(t *testing.T) {
	rows, err := csvtables.Read(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, csvtables.Write(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "tax_year,scope,pay_frequency"))

	again, err := csvtables.Read(&buf)
	require.NoError(t, err)
	require.Len(t, again, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].Key, again[i].Key)
		assert.Equal(t, rows[i].RangeString(), again[i].RangeString())
		w := rows[i].WageMin.Add(decimal.RequireFromString("123.45"))
		assert.True(t, rows[i].Formula.Apply(w).Equal(again[i].Formula.Apply(w)), "row %d", i)
	}
}

func TestReadReportsLine(t *testing.T) {
	bad := `tax_year,scope,pay_frequency,filing_status,step2,wage_min,wage_max,fixed_amount,base_amount,rate,excess_over,percentage
2026,federal,MONTHLY,SINGLE,false,0,,0,,,,
2026,federal,FORTNIGHTLY,SINGLE,false,0,,0,,,,
`
	_, err := csvtables.Read(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "FORTNIGHTLY")

	noFormula := `tax_year,scope,pay_frequency,filing_status,step2,wage_min,wage_max,fixed_amount,base_amount,rate,excess_over,percentage
2026,federal,MONTHLY,SINGLE,false,0,,,,,,
`
	_, err = csvtables.Read(strings.NewReader(noFormula))
	assert.ErrorIs(t, err, domain.ErrNoFormula)
}
