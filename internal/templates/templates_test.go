package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/paystub-engine/internal/domain"
)

func TestMoney(t *testing.T) {
	tests := map[string]string{
		"0":         "$0.00",
		"12.5":      "$12.50",
		"999.999":   "$1,000.00",
		"1234567.8": "$1,234,567.80",
		"-1395":     "-$1,395.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, money(decimal.RequireFromString(in)), in)
	}
}

func TestIndexRenders(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Index(2026).Render(context.Background(), &sb))
	out := sb.String()
	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, `hx-post="/paystub"`)
	assert.Contains(t, out, `name="filing_status"`)
	assert.Contains(t, out, `<option value="12" selected>`)
	assert.Contains(t, out, "TY 2026")
}

func TestPaystubEscapes(t *testing.T) {
	in := &domain.PaycheckInput{State: "ny", FilingStatus: domain.Single}
	res := &domain.PaystubResult{
		PayFrequency:     domain.Monthly,
		GrossPay:         decimal.NewFromInt(5000),
		PreTaxDeductions: domain.PreTaxDeductions{"medical": decimal.NewFromInt(100), "total": decimal.NewFromInt(100)},
		LocalTaxes: map[string]domain.TaxLine{
			"NYC": {Name: "<script>NYC</script>", Amount: decimal.RequireFromString("300.18")},
		},
		NetPay: decimal.RequireFromString("3210.55"),
	}
	var sb strings.Builder
	require.NoError(t, Paystub(in, res, "CALC-2026-x").Render(context.Background(), &sb))
	out := sb.String()
	assert.Contains(t, out, "CALC-2026-x")
	assert.Contains(t, out, "Pre-tax: Medical")
	assert.NotContains(t, out, "Pre-tax: Total")
	assert.Contains(t, out, "$3,210.55")
	assert.Contains(t, out, "Monthly · Single · NY")
	assert.NotContains(t, out, "<script>NYC")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestErrorNotice(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, ErrorNotice(domain.CodeTableNotFound, "no table for GA").Render(context.Background(), &sb))
	assert.Contains(t, sb.String(), "TABLE_NOT_FOUND")
	assert.Contains(t, sb.String(), "no table for GA")
}

func TestPaystubRowClasses(t *testing.T) {
	in := &domain.PaycheckInput{State: "tx", FilingStatus: domain.HeadOfHousehold}
	res := &domain.PaystubResult{PayFrequency: domain.Biweekly, NetPay: decimal.NewFromInt(1200)}
	var sb strings.Builder
	require.NoError(t, Paystub(in, res, "CALC-2026-y").Render(context.Background(), &sb))
	out := sb.String()
	assert.Contains(t, out, `<tr class="total net"><td>Net Pay</td><td class="amt">$1,200.00</td></tr>`)
	assert.Contains(t, out, "Biweekly · Head Of Household · TX")
	assert.NotContains(t, out, "Additional Medicare")
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var sb strings.Builder
	assert.ErrorIs(t, Index(2026).Render(ctx, &sb), context.Canceled)
	assert.Empty(t, sb.String())
}

func TestPreTaxKeys(t *testing.T) {
	p := domain.PreTaxDeductions{
		"medical": decimal.NewFromInt(1),
		"Total":   decimal.NewFromInt(3),
		"advance": decimal.NewFromInt(2),
	}
	assert.Equal(t, []string{"advance", "medical"}, preTaxKeys(p))
}
