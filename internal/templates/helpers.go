// Package templates holds the HTML components of the paystub calculator.
// Components live in .templ files; run `mage generate` after editing them.
package templates

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
)

type option struct{ value, label string }

var (
	filingOptions = []option{
		{string(domain.Single), "Single"},
		{string(domain.MarriedJointly), "Married filing jointly"},
		{string(domain.MarriedSeparately), "Married filing separately"},
		{string(domain.HeadOfHousehold), "Head of household"},
	}
	statusOptions = []option{
		{string(domain.USCitizen), "US citizen"},
		{string(domain.GreenCard), "Green card"},
		{string(domain.H1B), "H-1B"},
		{string(domain.OPT), "F-1 OPT (FICA exempt)"},
	}
	periodOptions = []option{
		{"52", "Weekly (52)"},
		{"26", "Biweekly (26)"},
		{"24", "Semimonthly (24)"},
		{"12", "Monthly (12)"},
		{"4", "Quarterly (4)"},
		{"1", "Annually (1)"},
	}
)

// money formats an amount as "$1,234.56".
func money(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// humanize turns "HEAD_OF_HOUSEHOLD" into "Head Of Household".
func humanize(s string) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// summary is the "Monthly · Single · NY" line under the paystub heading.
func summary(in *domain.PaycheckInput, res *domain.PaystubResult) string {
	return humanize(string(res.PayFrequency)) + " · " + humanize(string(in.FilingStatus)) + " · " + strings.ToUpper(in.State)
}

// preTaxKeys lists the deduction categories, skipping an echoed "total".
func preTaxKeys(p domain.PreTaxDeductions) []string {
	keys := sortedKeys(p)
	out := keys[:0]
	for _, k := range keys {
		if !strings.EqualFold(k, "total") {
			out = append(out, k)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
