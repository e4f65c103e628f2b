package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scope identifies the taxing authority a withholding row belongs to:
// "federal", "state:CA" or "local:NY/NYC".
type Scope string

const FederalScope Scope = "federal"

type ScopeKind string

const (
	ScopeFederal ScopeKind = "federal"
	ScopeState   ScopeKind = "state"
	ScopeLocal   ScopeKind = "local"
)

func StateScope(state string) Scope {
	return Scope("state:" + strings.ToUpper(state))
}

func LocalScope(state, jurisdiction string) Scope {
	return Scope("local:" + strings.ToUpper(state) + "/" + strings.ToUpper(jurisdiction))
}

// Kind returns the scope's authority level, or "" when malformed.
func (s Scope) Kind() ScopeKind {
	switch {
	case s == FederalScope:
		return ScopeFederal
	case strings.HasPrefix(string(s), "state:") && len(s) > len("state:"):
		return ScopeState
	case strings.HasPrefix(string(s), "local:") && strings.Contains(string(s), "/"):
		return ScopeLocal
	}
	return ""
}

// ParseScope validates and normalizes a scope string.
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.TrimSpace(s))
	switch {
	case strings.EqualFold(string(sc), string(FederalScope)):
		return FederalScope, nil
	case strings.HasPrefix(string(sc), "state:"):
		code := strings.TrimPrefix(string(sc), "state:")
		if len(code) != 2 {
			return "", fmt.Errorf("malformed state scope %q", s)
		}
		return StateScope(code), nil
	case strings.HasPrefix(string(sc), "local:"):
		st, jur, ok := strings.Cut(strings.TrimPrefix(string(sc), "local:"), "/")
		if !ok || len(st) != 2 || jur == "" {
			return "", fmt.Errorf("malformed local scope %q", s)
		}
		return LocalScope(st, jur), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// LookupKey addresses one partition of a withholding table.
type LookupKey struct {
	Year         int
	Scope        Scope
	PayFrequency PayFrequency
	FilingStatus FilingStatus
	// Supplemental is the federal Step 2 (multiple jobs) variant.
	Supplemental bool
}

func (k LookupKey) String() string {
	s := fmt.Sprintf("year=%d scope=%s freq=%s status=%s", k.Year, k.Scope, k.PayFrequency, k.FilingStatus)
	if k.Scope == FederalScope {
		s += fmt.Sprintf(" step2=%t", k.Supplemental)
	}
	return s
}

// WithholdingRow is one wage range of a piecewise withholding formula.
// The range is [WageMin, WageMax); an invalid WageMax is unbounded.
type WithholdingRow struct {
	ID      int64
	Key     LookupKey
	WageMin decimal.Decimal
	WageMax decimal.NullDecimal
	Formula Formula
}

func (r WithholdingRow) Contains(wage decimal.Decimal) bool {
	if wage.LessThan(r.WageMin) {
		return false
	}
	return !r.WageMax.Valid || wage.LessThan(r.WageMax.Decimal)
}

func (r WithholdingRow) RangeString() string {
	max := "inf"
	if r.WageMax.Valid {
		max = r.WageMax.Decimal.String()
	}
	return fmt.Sprintf("[%s, %s)", r.WageMin, max)
}

// FICARates holds the federal payroll tax constants for one year.
type FICARates struct {
	Year                        int
	SocialSecurityRate          decimal.Decimal
	SocialSecurityWageBase      decimal.Decimal
	MedicareRate                decimal.Decimal
	AdditionalMedicareRate      decimal.Decimal
	AdditionalMedicareThreshold decimal.Decimal
}

// WageBaseCap is an annual ceiling for a capped tax, or a threshold above
// which an additional tax applies. An invalid AnnualCap means uncapped.
type WageBaseCap struct {
	Year      int
	TaxType   string
	AnnualCap decimal.NullDecimal
	Rate      decimal.Decimal
}

func (f FICARates) SocialSecurityCap() WageBaseCap {
	return WageBaseCap{
		Year:      f.Year,
		TaxType:   "SOCIAL_SECURITY",
		AnnualCap: decimal.NewNullDecimal(f.SocialSecurityWageBase),
		Rate:      f.SocialSecurityRate,
	}
}

func (f FICARates) MedicareCap() WageBaseCap {
	return WageBaseCap{Year: f.Year, TaxType: "MEDICARE", Rate: f.MedicareRate}
}

func (f FICARates) AdditionalMedicareCap() WageBaseCap {
	return WageBaseCap{
		Year:      f.Year,
		TaxType:   "ADDITIONAL_MEDICARE",
		AnnualCap: decimal.NewNullDecimal(f.AdditionalMedicareThreshold),
		Rate:      f.AdditionalMedicareRate,
	}
}

// StatePayrollTax is an employee-paid state payroll tax (UI, SDI, PFL, ...).
type StatePayrollTax struct {
	Year         int
	State        string
	TaxType      string
	Rate         decimal.Decimal
	WageBase     decimal.NullDecimal
	EmployeePaid bool
}

func (t StatePayrollTax) Cap() WageBaseCap {
	return WageBaseCap{Year: t.Year, TaxType: t.TaxType, AnnualCap: t.WageBase, Rate: t.Rate}
}

var payrollTaxNames = map[string]string{
	"UI":           "Unemployment Insurance",
	"DI":           "Disability Insurance",
	"FLI":          "Family Leave Insurance",
	"SDI":          "State Disability Insurance",
	"PFL":          "Paid Family Leave",
	"TDI":          "Temporary Disability Insurance",
	"PFML":         "Paid Family Medical Leave",
	"FAMLI":        "Family Medical Leave Insurance",
	"PLO":          "Paid Leave Oregon",
	"PL":           "Paid Leave",
	"WA_CARES_LTC": "WA Cares Long-Term Care",
}

// PayrollTaxName returns the display name for a payroll tax code.
func PayrollTaxName(taxType string) string {
	if n, ok := payrollTaxNames[strings.ToUpper(taxType)]; ok {
		return n
	}
	return taxType
}

type LocalTaxKind string

const (
	// LocalFlat applies Rate to period wages.
	LocalFlat LocalTaxKind = "flat"
	// LocalFixed prorates AnnualAmount across pay periods (head taxes).
	LocalFixed LocalTaxKind = "fixed"
	// LocalBrackets applies marginal brackets to annualized wages.
	LocalBrackets LocalTaxKind = "brackets"
)

type LocalTaxBracket struct {
	Min  decimal.Decimal     `json:"min"`
	Max  decimal.NullDecimal `json:"max"`
	Rate decimal.Decimal     `json:"rate"`
}

// LocalTaxRule is the rule for one city, county or district.
type LocalTaxRule struct {
	Year         int
	State        string
	Jurisdiction string
	Kind         LocalTaxKind
	Rate         decimal.Decimal
	AnnualAmount decimal.Decimal
	Brackets     []LocalTaxBracket
}

func (r LocalTaxRule) Scope() Scope { return LocalScope(r.State, r.Jurisdiction) }

// TaxTables is everything the engine reads for one tax year.
type TaxTables struct {
	Year         int
	Withholding  []WithholdingRow
	FICA         *FICARates
	StatePayroll []StatePayrollTax
	Local        []LocalTaxRule
}

// TaxYearInfo describes a provisioned tax year.
type TaxYearInfo struct {
	Year          int
	Status        string
	EffectiveDate string
}
