package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultTaxYear = 2026

// LocalNone is the jurisdiction code for "no local tax".
const LocalNone = "NONE"

// PayFrequency selects the withholding table partition for a pay period length.
type PayFrequency string

const (
	Weekly      PayFrequency = "WEEKLY"
	Biweekly    PayFrequency = "BIWEEKLY"
	Semimonthly PayFrequency = "SEMIMONTHLY"
	Monthly     PayFrequency = "MONTHLY"
	Quarterly   PayFrequency = "QUARTERLY"
	Annually    PayFrequency = "ANNUALLY"
)

var periodsPerYear = map[PayFrequency]int{
	Weekly:      52,
	Biweekly:    26,
	Semimonthly: 24,
	Monthly:     12,
	Quarterly:   4,
	Annually:    1,
}

// PeriodsPerYear returns the number of pay periods in a year, or 0 for an
// unknown frequency.
func (f PayFrequency) PeriodsPerYear() int { return periodsPerYear[f] }

// FrequencyForPeriods maps a pay-periods-per-year count to its frequency.
func FrequencyForPeriods(n int) (PayFrequency, bool) {
	for f, p := range periodsPerYear {
		if p == n {
			return f, true
		}
	}
	return "", false
}

// ParsePayFrequency accepts any casing of the frequency name.
func ParsePayFrequency(s string) (PayFrequency, bool) {
	f := PayFrequency(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := periodsPerYear[f]
	return f, ok
}

// PayFrequencies lists every frequency, shortest period first.
func PayFrequencies() []PayFrequency {
	return []PayFrequency{Weekly, Biweekly, Semimonthly, Monthly, Quarterly, Annually}
}

type FilingStatus string

const (
	Single            FilingStatus = "SINGLE"
	Married           FilingStatus = "MARRIED"
	MarriedJointly    FilingStatus = "MARRIED_JOINTLY"
	MarriedSeparately FilingStatus = "MARRIED_SEPARATELY"
	HeadOfHousehold   FilingStatus = "HEAD_OF_HOUSEHOLD"
)

// ParseFilingStatus normalizes case and spaces ("head of household" works).
func ParseFilingStatus(s string) (FilingStatus, bool) {
	fs := FilingStatus(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "_"))
	switch fs {
	case Single, Married, MarriedJointly, MarriedSeparately, HeadOfHousehold:
		return fs, true
	}
	return "", false
}

// EmployeeStatus is the employee's work-authorization category.
type EmployeeStatus string

const (
	USCitizen EmployeeStatus = "US_CITIZEN"
	GreenCard EmployeeStatus = "GREEN_CARD"
	H1B       EmployeeStatus = "H1B"
	OPT       EmployeeStatus = "OPT"
)

func ParseEmployeeStatus(s string) (EmployeeStatus, bool) {
	st := EmployeeStatus(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "_"))
	switch st {
	case "":
		return USCitizen, true
	case USCitizen, GreenCard, H1B, OPT:
		return st, true
	}
	return "", false
}

// FICAExempt reports whether wages for this status are exempt from Social
// Security and Medicare. F-1 students on OPT are nonresident aliens for FICA.
func (s EmployeeStatus) FICAExempt() bool { return s == OPT }

// W4Adjustments carries the Form W-4 Step 2/3/4 elections.
type W4Adjustments struct {
	// Step2Checkbox selects the higher-withholding table variant.
	Step2Checkbox bool `json:"step2Checkbox"`
	// Step3Credits is an annual dollar amount.
	Step3Credits decimal.Decimal `json:"step3Credits"`
	// Step4aOtherIncome is already per pay period.
	Step4aOtherIncome decimal.Decimal `json:"step4aOtherIncome"`
	// Step4bDeductions is an annual dollar amount.
	Step4bDeductions decimal.Decimal `json:"step4bDeductions"`
	// Step4cExtraWithholding is per pay period.
	Step4cExtraWithholding decimal.Decimal `json:"step4cExtraWithholding"`
}

// PreTaxDeductions is a breakdown of pre-tax deductions by category
// (advance, medical, miscellaneous, ...).
type PreTaxDeductions map[string]decimal.Decimal

// Total sums every category. A "total" key supplied by the caller is an echo
// of a previous result and is not counted.
func (p PreTaxDeductions) Total() decimal.Decimal {
	sum := decimal.Zero
	for k, v := range p {
		if strings.EqualFold(k, "total") {
			continue
		}
		sum = sum.Add(v)
	}
	return sum
}

type PaycheckInput struct {
	EmployeeID        string              `json:"employeeId,omitempty"`
	GrossPay          decimal.Decimal     `json:"grossPay"`
	TaxableGrossPay   decimal.NullDecimal `json:"taxableGrossPay"`
	PreTaxDeductions  PreTaxDeductions    `json:"preTaxDeductions,omitempty"`
	State             string              `json:"state"`
	LocalJurisdiction string              `json:"localJurisdiction,omitempty"`
	EmployeeStatus    EmployeeStatus      `json:"employeeStatus,omitempty"`
	FilingStatus      FilingStatus        `json:"filingStatus"`
	PayPeriods        int                 `json:"payPeriods"`
	W4                W4Adjustments       `json:"w4Data"`
	YearToDateGross   decimal.Decimal     `json:"yearToDateGross"`
	YearToDateNet     decimal.Decimal     `json:"yearToDateNet"`
	TaxYear           int                 `json:"taxYear,omitempty"`
}

// TaxLine is one named tax amount on a paystub.
type TaxLine struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// SumLines adds up the amounts of a tax-line mapping.
func SumLines(lines map[string]TaxLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Amount)
	}
	return sum
}

type PaystubResult struct {
	TaxYear               int                `json:"taxYear"`
	PayFrequency          PayFrequency       `json:"payFrequency"`
	GrossPay              decimal.Decimal    `json:"grossPay"`
	PreTaxDeductions      PreTaxDeductions   `json:"preTaxDeductions"`
	PreTaxDeductionsTotal decimal.Decimal    `json:"preTaxDeductionsTotal"`
	TaxableGrossPay       decimal.Decimal    `json:"taxableGrossPay"`
	FederalIncomeTax      decimal.Decimal    `json:"federalIncomeTax"`
	StateIncomeTax        decimal.Decimal    `json:"stateIncomeTax"`
	StatePayrollTaxes     map[string]TaxLine `json:"statePayrollTaxes"`
	LocalTaxes            map[string]TaxLine `json:"localTaxes"`
	SocialSecurity        decimal.Decimal    `json:"socialSecurity"`
	Medicare              decimal.Decimal    `json:"medicare"`
	AdditionalMedicare    decimal.Decimal    `json:"additionalMedicare"`
	TotalDeductions       decimal.Decimal    `json:"totalDeductions"`
	NetPay                decimal.Decimal    `json:"netPay"`
	YTDGross              decimal.Decimal    `json:"ytdGross"`
	YTDNet                decimal.Decimal    `json:"ytdNet"`
	AnnualGross           decimal.Decimal    `json:"annualGross"`
}

// RoundCents rounds half away from zero to two places.
func RoundCents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// RoundDollars rounds half away from zero to a whole dollar (IRS rounding).
func RoundDollars(d decimal.Decimal) decimal.Decimal { return d.Round(0) }

// FloorZero clamps negative amounts to zero.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
