// Package regulatory loads the per-year constants that are not withholding
// tables: FICA rates, state payroll taxes and local tax rules. The file is
// YAML, one per tax year.
package regulatory

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/csg33k/paystub-engine/internal/domain"
)

type File struct {
	Metadata     Metadata                        `yaml:"metadata"`
	FICA         FICA                            `yaml:"fica"`
	StatePayroll map[string][]PayrollTax         `yaml:"state_payroll"`
	Local        map[string]map[string]LocalRule `yaml:"local"`
}

type Metadata struct {
	TaxYear     int    `yaml:"tax_year"`
	LastUpdated string `yaml:"last_updated,omitempty"`
	Source      string `yaml:"source,omitempty"`
}

type FICA struct {
	SocialSecurity struct {
		Rate     decimal.Decimal `yaml:"rate"`
		WageBase decimal.Decimal `yaml:"wage_base"`
	} `yaml:"social_security"`
	Medicare struct {
		Rate                decimal.Decimal `yaml:"rate"`
		AdditionalRate      decimal.Decimal `yaml:"additional_rate"`
		AdditionalThreshold decimal.Decimal `yaml:"additional_threshold"`
	} `yaml:"medicare"`
}

type PayrollTax struct {
	Type         string           `yaml:"type"`
	Rate         decimal.Decimal  `yaml:"rate"`
	WageBase     *decimal.Decimal `yaml:"wage_base,omitempty"`
	EmployeePaid *bool            `yaml:"employee_paid,omitempty"`
}

type LocalRule struct {
	Kind         string           `yaml:"kind"`
	Rate         *decimal.Decimal `yaml:"rate,omitempty"`
	AnnualAmount *decimal.Decimal `yaml:"annual_amount,omitempty"`
	Brackets     []Bracket        `yaml:"brackets,omitempty"`
}

type Bracket struct {
	Min  decimal.Decimal  `yaml:"min"`
	Max  *decimal.Decimal `yaml:"max,omitempty"`
	Rate decimal.Decimal  `yaml:"rate"`
}

func Read(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse regulatory yaml: %w", err)
	}
	if f.Metadata.TaxYear == 0 {
		return nil, fmt.Errorf("regulatory yaml: metadata.tax_year is required")
	}
	return &f, nil
}

func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Read(fh)
}

// Apply fills the FICA, state payroll and local parts of t for the file's
// tax year. Withholding rows are left alone.
func (f *File) Apply(t *domain.TaxTables) error {
	year := f.Metadata.TaxYear
	if t.Year != 0 && t.Year != year {
		return fmt.Errorf("regulatory file is for %d, tables are for %d", year, t.Year)
	}
	t.Year = year

	t.FICA = &domain.FICARates{
		Year:                        year,
		SocialSecurityRate:          f.FICA.SocialSecurity.Rate,
		SocialSecurityWageBase:      f.FICA.SocialSecurity.WageBase,
		MedicareRate:                f.FICA.Medicare.Rate,
		AdditionalMedicareRate:      f.FICA.Medicare.AdditionalRate,
		AdditionalMedicareThreshold: f.FICA.Medicare.AdditionalThreshold,
	}
	if !t.FICA.SocialSecurityRate.IsPositive() || !t.FICA.SocialSecurityWageBase.IsPositive() || !t.FICA.MedicareRate.IsPositive() {
		return fmt.Errorf("fica: social_security.rate, social_security.wage_base and medicare.rate are required")
	}

	t.StatePayroll = nil
	for _, st := range sortedKeys(f.StatePayroll) {
		for _, p := range f.StatePayroll[st] {
			tax := domain.StatePayrollTax{
				Year:         year,
				State:        strings.ToUpper(st),
				TaxType:      strings.ToUpper(p.Type),
				Rate:         p.Rate,
				EmployeePaid: p.EmployeePaid == nil || *p.EmployeePaid,
			}
			if p.WageBase != nil {
				tax.WageBase = decimal.NewNullDecimal(*p.WageBase)
			}
			if tax.TaxType == "" {
				return fmt.Errorf("state_payroll.%s: type is required", st)
			}
			t.StatePayroll = append(t.StatePayroll, tax)
		}
	}

	t.Local = nil
	for _, st := range sortedKeys(f.Local) {
		byJur := f.Local[st]
		for _, jur := range sortedKeys(byJur) {
			rule, err := byJur[jur].toRule(year, st, jur)
			if err != nil {
				return fmt.Errorf("local.%s.%s: %w", st, jur, err)
			}
			t.Local = append(t.Local, rule)
		}
	}
	return nil
}

func (l LocalRule) toRule(year int, state, jur string) (domain.LocalTaxRule, error) {
	rule := domain.LocalTaxRule{
		Year:         year,
		State:        strings.ToUpper(state),
		Jurisdiction: strings.ToUpper(jur),
		Kind:         domain.LocalTaxKind(strings.ToLower(l.Kind)),
	}
	switch rule.Kind {
	case domain.LocalFlat:
		if l.Rate == nil {
			return rule, fmt.Errorf("flat rule needs rate")
		}
		rule.Rate = *l.Rate
	case domain.LocalFixed:
		if l.AnnualAmount == nil {
			return rule, fmt.Errorf("fixed rule needs annual_amount")
		}
		rule.AnnualAmount = *l.AnnualAmount
	case domain.LocalBrackets:
		if len(l.Brackets) == 0 {
			return rule, fmt.Errorf("brackets rule needs brackets")
		}
		for _, b := range l.Brackets {
			br := domain.LocalTaxBracket{Min: b.Min, Rate: b.Rate}
			if b.Max != nil {
				br.Max = decimal.NewNullDecimal(*b.Max)
			}
			rule.Brackets = append(rule.Brackets, br)
		}
	default:
		return rule, fmt.Errorf("unknown kind %q (want flat, fixed or brackets)", l.Kind)
	}
	return rule, nil
}

// FromTables is the inverse of Apply, for export.
func FromTables(t *domain.TaxTables) *File {
	f := &File{
		Metadata:     Metadata{TaxYear: t.Year},
		StatePayroll: map[string][]PayrollTax{},
		Local:        map[string]map[string]LocalRule{},
	}
	if t.FICA != nil {
		f.FICA.SocialSecurity.Rate = t.FICA.SocialSecurityRate
		f.FICA.SocialSecurity.WageBase = t.FICA.SocialSecurityWageBase
		f.FICA.Medicare.Rate = t.FICA.MedicareRate
		f.FICA.Medicare.AdditionalRate = t.FICA.AdditionalMedicareRate
		f.FICA.Medicare.AdditionalThreshold = t.FICA.AdditionalMedicareThreshold
	}
	for _, p := range t.StatePayroll {
		paid := p.EmployeePaid
		pt := PayrollTax{Type: p.TaxType, Rate: p.Rate, EmployeePaid: &paid}
		if p.WageBase.Valid {
			wb := p.WageBase.Decimal
			pt.WageBase = &wb
		}
		f.StatePayroll[p.State] = append(f.StatePayroll[p.State], pt)
	}
	for _, l := range t.Local {
		lr := LocalRule{Kind: string(l.Kind)}
		switch l.Kind {
		case domain.LocalFlat:
			rate := l.Rate
			lr.Rate = &rate
		case domain.LocalFixed:
			amt := l.AnnualAmount
			lr.AnnualAmount = &amt
		case domain.LocalBrackets:
			for _, b := range l.Brackets {
				br := Bracket{Min: b.Min, Rate: b.Rate}
				if b.Max.Valid {
					m := b.Max.Decimal
					br.Max = &m
				}
				lr.Brackets = append(lr.Brackets, br)
			}
		}
		if f.Local[l.State] == nil {
			f.Local[l.State] = map[string]LocalRule{}
		}
		f.Local[l.State][l.Jurisdiction] = lr
	}
	return f
}

func (f *File) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
