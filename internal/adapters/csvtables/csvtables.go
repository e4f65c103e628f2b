// Package csvtables reads and writes withholding tables as CSV, one wage
// range per line:
//
//	tax_year,scope,pay_frequency,filing_status,step2,wage_min,wage_max,fixed_amount,base_amount,rate,excess_over,percentage
//	2026,federal,MONTHLY,SINGLE,false,5000,10000,,460,0.22,5000,
//
// Empty cells are NULL; an empty wage_max is unbounded.
package csvtables

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
)

type record struct {
	TaxYear      int    `csv:"tax_year"`
	Scope        string `csv:"scope"`
	PayFrequency string `csv:"pay_frequency"`
	FilingStatus string `csv:"filing_status"`
	Step2        bool   `csv:"step2"`
	WageMin      amount `csv:"wage_min"`
	WageMax      amount `csv:"wage_max"`
	FixedAmount  amount `csv:"fixed_amount"`
	BaseAmount   amount `csv:"base_amount"`
	Rate         amount `csv:"rate"`
	ExcessOver   amount `csv:"excess_over"`
	Percentage   amount `csv:"percentage"`
}

// amount is a nullable decimal cell.
type amount decimal.NullDecimal

func (a *amount) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		*a = amount{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*a = amount{Decimal: d, Valid: true}
	return nil
}

func (a amount) MarshalCSV() (string, error) {
	if !a.Valid {
		return "", nil
	}
	return a.Decimal.String(), nil
}

func (a amount) null() decimal.NullDecimal { return decimal.NullDecimal(a) }

// Read parses withholding rows and resolves each row's formula. Errors
// carry the CSV line number.
func Read(r io.Reader) ([]domain.WithholdingRow, error) {
	var recs []*record
	if err := gocsv.Unmarshal(r, &recs); err != nil {
		return nil, fmt.Errorf("parse withholding csv: %w", err)
	}
	rows := make([]domain.WithholdingRow, 0, len(recs))
	for i, rec := range recs {
		row, err := rec.toRow()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (rec *record) toRow() (domain.WithholdingRow, error) {
	scope, err := domain.ParseScope(rec.Scope)
	if err != nil {
		return domain.WithholdingRow{}, err
	}
	freq, ok := domain.ParsePayFrequency(rec.PayFrequency)
	if !ok {
		return domain.WithholdingRow{}, fmt.Errorf("unknown pay_frequency %q", rec.PayFrequency)
	}
	status, ok := domain.ParseFilingStatus(rec.FilingStatus)
	if !ok {
		return domain.WithholdingRow{}, fmt.Errorf("unknown filing_status %q", rec.FilingStatus)
	}
	if !rec.WageMin.Valid {
		return domain.WithholdingRow{}, fmt.Errorf("wage_min is required")
	}
	if rec.TaxYear == 0 {
		return domain.WithholdingRow{}, fmt.Errorf("tax_year is required")
	}

	row := domain.WithholdingRow{
		Key: domain.LookupKey{
			Year:         rec.TaxYear,
			Scope:        scope,
			PayFrequency: freq,
			FilingStatus: status,
			Supplemental: rec.Step2 && scope == domain.FederalScope,
		},
		WageMin: rec.WageMin.Decimal,
		WageMax: rec.WageMax.null(),
	}
	row.Formula, err = domain.ResolveFormula(scope.Kind(), row.WageMin, domain.RawFormula{
		FixedAmount: rec.FixedAmount.null(),
		BaseAmount:  rec.BaseAmount.null(),
		Rate:        rec.Rate.null(),
		ExcessOver:  rec.ExcessOver.null(),
		Percentage:  rec.Percentage.null(),
	})
	if err != nil {
		return domain.WithholdingRow{}, fmt.Errorf("%s %s: %w", row.Key, row.RangeString(), err)
	}
	return row, nil
}

// Write emits rows in the same layout Read accepts.
func Write(w io.Writer, rows []domain.WithholdingRow) error {
	recs := make([]*record, 0, len(rows))
	for _, r := range rows {
		raw := domain.Raw(r.Formula)
		recs = append(recs, &record{
			TaxYear:      r.Key.Year,
			Scope:        string(r.Key.Scope),
			PayFrequency: string(r.Key.PayFrequency),
			FilingStatus: string(r.Key.FilingStatus),
			Step2:        r.Key.Supplemental,
			WageMin:      amount(decimal.NewNullDecimal(r.WageMin)),
			WageMax:      amount(r.WageMax),
			FixedAmount:  amount(raw.FixedAmount),
			BaseAmount:   amount(raw.BaseAmount),
			Rate:         amount(raw.Rate),
			ExcessOver:   amount(raw.ExcessOver),
			Percentage:   amount(raw.Percentage),
		})
	}
	return gocsv.Marshal(recs, w)
}

// ByYear splits rows by tax year.
func ByYear(rows []domain.WithholdingRow) map[int][]domain.WithholdingRow {
	out := make(map[int][]domain.WithholdingRow)
	for _, r := range rows {
		out[r.Key.Year] = append(out[r.Key.Year], r)
	}
	return out
}
