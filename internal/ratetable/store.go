// Package ratetable is an in-memory RateTableStore. Tables are loaded and
// validated once at startup and never mutated afterwards, so lookups from
// any number of goroutines need no locking.
package ratetable

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
)

type localKey struct {
	year         int
	state        string
	jurisdiction string
}

type payrollKey struct {
	year  int
	state string
}

type Store struct {
	withholding map[domain.LookupKey][]domain.WithholdingRow
	fica        map[int]domain.FICARates
	payroll     map[payrollKey][]domain.StatePayrollTax
	local       map[localKey]domain.LocalTaxRule
	years       []int
}

var _ ports.RateTableStore = (*Store)(nil)

// Build indexes one or more tax years. Any partition gap, overlap or
// duplicate is rejected with a DATA_INTEGRITY error.
func Build(tables ...*domain.TaxTables) (*Store, error) {
	s := &Store{
		withholding: make(map[domain.LookupKey][]domain.WithholdingRow),
		fica:        make(map[int]domain.FICARates),
		payroll:     make(map[payrollKey][]domain.StatePayrollTax),
		local:       make(map[localKey]domain.LocalTaxRule),
	}
	var issues []Issue
	for _, t := range tables {
		if t == nil {
			continue
		}
		issues = append(issues, Validate(t.Withholding)...)
		issues = append(issues, ValidateLocal(t.Local)...)
		for k, g := range Group(t.Withholding) {
			s.withholding[k] = append(s.withholding[k], g...)
		}
		if t.FICA != nil {
			s.fica[t.Year] = *t.FICA
		}
		for _, p := range t.StatePayroll {
			k := payrollKey{p.Year, strings.ToUpper(p.State)}
			s.payroll[k] = append(s.payroll[k], p)
		}
		for _, l := range t.Local {
			k := localKey{l.Year, strings.ToUpper(l.State), strings.ToUpper(l.Jurisdiction)}
			if _, dup := s.local[k]; dup {
				issues = append(issues, Issue{Key: domain.LookupKey{Year: l.Year, Scope: l.Scope()}, Message: "duplicate local tax rule"})
			}
			s.local[k] = l
		}
		s.years = append(s.years, t.Year)
	}
	if err := IntegrityError(issues); err != nil {
		return nil, err
	}
	// Multiple snapshots of one year would merge partitions; re-check.
	for k, g := range s.withholding {
		sort.SliceStable(g, func(i, j int) bool { return g[i].WageMin.LessThan(g[j].WageMin) })
		if err := IntegrityError(CheckPartition(k, g)); err != nil {
			return nil, err
		}
	}
	sort.Ints(s.years)
	return s, nil
}

// Load snapshots the requested years from src and builds a store. With no
// years given, every year src knows about is loaded.
func Load(ctx context.Context, src ports.TableSource, log *slog.Logger, years ...int) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(years) == 0 {
		infos, err := src.TaxYears(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tax years: %w", err)
		}
		for _, i := range infos {
			years = append(years, i.Year)
		}
	}
	snaps := make([]*domain.TaxTables, 0, len(years))
	for _, y := range years {
		t, err := src.Snapshot(ctx, y)
		if err != nil {
			return nil, fmt.Errorf("snapshot TY%d: %w", y, err)
		}
		log.Info("rate tables loaded",
			"year", y,
			"withholdingRows", len(t.Withholding),
			"statePayrollTaxes", len(t.StatePayroll),
			"localRules", len(t.Local),
		)
		snaps = append(snaps, t)
	}
	return Build(snaps...)
}

// Years returns the loaded tax years, ascending.
func (s *Store) Years() []int { return s.years }

func (s *Store) LookupWithholding(_ context.Context, key domain.LookupKey, wage decimal.Decimal) (domain.WithholdingRow, bool, error) {
	rows := s.withholding[key]
	// First row whose range ends above wage; partitions are contiguous.
	i := sort.Search(len(rows), func(i int) bool {
		return !rows[i].WageMax.Valid || wage.LessThan(rows[i].WageMax.Decimal)
	})
	if i < len(rows) && rows[i].Contains(wage) {
		return rows[i], true, nil
	}
	return domain.WithholdingRow{}, false, nil
}

func (s *Store) FICARates(_ context.Context, year int) (domain.FICARates, bool, error) {
	r, ok := s.fica[year]
	return r, ok, nil
}

func (s *Store) StatePayrollTaxes(_ context.Context, year int, state string) ([]domain.StatePayrollTax, error) {
	var out []domain.StatePayrollTax
	for _, t := range s.payroll[payrollKey{year, strings.ToUpper(state)}] {
		if t.EmployeePaid {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) LocalTax(_ context.Context, year int, state, jurisdiction string) (domain.LocalTaxRule, bool, error) {
	r, ok := s.local[localKey{year, strings.ToUpper(state), strings.ToUpper(jurisdiction)}]
	return r, ok, nil
}

// Keys returns every withholding partition key, sorted.
func (s *Store) Keys() []domain.LookupKey {
	keys := make([]domain.LookupKey, 0, len(s.withholding))
	for k := range s.withholding {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Rows returns one partition in wage order.
func (s *Store) Rows(key domain.LookupKey) []domain.WithholdingRow {
	return s.withholding[key]
}
