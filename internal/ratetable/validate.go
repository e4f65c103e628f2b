package ratetable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/csg33k/paystub-engine/internal/domain"
)

// Issue is one violation found in provisioned rate data.
type Issue struct {
	Key     domain.LookupKey
	Message string
}

func (i Issue) String() string { return i.Key.String() + ": " + i.Message }

// Group sorts rows into their lookup partitions, each ordered by WageMin.
func Group(rows []domain.WithholdingRow) map[domain.LookupKey][]domain.WithholdingRow {
	groups := make(map[domain.LookupKey][]domain.WithholdingRow)
	for _, r := range rows {
		groups[r.Key] = append(groups[r.Key], r)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].WageMin.LessThan(g[j].WageMin) })
	}
	return groups
}

// CheckPartition verifies one group, sorted by WageMin, covers [0, inf)
// exactly once: starts at zero, every WageMax meets the next WageMin, only the
// last row is unbounded, and no range is empty.
func CheckPartition(key domain.LookupKey, rows []domain.WithholdingRow) []Issue {
	var issues []Issue
	add := func(format string, args ...any) {
		issues = append(issues, Issue{Key: key, Message: fmt.Sprintf(format, args...)})
	}
	if len(rows) == 0 {
		return nil
	}
	if !rows[0].WageMin.IsZero() {
		add("first range starts at %s, not 0", rows[0].WageMin)
	}
	for i, r := range rows {
		if r.Formula == nil {
			add("range %s has no calculation mode", r.RangeString())
		}
		last := i == len(rows)-1
		if !r.WageMax.Valid {
			if !last {
				add("range %s is unbounded but followed by %s", r.RangeString(), rows[i+1].RangeString())
			}
			continue
		}
		if !r.WageMax.Decimal.GreaterThan(r.WageMin) {
			add("range %s is empty", r.RangeString())
		}
		if last {
			add("last range %s is bounded; wages above %s have no row", r.RangeString(), r.WageMax.Decimal)
			continue
		}
		next := rows[i+1]
		switch {
		case next.WageMin.Equal(r.WageMin):
			add("duplicate ranges %s and %s", r.RangeString(), next.RangeString())
		case next.WageMin.GreaterThan(r.WageMax.Decimal):
			add("gap between %s and %s", r.RangeString(), next.RangeString())
		case next.WageMin.LessThan(r.WageMax.Decimal):
			add("overlap between %s and %s", r.RangeString(), next.RangeString())
		}
	}
	return issues
}

// Validate checks every partition in rows. The result is sorted by key.
func Validate(rows []domain.WithholdingRow) []Issue {
	var issues []Issue
	for key, g := range Group(rows) {
		issues = append(issues, CheckPartition(key, g)...)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].String() < issues[j].String() })
	return issues
}

// ValidateLocal checks bracket-kind local rules the same way.
func ValidateLocal(rules []domain.LocalTaxRule) []Issue {
	var issues []Issue
	for _, r := range rules {
		key := domain.LookupKey{Year: r.Year, Scope: r.Scope()}
		switch r.Kind {
		case domain.LocalFlat, domain.LocalFixed:
		case domain.LocalBrackets:
			rows := make([]domain.WithholdingRow, len(r.Brackets))
			for i, b := range r.Brackets {
				rows[i] = domain.WithholdingRow{
					Key:     key,
					WageMin: b.Min,
					WageMax: b.Max,
					Formula: domain.PercentageMethod{Rate: b.Rate, ExcessOver: b.Min},
				}
			}
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].WageMin.LessThan(rows[j].WageMin) })
			if len(rows) == 0 {
				issues = append(issues, Issue{Key: key, Message: "bracket rule has no brackets"})
			}
			issues = append(issues, CheckPartition(key, rows)...)
		default:
			issues = append(issues, Issue{Key: key, Message: fmt.Sprintf("unknown kind %q", r.Kind)})
		}
	}
	return issues
}

// IntegrityError folds issues into a DATA_INTEGRITY error, or nil.
func IntegrityError(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(issues))
	for _, i := range issues {
		msgs = append(msgs, i.String())
	}
	return domain.DataIntegrity("%d rate table issue(s): %s", len(issues), strings.Join(msgs, "; "))
}
