package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
)

type Repository struct {
	db *sql.DB
}

var (
	_ ports.RateTableStore = (*Repository)(nil)
	_ ports.TableSource    = (*Repository)(nil)
	_ ports.TableWriter    = (*Repository)(nil)
	_ ports.AuditLog       = (*Repository)(nil)
)

// New opens the SQLite database. Schema migrations are managed by dbmate;
// run `dbmate up` (or `mage dbup`) before starting the server.
func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// DB exposes the handle for migrations and tests.
func (r *Repository) DB() *sql.DB { return r.db }

func (r *Repository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// ── Tax years ─────────────────────────────────────────────────────────────────

func (r *Repository) TaxYears(ctx context.Context) ([]domain.TaxYearInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT year, status, effective_date FROM tax_years ORDER BY year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TaxYearInfo
	for rows.Next() {
		var y domain.TaxYearInfo
		if err := rows.Scan(&y.Year, &y.Status, &y.EffectiveDate); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

// ── Rate lookups ──────────────────────────────────────────────────────────────

// Each lookup is a single SELECT and runs outside a transaction.

// LookupWithholding returns the row whose [wage_min, wage_max) holds wage.
// Should a bad import leave overlapping rows, the lowest id wins; `taxdata
// verify` reports the overlap.
func (r *Repository) LookupWithholding(ctx context.Context, key domain.LookupKey, wage decimal.Decimal) (domain.WithholdingRow, bool, error) {
	row := domain.WithholdingRow{Key: key}
	var raw domain.RawFormula
	err := r.db.QueryRowContext(ctx, `
		SELECT id, wage_min, wage_max, fixed_amount, base_amount, rate, excess_over, percentage
		FROM withholding_rows
		WHERE tax_year=? AND scope=? AND pay_frequency=? AND filing_status=? AND supplemental=?
		  AND wage_min <= ? AND (wage_max IS NULL OR ? < wage_max)
		ORDER BY id LIMIT 1`,
		key.Year, string(key.Scope), string(key.PayFrequency), string(key.FilingStatus), boolToInt(key.Supplemental),
		wage, wage,
	).Scan(
		&row.ID, &row.WageMin, &row.WageMax,
		&raw.FixedAmount, &raw.BaseAmount, &raw.Rate, &raw.ExcessOver, &raw.Percentage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WithholdingRow{}, false, nil
	}
	if err != nil {
		return domain.WithholdingRow{}, false, err
	}
	if row.Formula, err = domain.ResolveFormula(key.Scope.Kind(), row.WageMin, raw); err != nil {
		return domain.WithholdingRow{}, false, domain.DataIntegrity("withholding row %d: %v", row.ID, err)
	}
	return row, true, nil
}

func (r *Repository) FICARates(ctx context.Context, year int) (domain.FICARates, bool, error) {
	f := domain.FICARates{Year: year}
	err := r.db.QueryRowContext(ctx, `
		SELECT social_security_rate, social_security_wage_base, medicare_rate,
		       additional_medicare_rate, additional_medicare_threshold
		FROM fica_rates WHERE tax_year=?`, year).Scan(
		&f.SocialSecurityRate, &f.SocialSecurityWageBase, &f.MedicareRate,
		&f.AdditionalMedicareRate, &f.AdditionalMedicareThreshold,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FICARates{}, false, nil
	}
	if err != nil {
		return domain.FICARates{}, false, err
	}
	return f, true, nil
}

func (r *Repository) StatePayrollTaxes(ctx context.Context, year int, state string) ([]domain.StatePayrollTax, error) {
	return r.statePayroll(ctx, `
		SELECT tax_year, state_code, tax_type, rate, wage_base, employee_paid
		FROM state_payroll_taxes
		WHERE tax_year=? AND state_code=UPPER(?) AND employee_paid=1
		ORDER BY tax_type`, year, state)
}

func (r *Repository) LocalTax(ctx context.Context, year int, state, jurisdiction string) (domain.LocalTaxRule, bool, error) {
	rules, err := r.localTaxes(ctx, `
		SELECT tax_year, state_code, jurisdiction, kind, rate, annual_amount, brackets_json
		FROM local_taxes
		WHERE tax_year=? AND state_code=UPPER(?) AND jurisdiction=UPPER(?)`, year, state, jurisdiction)
	if err != nil || len(rules) == 0 {
		return domain.LocalTaxRule{}, false, err
	}
	return rules[0], true, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (r *Repository) statePayroll(ctx context.Context, query string, args ...any) ([]domain.StatePayrollTax, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return readPayroll(rows)
}

func (r *Repository) localTaxes(ctx context.Context, query string, args ...any) ([]domain.LocalTaxRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return readLocal(rows)
}

func readPayroll(rows *sql.Rows) ([]domain.StatePayrollTax, error) {
	var out []domain.StatePayrollTax
	for rows.Next() {
		var t domain.StatePayrollTax
		var employeePaid int
		if err := rows.Scan(&t.Year, &t.State, &t.TaxType, &t.Rate, &t.WageBase, &employeePaid); err != nil {
			return nil, err
		}
		t.EmployeePaid = employeePaid == 1
		out = append(out, t)
	}
	return out, rows.Err()
}

func readLocal(rows *sql.Rows) ([]domain.LocalTaxRule, error) {
	var out []domain.LocalTaxRule
	for rows.Next() {
		var (
			l        domain.LocalTaxRule
			kind     string
			rate     decimal.NullDecimal
			annual   decimal.NullDecimal
			brackets sql.NullString
		)
		if err := rows.Scan(&l.Year, &l.State, &l.Jurisdiction, &kind, &rate, &annual, &brackets); err != nil {
			return nil, err
		}
		l.Kind = domain.LocalTaxKind(kind)
		l.Rate = rate.Decimal
		l.AnnualAmount = annual.Decimal
		if brackets.Valid && brackets.String != "" {
			b, err := decodeBrackets(brackets.String)
			if err != nil {
				return nil, domain.DataIntegrity("local tax %s: %v", l.Scope(), err)
			}
			l.Brackets = b
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
