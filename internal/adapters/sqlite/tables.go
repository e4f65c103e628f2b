package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
)

// ── Import ────────────────────────────────────────────────────────────────────

// ImportTables replaces every rate row of t.Year in one transaction.
func (r *Repository) ImportTables(ctx context.Context, t *domain.TaxTables) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tax_years (year, status, effective_date) VALUES (?, 'active', ?)
		 ON CONFLICT(year) DO NOTHING`,
		t.Year, fmt.Sprintf("%d-01-01", t.Year)); err != nil {
		return storeErr("insert tax year", err)
	}
	for _, table := range []string{"withholding_rows", "fica_rates", "state_payroll_taxes", "local_taxes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tax_year=?`, t.Year); err != nil {
			return storeErr("clear "+table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO withholding_rows (
			tax_year, scope, pay_frequency, filing_status, supplemental,
			wage_min, wage_max, fixed_amount, base_amount, rate, excess_over, percentage
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, w := range t.Withholding {
		raw := domain.Raw(w.Formula)
		if _, err := stmt.ExecContext(ctx,
			t.Year, string(w.Key.Scope), string(w.Key.PayFrequency), string(w.Key.FilingStatus),
			boolToInt(w.Key.Supplemental),
			w.WageMin, w.WageMax,
			raw.FixedAmount, raw.BaseAmount, raw.Rate, raw.ExcessOver, raw.Percentage,
		); err != nil {
			return storeErr(fmt.Sprintf("insert %s %s", w.Key, w.RangeString()), err)
		}
	}

	if f := t.FICA; f != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fica_rates (
				tax_year, social_security_rate, social_security_wage_base, medicare_rate,
				additional_medicare_rate, additional_medicare_threshold
			) VALUES (?,?,?,?,?,?)`,
			t.Year, f.SocialSecurityRate, f.SocialSecurityWageBase, f.MedicareRate,
			f.AdditionalMedicareRate, f.AdditionalMedicareThreshold,
		); err != nil {
			return storeErr("insert FICA rates", err)
		}
	}

	for _, p := range t.StatePayroll {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO state_payroll_taxes (tax_year, state_code, tax_type, rate, wage_base, employee_paid)
			VALUES (?,UPPER(?),UPPER(?),?,?,?)`,
			t.Year, p.State, p.TaxType, p.Rate, p.WageBase, boolToInt(p.EmployeePaid),
		); err != nil {
			return storeErr(fmt.Sprintf("insert %s %s", p.State, p.TaxType), err)
		}
	}

	for _, l := range t.Local {
		var brackets sql.NullString
		if len(l.Brackets) > 0 {
			b, err := json.Marshal(l.Brackets)
			if err != nil {
				return err
			}
			brackets = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO local_taxes (tax_year, state_code, jurisdiction, kind, rate, annual_amount, brackets_json)
			VALUES (?,UPPER(?),UPPER(?),?,?,?,?)`,
			t.Year, l.State, l.Jurisdiction, string(l.Kind),
			nullIfZero(l.Rate), nullIfZero(l.AnnualAmount), brackets,
		); err != nil {
			return storeErr(fmt.Sprintf("insert local %s", l.Scope()), err)
		}
	}

	return tx.Commit()
}

// ── Snapshot ──────────────────────────────────────────────────────────────────

// Snapshot reads every rate row of one year inside a single read
// transaction. Employer-paid payroll taxes are included.
func (r *Repository) Snapshot(ctx context.Context, year int) (*domain.TaxTables, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	t := &domain.TaxTables{Year: year}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, scope, pay_frequency, filing_status, supplemental,
		       wage_min, wage_max, fixed_amount, base_amount, rate, excess_over, percentage
		FROM withholding_rows WHERE tax_year=? ORDER BY id`, year)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		w := domain.WithholdingRow{Key: domain.LookupKey{Year: year}}
		var (
			scope, freq, status string
			supplemental        int
			raw                 domain.RawFormula
		)
		if err := rows.Scan(
			&w.ID, &scope, &freq, &status, &supplemental,
			&w.WageMin, &w.WageMax,
			&raw.FixedAmount, &raw.BaseAmount, &raw.Rate, &raw.ExcessOver, &raw.Percentage,
		); err != nil {
			rows.Close()
			return nil, err
		}
		w.Key.Scope = domain.Scope(scope)
		w.Key.PayFrequency = domain.PayFrequency(freq)
		w.Key.FilingStatus = domain.FilingStatus(status)
		w.Key.Supplemental = supplemental == 1
		if w.Formula, err = domain.ResolveFormula(w.Key.Scope.Kind(), w.WageMin, raw); err != nil {
			rows.Close()
			return nil, domain.DataIntegrity("withholding row %d (%s): %v", w.ID, w.Key, err)
		}
		t.Withholding = append(t.Withholding, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	f := domain.FICARates{Year: year}
	err = tx.QueryRowContext(ctx, `
		SELECT social_security_rate, social_security_wage_base, medicare_rate,
		       additional_medicare_rate, additional_medicare_threshold
		FROM fica_rates WHERE tax_year=?`, year).Scan(
		&f.SocialSecurityRate, &f.SocialSecurityWageBase, &f.MedicareRate,
		&f.AdditionalMedicareRate, &f.AdditionalMedicareThreshold,
	)
	switch {
	case err == nil:
		t.FICA = &f
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	if t.StatePayroll, err = scanPayroll(ctx, tx, year); err != nil {
		return nil, err
	}
	if t.Local, err = scanLocal(ctx, tx, year); err != nil {
		return nil, err
	}
	return t, tx.Commit()
}

func scanPayroll(ctx context.Context, tx *sql.Tx, year int) ([]domain.StatePayrollTax, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tax_year, state_code, tax_type, rate, wage_base, employee_paid
		FROM state_payroll_taxes WHERE tax_year=? ORDER BY state_code, tax_type`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return readPayroll(rows)
}

func scanLocal(ctx context.Context, tx *sql.Tx, year int) ([]domain.LocalTaxRule, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tax_year, state_code, jurisdiction, kind, rate, annual_amount, brackets_json
		FROM local_taxes WHERE tax_year=? ORDER BY state_code, jurisdiction`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return readLocal(rows)
}

// ── Duplicates ────────────────────────────────────────────────────────────────

// Duplicate is a set of withholding rows sharing a key and wage_min.
type Duplicate struct {
	Key     domain.LookupKey
	WageMin decimal.Decimal
	IDs     string
	Count   int
}

// Duplicates finds rows a lookup could never reach because an earlier row
// with the same key and wage_min shadows them.
func (r *Repository) Duplicates(ctx context.Context, year int) ([]Duplicate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT scope, pay_frequency, filing_status, supplemental, wage_min,
		       GROUP_CONCAT(id), COUNT(*)
		FROM withholding_rows
		WHERE tax_year=?
		GROUP BY scope, pay_frequency, filing_status, supplemental, wage_min
		HAVING COUNT(*) > 1
		ORDER BY scope, pay_frequency, filing_status, supplemental, wage_min`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Duplicate
	for rows.Next() {
		dup := Duplicate{Key: domain.LookupKey{Year: year}}
		var scope, freq, status string
		var supplemental int
		if err := rows.Scan(&scope, &freq, &status, &supplemental, &dup.WageMin, &dup.IDs, &dup.Count); err != nil {
			return nil, err
		}
		dup.Key.Scope = domain.Scope(scope)
		dup.Key.PayFrequency = domain.PayFrequency(freq)
		dup.Key.FilingStatus = domain.FilingStatus(status)
		dup.Key.Supplemental = supplemental == 1
		out = append(out, dup)
	}
	return out, rows.Err()
}

func decodeBrackets(s string) ([]domain.LocalTaxBracket, error) {
	var b []domain.LocalTaxBracket
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return nil, fmt.Errorf("brackets_json: %w", err)
	}
	return b, nil
}

func nullIfZero(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
