package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/csg33k/paystub-engine/internal/ports"
)

// ── Audit ─────────────────────────────────────────────────────────────────────

func (r *Repository) RecordCalculation(ctx context.Context, e ports.AuditEntry) error {
	if e.CalculatedAt.IsZero() {
		e.CalculatedAt = time.Now()
	}
	in, err := json.Marshal(e.Input)
	if err != nil {
		return err
	}
	out, err := json.Marshal(e.Output)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO payroll_calculations_audit (
			calculation_id, employee_id, calculation_date, tax_year,
			input_data, output_data, calculated_by, ip_address
		) VALUES (?,?,?,?,?,?,?,?)`,
		e.CalculationID, e.EmployeeID, e.CalculatedAt.UTC(), e.TaxYear,
		string(in), string(out), e.CalculatedBy, e.IPAddress,
	)
	return storeErr("record calculation", err)
}

// CountCalculations returns how many audit rows exist for an employee.
func (r *Repository) CountCalculations(ctx context.Context, employeeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payroll_calculations_audit WHERE employee_id=?`, employeeID).Scan(&n)
	return n, err
}
