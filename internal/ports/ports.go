package ports

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
)

// RateTableStore is the read-only lookup contract the calculators depend on.
// A missing row is reported with found=false, not an error; errors are
// reserved for store failures.
type RateTableStore interface {
	// LookupWithholding returns the row whose [WageMin, WageMax) contains wage.
	LookupWithholding(ctx context.Context, key domain.LookupKey, wage decimal.Decimal) (row domain.WithholdingRow, found bool, err error)
	FICARates(ctx context.Context, year int) (rates domain.FICARates, found bool, err error)
	// StatePayrollTaxes returns the employee-paid payroll taxes for a state.
	// An empty slice is a valid answer.
	StatePayrollTaxes(ctx context.Context, year int, state string) ([]domain.StatePayrollTax, error)
	LocalTax(ctx context.Context, year int, state, jurisdiction string) (rule domain.LocalTaxRule, found bool, err error)
}

// TableSource loads whole tax years, for building an in-memory store.
type TableSource interface {
	TaxYears(ctx context.Context) ([]domain.TaxYearInfo, error)
	Snapshot(ctx context.Context, year int) (*domain.TaxTables, error)
}

// TableWriter is the data-provisioning side: bulk-replaces a tax year.
type TableWriter interface {
	ImportTables(ctx context.Context, t *domain.TaxTables) error
}

// AuditEntry is one compliance record of a calculation.
type AuditEntry struct {
	CalculationID string
	EmployeeID    string
	TaxYear       int
	CalculatedAt  time.Time
	Input         *domain.PaycheckInput
	Output        *domain.PaystubResult
	CalculatedBy  string
	IPAddress     string
}

// AuditLog records calculations. Writes never affect a result.
type AuditLog interface {
	RecordCalculation(ctx context.Context, e AuditEntry) error
}

// PaystubCalculator is the core's one operation.
type PaystubCalculator interface {
	Calculate(ctx context.Context, in *domain.PaycheckInput) (*domain.PaystubResult, error)
}

// PaystubRenderer defines the document output port.
type PaystubRenderer interface {
	Render(in *domain.PaycheckInput, res *domain.PaystubResult, w io.Writer) error
}
