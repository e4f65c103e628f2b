package ratetable

import (
	"fmt"

	"github.com/csg33k/paystub-engine/internal/domain"
)

// TableStatus is the row count of one kind of rate data for a year.
type TableStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Critical    bool   `json:"critical"`
	Count       int    `json:"count"`
	MinRows     int    `json:"minRows"`
	Valid       bool   `json:"valid"`
}

// Report says whether a tax year is provisioned well enough to serve.
type Report struct {
	TaxYear  int           `json:"taxYear"`
	Ready    bool          `json:"ready"`
	Tables   []TableStatus `json:"tables"`
	Errors   []string      `json:"errors"`
	Warnings []string      `json:"warnings"`
}

// StatusOf reports on a snapshot. A critical table under its minimum makes
// the year not ready; any partition issue is an error too.
func StatusOf(t *domain.TaxTables) Report {
	var federal, state int
	for _, r := range t.Withholding {
		switch r.Key.Scope.Kind() {
		case domain.ScopeFederal:
			federal++
		case domain.ScopeState:
			state++
		}
	}
	fica := 0
	if t.FICA != nil {
		fica = 1
	}

	rep := Report{TaxYear: t.Year, Errors: []string{}, Warnings: []string{}}
	for _, ts := range []TableStatus{
		{Name: "fica_rates", Description: "FICA rates (Social Security, Medicare)", Critical: true, Count: fica, MinRows: 1},
		{Name: "withholding_rows:federal", Description: "Federal percentage method tables", Critical: true, Count: federal, MinRows: 1},
		{Name: "withholding_rows:state", Description: "State withholding tables", Count: state, MinRows: 1},
		{Name: "state_payroll_taxes", Description: "State payroll taxes", Count: len(t.StatePayroll), MinRows: 1},
		{Name: "local_taxes", Description: "Local tax rules", Count: len(t.Local), MinRows: 1},
	} {
		ts.Valid = ts.Count >= ts.MinRows
		if !ts.Valid {
			msg := fmt.Sprintf("%s (%s): found %d, need %d", ts.Description, ts.Name, ts.Count, ts.MinRows)
			if ts.Critical {
				rep.Errors = append(rep.Errors, "CRITICAL: "+msg)
			} else {
				rep.Warnings = append(rep.Warnings, msg)
			}
		}
		rep.Tables = append(rep.Tables, ts)
	}
	for _, i := range Validate(t.Withholding) {
		rep.Errors = append(rep.Errors, i.String())
	}
	for _, i := range ValidateLocal(t.Local) {
		rep.Errors = append(rep.Errors, i.String())
	}
	rep.Ready = len(rep.Errors) == 0
	return rep
}
