// Package pdf renders a calculated paystub as a one-page PDF statement:
// a header, the employee's withholding profile, an earnings block and a
// table of every deduction with its current amount.
package pdf

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
)

// Renderer implements ports.PaystubRenderer.
type Renderer struct {
	// Title is printed in the header bar. Defaults to "EARNINGS STATEMENT".
	Title string
	// Footer is printed bottom-left, e.g. the employer name.
	Footer string
}

var _ ports.PaystubRenderer = (*Renderer)(nil)

// Render writes a single-page PDF for res to w.
func (r *Renderer) Render(in *domain.PaycheckInput, res *domain.PaystubResult, w io.Writer) error {
	if in == nil || res == nil {
		return fmt.Errorf("pdf: input and result are required")
	}
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()
	r.drawPaystub(pdf, in, res)
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

type amtRow struct {
	label string
	amt   decimal.Decimal
}

func (r *Renderer) drawPaystub(pdf *fpdf.Fpdf, in *domain.PaycheckInput, res *domain.PaystubResult) {
	pageW, pageH := pdf.GetPageSize()
	marginL, marginT, marginR, marginB := pdf.GetMargins()
	contentW := pageW - marginL - marginR
	colHalf := contentW / 2

	title := r.Title
	if title == "" {
		title = "EARNINGS STATEMENT"
	}

	// ── Header bar ───────────────────────────────────────────────────────────
	pdf.SetFillColor(30, 30, 30)
	pdf.Rect(marginL, marginT, contentW, 10, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginL+2, marginT+1.5)
	pdf.CellFormat(colHalf, 7, title, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(colHalf-4, 7, fmt.Sprintf("Tax Year %d  |  %s", res.TaxYear, frequencyLabel(res.PayFrequency)), "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	y := marginT + 13

	// ── Employee profile ─────────────────────────────────────────────────────
	y = sectionTitle(pdf, marginL, y, contentW, "EMPLOYEE")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(marginL, y)
	id := in.EmployeeID
	if id == "" {
		id = "-"
	}
	pdf.CellFormat(colHalf, 6, "Employee ID: "+id, "L", 0, "L", false, 0, "")
	pdf.CellFormat(colHalf, 6, "Filing Status: "+humanize(string(in.FilingStatus)), "R", 1, "L", false, 0, "")
	y += 6

	pdf.SetXY(marginL, y)
	pdf.CellFormat(colHalf, 6, "Work Location: "+location(in), "L", 0, "L", false, 0, "")
	status := in.EmployeeStatus
	if status == "" {
		status = domain.USCitizen
	}
	pdf.CellFormat(colHalf, 6, "Employee Status: "+string(status), "R", 1, "L", false, 0, "")
	y += 6

	if w4 := w4Line(in.W4); w4 != "" {
		pdf.SetFont("Helvetica", "I", 8.5)
		pdf.SetXY(marginL, y)
		pdf.CellFormat(contentW, 5.5, w4, "LR", 1, "L", false, 0, "")
		y += 5.5
	}
	pdf.SetXY(marginL, y)
	pdf.CellFormat(contentW, 0, "", "LRB", 1, "L", false, 0, "")
	y += 5

	// ── Earnings ─────────────────────────────────────────────────────────────
	earnings := []amtRow{{"Gross Pay", res.GrossPay}}
	for _, k := range sortedKeys(res.PreTaxDeductions) {
		if strings.EqualFold(k, "total") {
			continue
		}
		earnings = append(earnings, amtRow{"Pre-tax: " + humanize(k), res.PreTaxDeductions[k].Neg()})
	}
	earnings = append(earnings, amtRow{"Taxable Gross", res.TaxableGrossPay})
	y = drawTable(pdf, marginL, y, contentW, "Earnings", earnings, len(earnings)-1)
	y += 5

	// ── Taxes ────────────────────────────────────────────────────────────────
	taxes := []amtRow{
		{"Federal Income Tax", res.FederalIncomeTax},
		{"Social Security", res.SocialSecurity},
		{"Medicare", res.Medicare},
	}
	if !res.AdditionalMedicare.IsZero() {
		taxes = append(taxes, amtRow{"Additional Medicare", res.AdditionalMedicare})
	}
	taxes = append(taxes, amtRow{"State Income Tax (" + strings.ToUpper(in.State) + ")", res.StateIncomeTax})
	for _, k := range sortedKeys(res.StatePayrollTaxes) {
		taxes = append(taxes, amtRow{res.StatePayrollTaxes[k].Name, res.StatePayrollTaxes[k].Amount})
	}
	for _, k := range sortedKeys(res.LocalTaxes) {
		taxes = append(taxes, amtRow{res.LocalTaxes[k].Name, res.LocalTaxes[k].Amount})
	}
	taxes = append(taxes, amtRow{"Total Deductions", res.TotalDeductions})
	y = drawTable(pdf, marginL, y, contentW, "Taxes Withheld", taxes, len(taxes)-1)
	y += 5

	// ── Net pay ──────────────────────────────────────────────────────────────
	pdf.SetFillColor(220, 240, 220)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginL, y)
	pdf.CellFormat(contentW*0.6, 9, "NET PAY", "1", 0, "L", true, 0, "")
	pdf.CellFormat(contentW*0.4, 9, money(res.NetPay), "1", 1, "R", true, 0, "")
	y += 14

	// ── Year to date ─────────────────────────────────────────────────────────
	ytd := []amtRow{
		{"YTD Gross", res.YTDGross},
		{"YTD Net", res.YTDNet},
		{"Annualized Gross", res.AnnualGross},
	}
	drawTable(pdf, marginL, y, contentW, "Year to Date", ytd, -1)

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.SetXY(marginL, pageH-marginB-6)
	pdf.SetFont("Helvetica", "I", 7.5)
	pdf.SetTextColor(130, 130, 130)
	pdf.CellFormat(colHalf, 5, r.Footer, "", 0, "L", false, 0, "")
	pdf.CellFormat(colHalf, 5, "Withholding computed from official tax tables", "", 0, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func sectionTitle(pdf *fpdf.Fpdf, x, y, w float64, title string) float64 {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetXY(x, y)
	pdf.CellFormat(w, 5.5, title, "LRT", 1, "L", true, 0, "")
	return y + 5.5
}

// drawTable draws a two-column amount table and returns the y below it.
// The row at index bold (if any) is set in bold as a subtotal.
func drawTable(pdf *fpdf.Fpdf, x, y, w float64, heading string, rows []amtRow, bold int) float64 {
	descW := w * 0.6
	amtW := w - descW

	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 8.5)
	pdf.SetXY(x, y)
	pdf.CellFormat(descW, 7, heading, "1", 0, "L", true, 0, "")
	pdf.CellFormat(amtW, 7, "Current", "1", 1, "C", true, 0, "")
	y += 7
	pdf.SetTextColor(0, 0, 0)

	rowH := 6.5
	for i, r := range rows {
		pdf.SetXY(x, y)
		if i%2 == 0 {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		if i == bold {
			pdf.SetFont("Helvetica", "B", 8.5)
		} else {
			pdf.SetFont("Helvetica", "", 8.5)
		}
		pdf.CellFormat(descW, rowH, r.label, "1", 0, "L", true, 0, "")
		pdf.CellFormat(amtW, rowH, money(r.amt), "1", 1, "R", true, 0, "")
		y += rowH
	}
	return y
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func humanize(s string) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func frequencyLabel(f domain.PayFrequency) string {
	if f == "" {
		return "-"
	}
	return humanize(string(f))
}

func location(in *domain.PaycheckInput) string {
	loc := strings.ToUpper(in.State)
	if j := strings.ToUpper(in.LocalJurisdiction); j != "" && j != domain.LocalNone {
		loc += " / " + j
	}
	return loc
}

// w4Line summarizes the non-default W-4 elections, or returns "".
func w4Line(w domain.W4Adjustments) string {
	var parts []string
	if w.Step2Checkbox {
		parts = append(parts, "Step 2 checked")
	}
	add := func(label string, d decimal.Decimal) {
		if !d.IsZero() {
			parts = append(parts, label+" "+money(d))
		}
	}
	add("Step 3 credits", w.Step3Credits)
	add("Step 4a other income", w.Step4aOtherIncome)
	add("Step 4b deductions", w.Step4bDeductions)
	add("Step 4c extra", w.Step4cExtraWithholding)
	if len(parts) == 0 {
		return ""
	}
	return "W-4: " + strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
