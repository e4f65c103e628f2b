package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/domain"
	"github.com/csg33k/paystub-engine/internal/ports"
	"github.com/csg33k/paystub-engine/internal/ratetable"
	"github.com/csg33k/paystub-engine/internal/templates"
)

// maxBody caps request bodies; a paycheck request is a few hundred bytes.
const maxBody = 64 << 10

type Handler struct {
	calc     ports.PaystubCalculator
	tables   ports.TableSource
	audit    ports.AuditLog
	renderer ports.PaystubRenderer
	log      *slog.Logger
	taxYear  int
	now      func() time.Time

	pending sync.WaitGroup
}

type Option func(*Handler)

// WithAuditLog records every successful calculation, fire-and-forget.
func WithAuditLog(a ports.AuditLog) Option { return func(h *Handler) { h.audit = a } }

func WithRenderer(r ports.PaystubRenderer) Option { return func(h *Handler) { h.renderer = r } }

func WithLogger(l *slog.Logger) Option { return func(h *Handler) { h.log = l } }

// WithTaxYear sets the year shown on the calculator page.
func WithTaxYear(y int) Option { return func(h *Handler) { h.taxYear = y } }

func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

func New(calc ports.PaystubCalculator, tables ports.TableSource, opts ...Option) *Handler {
	h := &Handler{
		calc:    calc,
		tables:  tables,
		log:     slog.Default(),
		taxYear: domain.DefaultTaxYear,
		now:     time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("POST /paystub", h.paystubFragment)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /api/v1/payroll/calculate", h.calculate)
	mux.HandleFunc("POST /api/v1/payroll/pdf", h.paystubPDF)
	mux.HandleFunc("GET /api/v1/tax-config/{year}", h.taxConfig)
	return mux
}

// Wait blocks until queued audit writes have finished.
func (h *Handler) Wait() { h.pending.Wait() }

// ── Pages ────────────────────────────────────────────────────────────────────

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	render(w, r, templates.Index(h.taxYear))
}

// paystubFragment answers the htmx form post. Refusals are rendered as a
// notice with 200 so htmx swaps them in.
func (h *Handler) paystubFragment(w http.ResponseWriter, r *http.Request) {
	in, err := parseForm(r)
	if err != nil {
		render(w, r, templates.ErrorNotice(domain.CodeOf(err), clientMessage(err)))
		return
	}
	res, id, err := h.run(r, in, "web")
	if err != nil {
		render(w, r, templates.ErrorNotice(domain.CodeOf(err), clientMessage(err)))
		return
	}
	render(w, r, templates.Paystub(in, res, id))
}

// ── JSON API ─────────────────────────────────────────────────────────────────

type calculationResponse struct {
	Success       bool                  `json:"success"`
	Paystub       *domain.PaystubResult `json:"paystub"`
	CalculationID string                `json:"calculationId"`
	Timestamp     time.Time             `json:"timestamp"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"taxYear":   h.taxYear,
		"timestamp": h.now().UTC(),
	})
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, id, err := h.run(r, in, "api")
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationResponse{
		Success:       true,
		Paystub:       res,
		CalculationID: id,
		Timestamp:     h.now().UTC(),
	})
}

func (h *Handler) paystubPDF(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		h.writeError(w, &domain.CalculationError{Code: domain.CodeInternal, Message: "pdf rendering is not configured"})
		return
	}
	in, err := decodeInput(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, id, err := h.run(r, in, "pdf")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.Render(in, res, &buf); err != nil {
		h.log.Error("render paystub pdf", "calculationId", id, "err", err)
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="paystub_%s.pdf"`, id))
	w.Header().Set("X-Calculation-Id", id)
	w.Write(buf.Bytes())
}

// taxConfig reports whether a tax year is provisioned well enough to serve.
func (h *Handler) taxConfig(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 2000 || year > 2100 {
		h.writeError(w, domain.InvalidInput("invalid tax year %q", r.PathValue("year")))
		return
	}
	t, err := h.tables.Snapshot(r.Context(), year)
	if err != nil {
		var ce *domain.CalculationError
		if !errors.As(err, &ce) {
			err = domain.StoreFailure("snapshot tax year", err)
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ratetable.StatusOf(t))
}

// run calculates and, on success, queues the audit record.
func (h *Handler) run(r *http.Request, in *domain.PaycheckInput, source string) (*domain.PaystubResult, string, error) {
	res, err := h.calc.Calculate(r.Context(), in)
	if err != nil {
		h.logFailure(err)
		return nil, "", err
	}
	id := fmt.Sprintf("CALC-%d-%s", res.TaxYear, uuid.NewString())
	h.log.Info("paystub calculated",
		"calculationId", id,
		"source", source,
		"state", in.State,
		"netPay", res.NetPay,
	)
	if h.audit != nil {
		entry := ports.AuditEntry{
			CalculationID: id,
			EmployeeID:    in.EmployeeID,
			TaxYear:       res.TaxYear,
			CalculatedAt:  h.now().UTC(),
			Input:         in,
			Output:        res,
			CalculatedBy:  source,
			IPAddress:     clientIP(r),
		}
		h.pending.Add(1)
		go func() {
			defer h.pending.Done()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
			defer cancel()
			if err := h.audit.RecordCalculation(ctx, entry); err != nil {
				h.log.Warn("audit write failed", "calculationId", entry.CalculationID, "err", err)
			}
		}()
	}
	return res, id, nil
}

func (h *Handler) logFailure(err error) {
	switch code := domain.CodeOf(err); code {
	case domain.CodeInvalidInput:
		h.log.Debug("paystub rejected", "err", err)
	case domain.CodeTableNotFound:
		h.log.Warn("paystub refused", "code", code, "err", err)
	default:
		h.log.Error("paystub failed", "code", code, "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	writeJSON(w, statusFor(code), errorResponse{Error: clientMessage(err), Code: code})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeTableNotFound:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides wrapped driver errors from callers.
func clientMessage(err error) string {
	var ce *domain.CalculationError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return "internal error"
}

// decodeInput accepts a JSON body or, from the calculator form, a
// form-encoded one.
func decodeInput(r *http.Request) (*domain.PaycheckInput, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data" {
		return parseForm(r)
	}
	var in domain.PaycheckInput
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	if err := dec.Decode(&in); err != nil {
		return nil, domain.InvalidInput("malformed JSON request: %v", err)
	}
	return &in, nil
}

func parseForm(r *http.Request) (*domain.PaycheckInput, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBody)
	if err := r.ParseForm(); err != nil {
		return nil, domain.InvalidInput("malformed form: %v", err)
	}
	var (
		in   domain.PaycheckInput
		errs []string
	)
	num := func(name string) decimal.Decimal {
		v := strings.TrimSpace(strings.ReplaceAll(r.FormValue(name), ",", ""))
		if v == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(strings.TrimPrefix(v, "$"))
		if err != nil {
			errs = append(errs, name+": not a number")
		}
		return d
	}

	in.EmployeeID = strings.TrimSpace(r.FormValue("employee_id"))
	in.GrossPay = num("gross_pay")
	if strings.TrimSpace(r.FormValue("taxable_gross_pay")) != "" {
		in.TaxableGrossPay = decimal.NewNullDecimal(num("taxable_gross_pay"))
	}
	in.PreTaxDeductions = domain.PreTaxDeductions{}
	for _, cat := range []string{"advance", "medical", "miscellaneous"} {
		if v := num("pretax_" + cat); !v.IsZero() {
			in.PreTaxDeductions[cat] = v
		}
	}
	in.State = r.FormValue("state")
	in.LocalJurisdiction = r.FormValue("local_jurisdiction")
	in.EmployeeStatus = domain.EmployeeStatus(r.FormValue("employee_status"))
	in.FilingStatus = domain.FilingStatus(r.FormValue("filing_status"))
	if v := strings.TrimSpace(r.FormValue("pay_periods")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, "pay_periods: not a whole number")
		}
		in.PayPeriods = n
	}
	if v := strings.TrimSpace(r.FormValue("tax_year")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, "tax_year: not a whole number")
		}
		in.TaxYear = n
	}
	in.W4 = domain.W4Adjustments{
		Step2Checkbox:          r.FormValue("step2") == "true" || r.FormValue("step2") == "on",
		Step3Credits:           num("step3_credits"),
		Step4aOtherIncome:      num("step4a_other_income"),
		Step4bDeductions:       num("step4b_deductions"),
		Step4cExtraWithholding: num("step4c_extra_withholding"),
	}
	in.YearToDateGross = num("ytd_gross")
	in.YearToDateNet = num("ytd_net")

	if len(errs) > 0 {
		return nil, domain.InvalidInput("%s", strings.Join(errs, "; "))
	}
	return &in, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// render writes a templ component to the response.
func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), 500)
	}
}
