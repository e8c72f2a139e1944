package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/voucherdesk/reconciler/internal/currency"
	"github.com/voucherdesk/reconciler/internal/domain"
	"github.com/voucherdesk/reconciler/internal/ingestion"
	"github.com/voucherdesk/reconciler/internal/reconciliation"
	"github.com/voucherdesk/reconciler/internal/repository"
	"github.com/voucherdesk/reconciler/internal/settlement"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFileName  = "transactions.xlsx"
	maxUploadBytes  = 32 << 20
)

// CredentialStore accepts exchange credentials at runtime.
type CredentialStore interface {
	Configure(domain.Credentials) error
	Configured() bool
}

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	ingestionSvc *ingestion.Service
	reconSvc     *reconciliation.Service
	orderRepo    *repository.OrderRepo
	exchange     CredentialStore
	log          logrus.FieldLogger
	now          func() time.Time
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a service error onto a status code. Classified errors
// carry a message that is safe to return; anything else is logged and hidden.
func (h *Handlers) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingestion.ErrEmptyImport):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "no transactions found in the file",
			"kind":  "empty",
		})
		return
	case errors.Is(err, sql.ErrNoRows):
		h.writeError(w, http.StatusNotFound, "not found")
		return
	}

	de, ok := domain.AsError(err)
	if !ok {
		h.log.WithError(err).Error("request failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindConfiguration:
		status = http.StatusPreconditionFailed
	case domain.KindValidation, domain.KindStructural:
		status = http.StatusUnprocessableEntity
	case domain.KindTransport:
		status = http.StatusBadGateway
	}
	body := map[string]any{"error": de.Message, "kind": de.Kind}
	if de.Status != 0 {
		body["upstream_status"] = de.Status
	}
	h.writeJSON(w, status, body)
}

func writeXLSX(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func parseFloatDefault(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// amountList accepts newline-separated text or a JSON array of numbers.
type amountList []float64

func (a *amountList) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*a = settlement.ParseAmounts(text)
		return nil
	}
	var nums []float64
	if err := json.Unmarshal(data, &nums); err != nil {
		return errors.New("amounts must be text or an array of numbers")
	}
	out := make([]float64, 0, len(nums))
	for _, n := range nums {
		if n >= 0 {
			out = append(out, n)
		}
	}
	*a = out
	return nil
}

// --- Calculate ---

type calculateRequest struct {
	Amounts amountList     `json:"amounts"`
	Rates   domain.RateSet `json:"rates"`
	// Strict rejects missing rates instead of letting them propagate as
	// undefined results.
	Strict   bool `json:"strict"`
	Coverage bool `json:"coverage"`
}

type calculateResponse struct {
	Amounts  []float64                `json:"amounts"`
	Result   domain.SettlementResult  `json:"result"`
	Coverage *reconciliation.Coverage `json:"coverage,omitempty"`
}

func (h *Handlers) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Amounts == nil {
		req.Amounts = amountList{}
	}
	if req.Strict {
		if err := req.Rates.Validate(); err != nil {
			h.writeFailure(w, err)
			return
		}
	}

	resp := calculateResponse{
		Amounts: req.Amounts,
		Result:  settlement.Calculate(req.Amounts, req.Rates),
	}
	if req.Coverage {
		summary, err := h.reconSvc.Summary(reconciliation.Filter{Type: string(domain.TradeBuy)})
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		cov, err := h.reconSvc.Compare(resp.Result, summary)
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		resp.Coverage = &cov
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// --- Imports ---

type importResponse struct {
	*ingestion.IngestResult
	Settlement *domain.SettlementResult `json:"settlement,omitempty"`
}

func (h *Handlers) CreateImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	rates, hasRates, err := formRates(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	result, err := h.ingestionSvc.IngestWorkbook(data, header.Filename)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	resp := importResponse{IngestResult: result}
	if hasRates {
		calc := settlement.Calculate(result.Amounts, rates)
		resp.Settlement = &calc
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// formRates reads optional rate fields from a multipart form.
func formRates(r *http.Request) (domain.RateSet, bool, error) {
	var rates domain.RateSet
	found := false
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"usdt_to_egp", &rates.USDTToEGP},
		{"aed_to_egp", &rates.AEDToEGP},
		{"usdt_to_aed", &rates.USDTToAED},
		{"merchant_fee_per_usdt_egp", &rates.MerchantFeePerUSDTEGP},
	} {
		raw := r.FormValue(f.name)
		if raw == "" {
			continue
		}
		v, err := currency.ParseRate(raw)
		if err != nil {
			return rates, false, err
		}
		*f.dst = v
		found = true
	}
	return rates, found, nil
}

func (h *Handlers) ListImports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ImportFilter{
		Page:  parseIntDefault(q.Get("page"), 1),
		Limit: parseIntDefault(q.Get("limit"), 50),
	}

	reports, total, err := h.ingestionSvc.ListReports(filter)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if reports == nil {
		reports = []domain.ImportReport{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"imports": reports,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

func (h *Handlers) GetImport(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingestionSvc.Report(chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) ExportImport(w http.ResponseWriter, r *http.Request) {
	_, data, err := h.ingestionSvc.ExportReport(chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeXLSX(w, data)
}

// --- Exports ---

type exportRequest struct {
	Rows []domain.ImportRow `json:"rows"`
	// Manual entry: newline-separated EGP amounts with an optional AED rate.
	Amounts  string  `json:"amounts"`
	AEDToEGP float64 `json:"aed_to_egp"`
}

func (h *Handlers) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rows := req.Rows
	if len(rows) == 0 {
		rows = ingestion.ManualRows(req.Amounts, req.AEDToEGP, h.now())
	}

	data, err := ingestion.ExportWorkbook(rows)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeXLSX(w, data)
}

// --- Exchange ---

func (h *Handlers) ConfigureExchange(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeBody(r, &creds); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.exchange.Configure(creds); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"configured": true})
}

func (h *Handlers) SyncExchange(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconSvc.SyncHistory(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.OrderFilter{
		Type:   q.Get("type"),
		Status: q.Get("status"),
		From:   parseTime(q.Get("from")),
		To:     parseTime(q.Get("to")),
		Page:   parseIntDefault(q.Get("page"), 1),
		Limit:  parseIntDefault(q.Get("limit"), 50),
	}
	if filter.Type == "ALL" || filter.Type == "all" {
		filter.Type = ""
	}

	orders, total, err := h.orderRepo.List(filter)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if orders == nil {
		orders = []domain.ExchangeTransaction{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"orders":     orders,
		"total":      total,
		"page":       filter.Page,
		"limit":      filter.Limit,
		"configured": h.exchange.Configured(),
	})
}

func (h *Handlers) GetExchangeSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := reconciliation.Filter{
		Type:    q.Get("type"),
		MinRate: parseFloatDefault(q.Get("min_rate")),
		MaxRate: parseFloatDefault(q.Get("max_rate")),
	}

	summary, err := h.reconSvc.Summary(filter)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}
