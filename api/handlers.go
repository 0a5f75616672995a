/*
handlers.go - HTTP handlers for file downloads and the disbursement workflow

PURPOSE:
  Exposes the file generators and the cancel workflow over REST. Handlers
  parse and validate the request, run the generator through the file cache,
  record the download upstream, and stream the file back as an attachment.

ENDPOINTS:
  Files:
    GET  /api/files/refunds        AccessPay refund CSV
    GET  /api/files/adi-journal    ADI journal workbook
    GET  /api/files/statement      MT940 bank statement
    GET  /api/files/disbursements  Disbursements workbook

  Dashboard:
    GET  /api/dashboard            Recent workdays and missed downloads

  Disbursements:
    GET  /api/disbursements/cancelled  Cancelled disbursements, paginated
    POST /api/disbursements/cancel     Cancel by invoice number

  Admin:
    POST /api/admin/cache/clear    Drop every cached generated file

DOWNLOAD SEMANTICS:
  Files are generated once per (label, receipt date) and served from the
  cache afterwards, so a re-download returns byte-identical content. The
  download is recorded upstream even when generation finds no records -
  an empty day the user looked at is not a missed day. Side effects
  (marking refunds refunded, disbursements sent) run only after the file
  bytes are safely cached.

ERROR HANDLING:
  Typed generation errors map to fixed user-facing messages:
  - no records          -> 404 "No transactions available"
  - window still open   -> 400 "This file cannot be downloaded until the
                           next working day"
  - upstream failure    -> 502/503 "There was a problem generating the
                           file. Please try again later."

SEE ALSO:
  - dto.go: response data structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mtp/bank-admin/adi"
	"github.com/mtp/bank-admin/calendar"
	"github.com/mtp/bank-admin/disbursements"
	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/reconcile"
	"github.com/mtp/bank-admin/refund"
	"github.com/mtp/bank-admin/statement"
	"github.com/mtp/bank-admin/store/sqlite"
	"github.com/mtp/bank-admin/upstream"
)

const (
	dateFormat = "2006-01-02"

	xlsmContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	msgNoTransactions     = "No transactions available"
	msgEarlyReconcile     = "This file cannot be downloaded until the next working day"
	msgGenerationProblem  = "There was a problem generating the file. Please try again later."
	msgUnknownInvoice     = "No disbursement found with that invoice number"
	msgAlreadyCancelled   = "That disbursement has already been cancelled"
	msgNotYetConfirmed    = "That disbursement cannot be cancelled until it has been confirmed"
	msgReceiptDateMissing = "'receipt_date' parameter required"
	msgReceiptDateInvalid = "Invalid format for receipt_date, expected YYYY-MM-DD"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Client   *upstream.Client
	Calendar *calendar.Calendar
	Cache    *sqlite.FileStore

	Refunds       *refund.Generator
	ADI           *adi.Generator
	Statement     *statement.Generator
	Disbursements *disbursements.Generator
	Canceller     *disbursements.Canceller

	// Now is the dashboard and filename clock. Defaults to time.Now; tests
	// pin it.
	Now func() time.Time
}

// Config carries the handler's deployment settings.
type Config struct {
	ADITemplatePath          string
	DisbursementTemplatePath string
	StatementAccount         statement.Account
	StatementCurrency        string
}

// NewHandler wires the generators around a shared client and calendar.
func NewHandler(client *upstream.Client, cal *calendar.Calendar, cache *sqlite.FileStore, cfg Config) *Handler {
	resolver := &reconcile.Resolver{Client: client, Calendar: cal}
	return &Handler{
		Client:   client,
		Calendar: cal,
		Cache:    cache,
		Refunds:  &refund.Generator{Client: client, Resolver: resolver, Calendar: cal},
		ADI: &adi.Generator{
			Client:       client,
			Resolver:     resolver,
			TemplatePath: cfg.ADITemplatePath,
		},
		Statement: &statement.Generator{
			Client:   client,
			Resolver: resolver,
			Account:  cfg.StatementAccount,
			Currency: cfg.StatementCurrency,
		},
		Disbursements: &disbursements.Generator{
			Client:       client,
			Resolver:     resolver,
			TemplatePath: cfg.DisbursementTemplatePath,
		},
		Canceller: &disbursements.Canceller{Client: client},
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// =============================================================================
// FILE DOWNLOADS
// =============================================================================

// DownloadRefunds serves the AccessPay refund CSV and flags the period's
// refunds as refunded.
func (h *Handler) DownloadRefunds(w http.ResponseWriter, r *http.Request) {
	receiptDate, ok := h.receiptDate(w, r)
	if !ok {
		return
	}

	file := h.serveGenerated(w, r, output.AccessPayLabel, receiptDate,
		output.RefundFilename(h.now()),
		func() ([]byte, error) {
			return h.Refunds.Generate(r.Context(), receiptDate)
		})
	if file == nil {
		return
	}
	if _, err := h.Refunds.MarkRefunded(r.Context(), receiptDate); err != nil {
		writeDownloadError(w, err)
		return
	}
	writeAttachment(w, "text/plain", file)
}

// DownloadADIJournal serves the ADI journal workbook. The optional initials
// query parameter identifies the downloading user in the batch name.
func (h *Handler) DownloadADIJournal(w http.ResponseWriter, r *http.Request) {
	receiptDate, ok := h.receiptDate(w, r)
	if !ok {
		return
	}
	initials := r.URL.Query().Get("initials")

	file := h.serveGenerated(w, r, output.ADIJournalLabel, receiptDate,
		output.ADIJournalFilename(initials, h.now()),
		func() ([]byte, error) {
			return h.ADI.Generate(r.Context(), receiptDate, initials)
		})
	if file == nil {
		return
	}
	writeAttachment(w, xlsmContentType, file)
}

// DownloadStatement serves the MT940 bank statement.
func (h *Handler) DownloadStatement(w http.ResponseWriter, r *http.Request) {
	receiptDate, ok := h.receiptDate(w, r)
	if !ok {
		return
	}

	file := h.serveGenerated(w, r, output.StatementLabel, receiptDate,
		output.StatementFilename(receiptDate),
		func() ([]byte, error) {
			return h.Statement.Generate(r.Context(), receiptDate)
		})
	if file == nil {
		return
	}
	writeAttachment(w, "application/octet-stream", file)
}

// DownloadDisbursements serves the disbursements workbook and flags the
// window's confirmed disbursements as sent.
func (h *Handler) DownloadDisbursements(w http.ResponseWriter, r *http.Request) {
	receiptDate, ok := h.receiptDate(w, r)
	if !ok {
		return
	}

	file := h.serveGenerated(w, r, output.DisbursementsLabel, receiptDate,
		output.DisbursementsFilename(receiptDate),
		func() ([]byte, error) {
			return h.Disbursements.Generate(r.Context(), receiptDate)
		})
	if file == nil {
		return
	}
	if _, err := h.Disbursements.MarkSent(r.Context(), receiptDate); err != nil {
		writeDownloadError(w, err)
		return
	}
	writeAttachment(w, xlsmContentType, file)
}

// serveGenerated runs a generator through the file cache and records the
// download. On failure it writes the mapped error response and returns nil.
// The download is recorded even when the day has no records.
func (h *Handler) serveGenerated(w http.ResponseWriter, r *http.Request, label string, receiptDate time.Time, filename string, generate func() ([]byte, error)) *sqlite.CachedFile {
	file, err := h.Cache.GetOrCreate(r.Context(), label, receiptDate, filename, generate)
	if err != nil {
		if errors.Is(err, output.ErrEmptyFile) {
			h.Client.RecordDownload(r.Context(), label, receiptDate)
		}
		writeDownloadError(w, err)
		return nil
	}
	if err := h.Client.RecordDownload(r.Context(), label, receiptDate); err != nil {
		writeDownloadError(w, err)
		return nil
	}
	return file
}

func (h *Handler) receiptDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("receipt_date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, msgReceiptDateMissing, nil)
		return time.Time{}, false
	}
	date, err := time.Parse(dateFormat, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgReceiptDateInvalid, err)
		return time.Time{}, false
	}
	return date, true
}

func writeAttachment(w http.ResponseWriter, contentType string, file *sqlite.CachedFile) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Write(file.Data)
}

func writeDownloadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, output.ErrEmptyFile):
		writeError(w, http.StatusNotFound, msgNoTransactions, err)
	case errors.Is(err, reconcile.ErrEarlyReconciliation):
		writeError(w, http.StatusBadRequest, msgEarlyReconcile, err)
	case errors.Is(err, calendar.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgGenerationProblem, err)
	default:
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			writeError(w, http.StatusBadGateway, msgGenerationProblem, err)
			return
		}
		writeError(w, http.StatusServiceUnavailable, msgGenerationProblem, err)
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Dashboard reports the recent workdays and, per file kind, the dates with
// no recorded download. Checks skip the two most recent workdays: staff
// are not late for a file whose window closed this morning.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	recent := h.Calendar.PrecedingWorkdays(now, 5, 1)
	response := DashboardResponse{
		LatestDay:     recent[0].Format(dateFormat),
		PrecedingDays: formatDates(recent[1:]),
	}

	checkDates := h.Calendar.PrecedingWorkdays(now, 20, 2)
	missed := []struct {
		label string
		out   *[]string
	}{
		{output.AccessPayLabel, &response.MissedRefunds},
		{output.ADIJournalLabel, &response.MissedADIJournals},
		{output.StatementLabel, &response.MissedStatements},
		{output.DisbursementsLabel, &response.MissedDisbursements},
	}
	for _, m := range missed {
		dates, err := h.Client.MissingDownloads(r.Context(), m.label, checkDates)
		if err != nil {
			writeError(w, http.StatusBadGateway, msgGenerationProblem, err)
			return
		}
		*m.out = formatDates(dates)
	}

	writeJSON(w, http.StatusOK, response)
}

func formatDates(dates []time.Time) []string {
	formatted := make([]string, len(dates))
	for i, d := range dates {
		formatted[i] = d.Format(dateFormat)
	}
	return formatted
}

// =============================================================================
// DISBURSEMENT CANCELLATION
// =============================================================================

// ListCancelledDisbursements returns one page of cancelled disbursements,
// most recently cancelled first.
func (h *Handler) ListCancelledDisbursements(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Invalid page number", err)
			return
		}
		page = parsed
	}

	cancelled, count, err := h.Canceller.Cancelled(r.Context(), page)
	if err != nil {
		writeError(w, http.StatusBadGateway, msgGenerationProblem, err)
		return
	}

	dtos := make([]DisbursementDTO, len(cancelled))
	for i, d := range cancelled {
		dtos[i] = toDisbursementDTO(d)
	}
	writeJSON(w, http.StatusOK, CancelledListResponse{
		Count:     count,
		Page:      page,
		PageCount: (count + disbursements.CancelPageSize - 1) / disbursements.CancelPageSize,
		Results:   dtos,
	})
}

// CancelDisbursement cancels a confirmed disbursement by invoice number.
func (h *Handler) CancelDisbursement(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.InvoiceNumber == "" {
		writeError(w, http.StatusBadRequest, "'invoice_number' is required", nil)
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "'reason' is required", nil)
		return
	}

	cancelled, err := h.Canceller.Cancel(r.Context(), req.InvoiceNumber, req.Reason)
	switch {
	case errors.Is(err, disbursements.ErrUnknownInvoice):
		writeError(w, http.StatusNotFound, msgUnknownInvoice, err)
		return
	case errors.Is(err, disbursements.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, msgAlreadyCancelled, err)
		return
	case errors.Is(err, disbursements.ErrNotConfirmed):
		writeError(w, http.StatusConflict, msgNotYetConfirmed, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, msgGenerationProblem, err)
		return
	}

	writeJSON(w, http.StatusOK, toDisbursementDTO(cancelled))
}

// =============================================================================
// ADMIN
// =============================================================================

// ClearCache drops every cached generated file. The next download of each
// (label, date) regenerates from the upstream API.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.Cache.Clear(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear file cache", err)
		return
	}
	writeJSON(w, http.StatusOK, ClearCacheResponse{Cleared: cleared})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
