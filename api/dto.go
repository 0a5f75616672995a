/*
dto.go - Request and response data structures for the API

All responses are JSON. File downloads carry no body structures; they
stream the cached bytes with attachment headers instead.
*/
package api

import "github.com/mtp/bank-admin/upstream"

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// DashboardResponse lists recent workdays and, per file kind, dates with no
// recorded download.
type DashboardResponse struct {
	LatestDay           string   `json:"latest_day"`
	PrecedingDays       []string `json:"preceding_days"`
	MissedRefunds       []string `json:"missed_refunds"`
	MissedADIJournals   []string `json:"missed_adi_journals"`
	MissedStatements    []string `json:"missed_statements"`
	MissedDisbursements []string `json:"missed_disbursements"`
}

// DisbursementDTO is the API shape of a disbursement.
type DisbursementDTO struct {
	ID            int    `json:"id"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	Prison        string `json:"prison"`
	Resolution    string `json:"resolution"`
	InvoiceNumber string `json:"invoice_number"`
	RecipientName string `json:"recipient_name"`
	Creator       string `json:"creator"`
	Confirmer     string `json:"confirmer"`
}

func toDisbursementDTO(d upstream.Disbursement) DisbursementDTO {
	creator, confirmer := d.ActorNames()
	return DisbursementDTO{
		ID:            d.ID,
		Amount:        d.Amount,
		Method:        d.Method,
		Prison:        d.Prison,
		Resolution:    d.Resolution,
		InvoiceNumber: d.InvoiceNumber,
		RecipientName: d.RecipientFirstName + " " + d.RecipientLastName,
		Creator:       creator,
		Confirmer:     confirmer,
	}
}

// CancelledListResponse is one page of cancelled disbursements.
type CancelledListResponse struct {
	Count     int               `json:"count"`
	Page      int               `json:"page"`
	PageCount int               `json:"page_count"`
	Results   []DisbursementDTO `json:"results"`
}

// CancelRequest asks for a disbursement to be cancelled.
type CancelRequest struct {
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

// ClearCacheResponse reports how many cached files were dropped.
type ClearCacheResponse struct {
	Cleared int64 `json:"cleared"`
}
