/*
Package upstream is the client for the prisoner-money transaction API.

PURPOSE:
  The upstream API owns all transaction, credit, disbursement and prison
  data; this service only reads it, locks windows for reconciliation, and
  flips processed flags exactly once. This package provides the typed
  records and the retrieval layer - every list call drains pagination fully,
  so callers always see the complete result set or an error, never a partial
  one.

KEY RECORDS (types.go):
  - Transaction: a bank transaction; refundable/unidentified status, with a
    refunded flag this service sets exactly once
  - Credit: a credit destined for a prisoner's account at a prison
  - Prison: read-only reference data with the destination ledger code
  - Disbursement: an outbound payment, with its audit log entries
  - Balance: a day's closing balance for the statement opening figure

SEE ALSO:
  - client.go: HTTP plumbing and the retrieval/mutation operations
*/
package upstream

import "time"

// Transaction sources.
const (
	SourceOnline         = "online"
	SourceBankTransfer   = "bank_transfer"
	SourceAdministrative = "administrative"
)

// Transaction statuses used as retrieval filters.
const (
	StatusRefundable   = "refundable"
	StatusUnidentified = "unidentified"
)

// Transaction categories.
const (
	CategoryCredit = "credit"
	CategoryDebit  = "debit"
)

// Disbursement methods and resolutions.
const (
	MethodCheque       = "cheque"
	MethodBankTransfer = "bank_transfer"

	ResolutionConfirmed = "confirmed"
	ResolutionSent      = "sent"
	ResolutionCancelled = "cancelled"
)

// Disbursement audit log actions.
const (
	LogActionCreated   = "created"
	LogActionConfirmed = "confirmed"
	LogActionCancelled = "cancelled"
)

// Transaction is an upstream bank transaction. Amounts are integer minor
// units (pence).
type Transaction struct {
	ID                     int       `json:"id"`
	Amount                 int64     `json:"amount"`
	Status                 string    `json:"status"`
	Category               string    `json:"category"`
	Source                 string    `json:"source"`
	Prison                 string    `json:"prison"`
	ReconciliationCode     string    `json:"reconciliation_code"`
	RefCode                string    `json:"ref_code"`
	SenderName             string    `json:"sender_name"`
	Reference              string    `json:"reference"`
	ReferenceInSenderField bool      `json:"reference_in_sender_field"`
	SenderSortCode         string    `json:"sender_sort_code"`
	SenderAccountNumber    string    `json:"sender_account_number"`
	SenderRollNumber       string    `json:"sender_roll_number"`
	Refunded               bool      `json:"refunded"`
	ReceivedAt             time.Time `json:"received_at"`
}

// Narrative synthesizes the statement/journal narrative for a transaction.
// The sender name and reference are mutually exclusive sources, selected by
// the reference_in_sender_field flag set during upload processing.
func (t Transaction) Narrative() string {
	if t.ReferenceInSenderField {
		return t.SenderName
	}
	return t.Reference
}

// Credit is a validated credit to a prisoner account.
type Credit struct {
	ID                 int       `json:"id"`
	Amount             int64     `json:"amount"`
	Prison             string    `json:"prison"`
	Source             string    `json:"source"`
	ReconciliationCode string    `json:"reconciliation_code"`
	ReceivedAt         time.Time `json:"received_at"`
}

// Prison is read-only reference data, fetched fresh per generation run.
type Prison struct {
	NomisID              string `json:"nomis_id"`
	GeneralLedgerCode    string `json:"general_ledger_code"`
	Name                 string `json:"name"`
	PrivateEstate        bool   `json:"private_estate"`
	CMSEstablishmentCode string `json:"cms_establishment_code"`
}

// LogUser identifies the actor behind a disbursement audit event.
type LogUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisbursementLog is one audit event on a disbursement.
type DisbursementLog struct {
	Action  string    `json:"action"`
	User    LogUser   `json:"user"`
	Created time.Time `json:"created"`
}

// Disbursement is an outbound payment from a prisoner's account.
type Disbursement struct {
	ID                    int               `json:"id"`
	Amount                int64             `json:"amount"`
	Method                string            `json:"method"`
	Prison                string            `json:"prison"`
	Resolution            string            `json:"resolution"`
	InvoiceNumber         string            `json:"invoice_number"`
	RecipientFirstName    string            `json:"recipient_first_name"`
	RecipientLastName     string            `json:"recipient_last_name"`
	RecipientEmail        string            `json:"recipient_email"`
	AddressLine1          string            `json:"address_line1"`
	AddressLine2          string            `json:"address_line2"`
	City                  string            `json:"city"`
	Postcode              string            `json:"postcode"`
	SortCode              string            `json:"sort_code"`
	AccountNumber         string            `json:"account_number"`
	RollNumber            string            `json:"roll_number"`
	RemittanceDescription string            `json:"remittance_description"`
	LogSet                []DisbursementLog `json:"log_set"`
}

// ActorNames returns the "F Lastname" forms of the creator and confirmer
// from the audit log, falling back to "Unknown" when an event is missing.
func (d Disbursement) ActorNames() (creator, confirmer string) {
	creator, confirmer = "Unknown", "Unknown"
	for _, log := range d.LogSet {
		name := log.User.LastName
		if log.User.FirstName != "" {
			name = log.User.FirstName[:1] + " " + log.User.LastName
		}
		switch log.Action {
		case LogActionCreated:
			creator = name
		case LogActionConfirmed:
			confirmer = name
		}
	}
	return creator, confirmer
}

// Balance is a day's account balance record.
type Balance struct {
	Date           string `json:"date"`
	ClosingBalance int64  `json:"closing_balance"`
}

// PrivateEstateBatch is an aggregated credit batch for a private-estate
// prison, settled by direct bank transfer.
type PrivateEstateBatch struct {
	Date        string `json:"date"`
	Prison      string `json:"prison"`
	TotalAmount int64  `json:"total_amount"`
	Reference   string `json:"ref"`
}
