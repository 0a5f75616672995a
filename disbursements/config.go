/*
config.go - disbursements journal layout: fields and templated values

PURPOSE:
  The disbursements upload template is a flat table, one row per payment,
  columns A through AH. Unlike the ADI journal there is one value template
  per field; what varies per row is the context, plus the rule that bank
  detail columns are only written for bank-transfer payments.
*/
package disbursements

import (
	"strings"

	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/upstream"
)

// Worksheet layout.
const (
	SheetName = "Data"
	StartRow  = 3

	rowDateFormat = "02/01/2006"
)

// PaymentMethods maps upstream method codes to the labels the shared
// services centre expects in the payment-method column.
var PaymentMethods = map[string]string{
	upstream.MethodCheque:       "Cheque",
	upstream.MethodBankTransfer: "New Bank Details",
}

// =============================================================================
// ROW CONTEXT AND TEMPLATES
// =============================================================================

// RowContext carries the dynamic values a row's templates may reference.
type RowContext struct {
	ID                 string
	RecipientFirstName string
	RecipientLastName  string
	RecipientEmail     string
	AddressLine1       string
	AddressLine2       string
	City               string
	Postcode           string
	PaymentMethod      string
	SortCode           string
	AccountNumber      string
	RollNumber         string
	Date               string
	InvoiceNumber      string
	Description        string
	PrisonLedgerCode   string
	Creator            string
	Confirmer          string
}

// Template is a static field value with {placeholder} substitutions.
type Template string

// Render fills the template's placeholders from the context.
func (t Template) Render(ctx RowContext) string {
	return strings.NewReplacer(
		"{id}", ctx.ID,
		"{recipient_first_name}", ctx.RecipientFirstName,
		"{recipient_last_name}", ctx.RecipientLastName,
		"{recipient_email}", ctx.RecipientEmail,
		"{address_line1}", ctx.AddressLine1,
		"{address_line2}", ctx.AddressLine2,
		"{city}", ctx.City,
		"{postcode}", ctx.Postcode,
		"{payment_method}", ctx.PaymentMethod,
		"{sort_code}", ctx.SortCode,
		"{account_number}", ctx.AccountNumber,
		"{roll_number}", ctx.RollNumber,
		"{date}", ctx.Date,
		"{invoice_number}", ctx.InvoiceNumber,
		"{description}", ctx.Description,
		"{prison_ledger_code}", ctx.PrisonLedgerCode,
		"{creator}", ctx.Creator,
		"{confirmer}", ctx.Confirmer,
	).Replace(string(t))
}

// =============================================================================
// FIELDS
// =============================================================================

// journalFields is the fixed column layout of the disbursements table. The
// template carries its own styling; no cell styles are written here.
var journalFields = []output.Field{
	{Name: "operating_unit", Column: "A"},
	{Name: "supplier_number", Column: "B"},
	{Name: "site_name", Column: "C"},
	{Name: "payee_type", Column: "D"},
	{Name: "unique_payee_reference", Column: "E"},
	{Name: "payee_forname", Column: "F"},
	{Name: "payee_surname", Column: "G"},
	{Name: "payee_address_line1", Column: "H"},
	{Name: "payee_address_line2", Column: "I"},
	{Name: "payee_address_city", Column: "J"},
	{Name: "payee_postcode", Column: "K"},
	{Name: "remittance_email_address", Column: "L"},
	{Name: "vat_registration_number", Column: "M"},
	{Name: "payment_method", Column: "N"},
	{Name: "sort_code", Column: "O"},
	{Name: "account_number", Column: "P"},
	{Name: "name_of_bank", Column: "Q"},
	{Name: "account_name", Column: "R"},
	{Name: "roll_number", Column: "S"},
	{Name: "invoice_date", Column: "T"},
	{Name: "invoice_number", Column: "U"},
	{Name: "description", Column: "V"},
	{Name: "entity", Column: "W"},
	{Name: "cost_centre", Column: "X"},
	{Name: "account", Column: "Y"},
	{Name: "objective", Column: "Z"},
	{Name: "analysis", Column: "AA"},
	{Name: "vat_rate", Column: "AB"},
	{Name: "line_description", Column: "AC"},
	{Name: "net_amount", Column: "AD"},
	{Name: "vat_amount", Column: "AE"},
	{Name: "total_amount", Column: "AF"},
	{Name: "completer_id", Column: "AG"},
	{Name: "approver_id", Column: "AH"},
}

// bankDetailsFields are only written for bank-transfer payments; cheque
// rows leave them blank.
var bankDetailsFields = map[string]bool{
	"sort_code":      true,
	"account_number": true,
	"name_of_bank":   true,
	"account_name":   true,
	"roll_number":    true,
}

// amountFields are written numerically from the row amount rather than
// through a template.
var amountFields = map[string]bool{
	"net_amount":   true,
	"total_amount": true,
}

// fieldValues holds the templated static value per field. Absent fields
// stay empty.
var fieldValues = map[string]Template{
	"operating_unit":           "NMS",
	"payee_type":               "Client",
	"unique_payee_reference":   "{id}",
	"payee_forname":            "{recipient_first_name}",
	"payee_surname":            "{recipient_last_name}",
	"payee_address_line1":      "{address_line1}",
	"payee_address_line2":      "{address_line2}",
	"payee_address_city":       "{city}",
	"payee_postcode":           "{postcode}",
	"remittance_email_address": "{recipient_email}",
	"payment_method":           "{payment_method}",
	"sort_code":                "{sort_code}",
	"account_number":           "{account_number}",
	"name_of_bank":             "Unknown Bank",
	"account_name":             "{recipient_first_name} {recipient_last_name}",
	"roll_number":              "{roll_number}",
	"invoice_date":             "{date}",
	"invoice_number":           "{invoice_number}",
	"description":              "{description}",
	"entity":                   "0210",
	"cost_centre":              "{prison_ledger_code}",
	"account":                  "2617902085",
	"objective":                "0000000",
	"analysis":                 "00000000",
	"vat_rate":                 "UK OUT OF SCOPE",
	"vat_amount":               "0",
	"completer_id":             "{creator}",
	"approver_id":              "{confirmer}",
}
