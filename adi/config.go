/*
config.go - ADI journal layout: fields, styles and templated values

PURPOSE:
  The ADI upload template has a fixed column layout. Each named field maps
  to a worksheet column, a default cell style, and - per (payment type,
  record type) - an optional templated static value. Everything here is
  built once at package init and never mutated.

VALUE TEMPLATES:
  Templates carry placeholders filled from a RowContext. The context is a
  closed struct, so the set of available placeholders is fixed at compile
  time; an unreferenced placeholder simply renders empty.
*/
package adi

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mtp/bank-admin/output"
)

// Worksheet layout.
const (
	SheetName = "TEMPLATE"
	StartRow  = 16

	batchNameCell     = "C5"
	dateCell          = "J9"
	batchNameFormat   = "0210_SSCL_{initials}_{date}_MTP01"
	batchDateFormat   = "020106"
	journalDateFormat = "02/01/2006"

	uploadRangeName = "BNE_UPLOAD"
	amountFormat    = "£#,##0.00_-"
)

// =============================================================================
// PAYMENT AND RECORD TYPES
// =============================================================================

type PaymentType int

const (
	PaymentCredit PaymentType = iota // valid credits to prisoner accounts
	PaymentRefund                    // refundable transactions
	PaymentReject                    // unidentified transactions
)

type RecordType int

const (
	RecordDebit RecordType = iota
	RecordCredit
)

// =============================================================================
// ROW CONTEXT AND TEMPLATES
// =============================================================================

// RowContext carries the dynamic values a row's templates may reference.
type RowContext struct {
	PrisonName         string
	PrisonLedgerCode   string
	ReconciliationCode string
	Reference          string
	Date               string
}

// Template is a static field value with {placeholder} substitutions.
type Template string

// Render fills the template's placeholders from the context.
func (t Template) Render(ctx RowContext) string {
	return strings.NewReplacer(
		"{prison_name}", ctx.PrisonName,
		"{prison_ledger_code}", ctx.PrisonLedgerCode,
		"{reconciliation_code}", ctx.ReconciliationCode,
		"{reference}", ctx.Reference,
		"{date}", ctx.Date,
	).Replace(string(t))
}

// =============================================================================
// STYLES
// =============================================================================

var (
	whiteFill = output.Style{FillColor: "FFFFFF"}
	tanFill   = output.Style{FillColor: "FFCC99"}

	finalRowStyle = output.Style{
		Borders: []excelize.Border{
			{Type: "top", Style: 1, Color: "000000"},
			{Type: "bottom", Style: 1, Color: "000000"},
		},
	}

	boldLeftStyle = output.Style{
		Font:      &excelize.Font{Family: "Arial", Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "left"},
	}

	lightBlueFill = output.Style{FillColor: "C5D9F1"}
)

func whiteWithBorders(borders ...excelize.Border) output.Style {
	s := whiteFill
	s.Borders = borders
	return s
}

func tanWithBorders(borders ...excelize.Border) output.Style {
	s := tanFill
	s.Borders = borders
	return s
}

// =============================================================================
// FIELDS
// =============================================================================

// journalFields is the fixed column layout of the ADI upload table.
var journalFields = []output.Field{
	{Name: "upload", Column: "B", Style: whiteWithBorders(
		excelize.Border{Type: "left", Style: 2, Color: "000000"},
		excelize.Border{Type: "right", Style: 2, Color: "000000"},
	)},
	{Name: "company", Column: "C", Style: whiteFill},
	{Name: "business_unit", Column: "D", Style: whiteFill},
	{Name: "responsibility_code", Column: "E", Style: whiteFill},
	{Name: "activity", Column: "F", Style: whiteFill},
	{Name: "account", Column: "G", Style: whiteFill},
	{Name: "funding_source", Column: "H", Style: whiteFill},
	{Name: "analysis", Column: "I", Style: whiteFill},
	{Name: "spare", Column: "J", Style: whiteWithBorders(
		excelize.Border{Type: "right", Style: 2, Color: "000000"},
	)},
	{Name: "debit", Column: "K", Style: whiteWithBorders(
		excelize.Border{Type: "left", Style: 1, Color: "000000"},
		excelize.Border{Type: "right", Style: 1, Color: "000000"},
	)},
	{Name: "credit", Column: "L", Style: whiteWithBorders(
		excelize.Border{Type: "left", Style: 1, Color: "000000"},
		excelize.Border{Type: "right", Style: 1, Color: "000000"},
	)},
	{Name: "description", Column: "M", Style: whiteWithBorders(
		excelize.Border{Type: "left", Style: 1, Color: "000000"},
		excelize.Border{Type: "right", Style: 2, Color: "000000"},
	)},
	{Name: "line_dff_1", Column: "N", Style: tanFill},
	{Name: "messages", Column: "O", Style: tanWithBorders(
		excelize.Border{Type: "right", Style: 2, Color: "000000"},
	)},
}

// =============================================================================
// VALUE TABLE
// =============================================================================

type valueKey struct {
	Field   string
	Payment PaymentType
	Record  RecordType
}

// journalValues holds the templated static value per (field, payment type,
// record type). Absent keys mean the field stays empty for that row kind.
var journalValues = map[valueKey]Template{
	{"upload", PaymentCredit, RecordDebit}:  "O",
	{"upload", PaymentCredit, RecordCredit}: "O",
	{"upload", PaymentRefund, RecordDebit}:  "O",
	{"upload", PaymentRefund, RecordCredit}: "O",
	{"upload", PaymentReject, RecordDebit}:  "O",
	{"upload", PaymentReject, RecordCredit}: "O",

	{"company", PaymentCredit, RecordDebit}:  "1",
	{"company", PaymentCredit, RecordCredit}: "1",
	{"company", PaymentRefund, RecordDebit}:  "1",
	{"company", PaymentRefund, RecordCredit}: "1",
	{"company", PaymentReject, RecordDebit}:  "1",
	{"company", PaymentReject, RecordCredit}: "1",

	{"business_unit", PaymentCredit, RecordDebit}:  "535",
	{"business_unit", PaymentCredit, RecordCredit}: "{prison_ledger_code}",
	{"business_unit", PaymentRefund, RecordDebit}:  "535",
	{"business_unit", PaymentRefund, RecordCredit}: "535",
	{"business_unit", PaymentReject, RecordDebit}:  "535",
	{"business_unit", PaymentReject, RecordCredit}: "535",

	{"responsibility_code", PaymentCredit, RecordDebit}:  "9500",
	{"responsibility_code", PaymentCredit, RecordCredit}: "9500",
	{"responsibility_code", PaymentRefund, RecordDebit}:  "9500",
	{"responsibility_code", PaymentRefund, RecordCredit}: "9500",
	{"responsibility_code", PaymentReject, RecordDebit}:  "9500",
	{"responsibility_code", PaymentReject, RecordCredit}: "9500",

	{"activity", PaymentCredit, RecordDebit}:  "950",
	{"activity", PaymentCredit, RecordCredit}: "950",
	{"activity", PaymentRefund, RecordDebit}:  "950",
	{"activity", PaymentRefund, RecordCredit}: "950",
	{"activity", PaymentReject, RecordDebit}:  "950",
	{"activity", PaymentReject, RecordCredit}: "950",

	{"account", PaymentCredit, RecordDebit}:  "8890",
	{"account", PaymentCredit, RecordCredit}: "9400",
	{"account", PaymentRefund, RecordDebit}:  "8890",
	{"account", PaymentRefund, RecordCredit}: "9401",
	{"account", PaymentReject, RecordDebit}:  "8890",
	{"account", PaymentReject, RecordCredit}: "9402",

	{"funding_source", PaymentCredit, RecordDebit}:  "95",
	{"funding_source", PaymentCredit, RecordCredit}: "95",
	{"funding_source", PaymentRefund, RecordDebit}:  "95",
	{"funding_source", PaymentRefund, RecordCredit}: "95",
	{"funding_source", PaymentReject, RecordDebit}:  "95",
	{"funding_source", PaymentReject, RecordCredit}: "95",

	{"analysis", PaymentCredit, RecordDebit}:  "000000",
	{"analysis", PaymentCredit, RecordCredit}: "000000",
	{"analysis", PaymentRefund, RecordDebit}:  "000000",
	{"analysis", PaymentRefund, RecordCredit}: "000000",
	{"analysis", PaymentReject, RecordDebit}:  "000000",
	{"analysis", PaymentReject, RecordCredit}: "000000",

	{"spare", PaymentCredit, RecordDebit}:  "000000",
	{"spare", PaymentCredit, RecordCredit}: "000000",
	{"spare", PaymentRefund, RecordDebit}:  "000000",
	{"spare", PaymentRefund, RecordCredit}: "000000",
	{"spare", PaymentReject, RecordDebit}:  "000000",
	{"spare", PaymentReject, RecordCredit}: "000000",

	{"description", PaymentCredit, RecordDebit}:  "{reconciliation_code}",
	{"description", PaymentCredit, RecordCredit}: "{prison_name} MTP Total {date}",
	{"description", PaymentRefund, RecordDebit}:  "{reconciliation_code}",
	{"description", PaymentRefund, RecordCredit}: "MTP Refunds Total {date}",
	{"description", PaymentReject, RecordDebit}:  "{reconciliation_code}",
	{"description", PaymentReject, RecordCredit}: "{reference} {date}",

	{"line_dff_1", PaymentCredit, RecordDebit}:  "MTP Payment",
	{"line_dff_1", PaymentCredit, RecordCredit}: "MTP Payment",
	{"line_dff_1", PaymentRefund, RecordDebit}:  "MTP Refund",
	{"line_dff_1", PaymentRefund, RecordCredit}: "MTP Refund",
	{"line_dff_1", PaymentReject, RecordDebit}:  "MTP Reject",
	{"line_dff_1", PaymentReject, RecordCredit}: "MTP Reject",
}

// lookupValue resolves the templated static value for a field on a row of
// the given kind. The second return is false when the field has no static
// value for that kind - a named branch, not an exceptional one.
func lookupValue(field string, payment PaymentType, record RecordType) (Template, bool) {
	t, ok := journalValues[valueKey{Field: field, Payment: payment, Record: record}]
	return t, ok
}
