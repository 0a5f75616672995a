/*
Package output holds the shared machinery for generated accounting files.

PURPOSE:
  Every downstream artifact this service produces (ADI journal, AccessPay
  refund CSV, MT940 statement, disbursements workbook) shares a small set of
  concerns: a stable label identifying the file kind, a deterministic output
  filename, the "nothing to put in the file" failure mode, and defences
  against spreadsheet formula injection. They live here so the per-format
  packages stay focused on their own layout.

FILE LABELS:
  Labels key both the local file cache and the upstream file-download
  tracking endpoints. They must stay stable across releases - changing one
  orphans the download history for that file kind.

SEE ALSO:
  - journal.go: workbook rendering shared by ADI and disbursements
  - adi/: ledger row building and the ADI journal
  - refund/, statement/, disbursements/: the other artifact generators
*/
package output

import (
	"errors"
	"strings"
	"time"
)

// =============================================================================
// FILE LABELS AND NAMES
// =============================================================================

const (
	ADIJournalLabel    = "ADI_JOURNAL"
	AccessPayLabel     = "ACCESSPAY"
	StatementLabel     = "MT940_STATEMENT"
	DisbursementsLabel = "DISBURSEMENTS"
)

// RefundFilename names the AccessPay CSV for the day it is downloaded.
func RefundFilename(today time.Time) string {
	return "mtp_accesspay_" + today.Format("2006-01-02") + ".csv"
}

// ADIJournalFilename embeds the downloading user's initials, as required by
// the shared services centre's upload conventions.
func ADIJournalFilename(initials string, today time.Time) string {
	if initials == "" {
		initials = "MTP"
	}
	return "0210_SSCL_" + initials + "_" + today.Format("02012006") + "_MTP01.xlsm"
}

// StatementFilename names the MT940 statement file.
func StatementFilename(receiptDate time.Time) string {
	return "stmt_" + receiptDate.Format("02012006") + ".940"
}

// DisbursementsFilename names the disbursements workbook.
func DisbursementsFilename(receiptDate time.Time) string {
	return "disbursements_" + receiptDate.Format("02012006") + ".xlsm"
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrEmptyFile is returned when a generation run finds no qualifying records.
// No file is produced and no upstream mutation happens on this path; the API
// layer maps it to a user-visible "no transactions available" message.
var ErrEmptyFile = errors.New("no records available for file generation")

// =============================================================================
// HELPERS
// =============================================================================

// EscapeFormula neutralizes spreadsheet formula injection in CSV cells.
// A value beginning with '=' gains a leading apostrophe so that spreadsheet
// software treats it as text.
func EscapeFormula(value string) string {
	if strings.HasPrefix(value, "=") {
		return "'" + value
	}
	return value
}

// DailyFileUID returns a statement sequence number unique within a day.
func DailyFileUID(now time.Time) int {
	return int(now.Unix() % 86400)
}
