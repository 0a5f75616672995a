/*
mt940.go - SWIFT MT940 customer statement serialization

RECORD LAYOUT:
  :20:  transaction reference number
  :25:  account identification (sort code + account number)
  :28C: statement/sequence number
  :60F: opening book balance
  :61:  one statement line per movement
  :86:  narrative for the preceding statement line
  :62F: closing book balance

FORMAT NOTES:
  SWIFT amounts use a comma decimal separator and no thousands grouping.
  Dates on balance records are YYMMDD; statement lines repeat MMDD as the
  entry date. Records are terminated with CRLF.
*/
package statement

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	balanceDateFormat = "060102"
	entryDateFormat   = "0102"
)

// TransactionType is the SWIFT type code on a :61: statement line.
type TransactionType string

// TypeMiscellaneous covers all prisoner-money movements; the upstream feed
// does not distinguish SWIFT transaction types.
const TypeMiscellaneous TransactionType = "MSC"

// Account identifies the statement account on the :25: record.
type Account struct {
	SortCode      string
	AccountNumber string
}

func (a Account) String() string { return a.SortCode + a.AccountNumber }

// Balance is an opening or closing book balance.
type Balance struct {
	Amount   decimal.Decimal
	Date     time.Time
	Currency string
}

func (b Balance) String() string {
	return indicator(b.Amount) + b.Date.Format(balanceDateFormat) + b.Currency + formatAmount(b.Amount)
}

// Transaction is one statement line with its narrative.
type Transaction struct {
	Date      time.Time
	Amount    decimal.Decimal
	Type      TransactionType
	Narrative string
}

// Statement is a single MT940 message.
type Statement struct {
	Reference      string
	Account        Account
	Number         string
	OpeningBalance Balance
	ClosingBalance Balance
	Transactions   []Transaction
}

// String renders the statement as MT940 records.
func (s Statement) String() string {
	var b strings.Builder
	writeRecord(&b, "20", s.Reference)
	writeRecord(&b, "25", s.Account.String())
	writeRecord(&b, "28C", s.Number)
	writeRecord(&b, "60F", s.OpeningBalance.String())
	for _, t := range s.Transactions {
		writeRecord(&b, "61", t.Date.Format(balanceDateFormat)+t.Date.Format(entryDateFormat)+
			indicator(t.Amount)+formatAmount(t.Amount)+"N"+string(t.Type))
		writeRecord(&b, "86", t.Narrative)
	}
	writeRecord(&b, "62F", s.ClosingBalance.String())
	return b.String()
}

func writeRecord(b *strings.Builder, tag, value string) {
	b.WriteString(":")
	b.WriteString(tag)
	b.WriteString(":")
	b.WriteString(value)
	b.WriteString("\r\n")
}

// indicator maps the amount's sign to the SWIFT credit/debit mark.
func indicator(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "D"
	}
	return "C"
}

func formatAmount(amount decimal.Decimal) string {
	return strings.ReplaceAll(amount.Abs().StringFixed(2), ".", ",")
}
