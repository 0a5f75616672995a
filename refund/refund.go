/*
Package refund produces the AccessPay refund file and flags refunds upstream.

PURPOSE:
  Refundable transactions for a reconciliation period are written as a
  five-column CSV consumed by AccessPay: sort code, account number, sender
  name, amount, reference. Separately, the transactions are marked refunded
  upstream - at most once each.

IDEMPOTENT MARKING:
  MarkRefunded re-queries the refundable set immediately before patching and
  only submits transactions not already flagged. A retry therefore only
  touches records still outstanding.

FORMAT NOTES:
  CRLF line endings, UTF-8, no header row. Cell values beginning with '='
  are escaped with a leading apostrophe - sender names come from bank files
  and cannot be trusted in spreadsheet software.
*/
package refund

import (
	"bytes"
	"context"
	"encoding/csv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtp/bank-admin/calendar"
	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/reconcile"
	"github.com/mtp/bank-admin/upstream"
)

const referenceDateFormat = "0201" // DDMM of the receipt date

// Generator produces the refund CSV for a receipt date.
type Generator struct {
	Client   *upstream.Client
	Resolver *reconcile.Resolver
	Calendar *calendar.Calendar
}

// Generate resolves the reconciliation period for the receipt date, locks
// it, and renders the refund CSV. MarkRefunded is a separate step so a
// failed download does not leave transactions flagged.
func (g *Generator) Generate(ctx context.Context, receiptDate time.Time) ([]byte, error) {
	start, end, err := g.periodFor(ctx, receiptDate)
	if err != nil {
		return nil, err
	}

	transactions, err := g.Client.Transactions(ctx, upstream.StatusRefundable, start, end)
	if err != nil {
		return nil, err
	}
	return Render(transactions)
}

// MarkRefunded flags the period's refundable transactions as refunded,
// skipping any already marked.
func (g *Generator) MarkRefunded(ctx context.Context, receiptDate time.Time) (int, error) {
	start, end, err := g.periodFor(ctx, receiptDate)
	if err != nil {
		return 0, err
	}

	transactions, err := g.Client.Transactions(ctx, upstream.StatusRefundable, start, end)
	if err != nil {
		return 0, err
	}

	var outstanding []int
	for _, t := range transactions {
		if !t.Refunded {
			outstanding = append(outstanding, t.ID)
		}
	}
	if len(outstanding) == 0 {
		return 0, nil
	}
	if err := g.Client.MarkRefunded(ctx, outstanding); err != nil {
		return 0, err
	}
	return len(outstanding), nil
}

// periodFor computes and locks the refund reconciliation period. Refunds
// use the collapsed period bounds so a Monday run picks up the weekend:
// both bounds must reach the resolver, or the period would stop at the
// start day's next workday and Monday's transactions would never be seen.
func (g *Generator) periodFor(ctx context.Context, receiptDate time.Time) (time.Time, time.Time, error) {
	startDay, endDay := g.Calendar.ReconciliationPeriodBounds(receiptDate)
	return g.Resolver.ForPeriod(ctx, startDay, endDay)
}

// Render writes the refund CSV for the given transactions. Returns
// output.ErrEmptyFile when there are none.
func Render(transactions []upstream.Transaction) ([]byte, error) {
	if len(transactions) == 0 {
		return nil, output.ErrEmptyFile
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true

	for _, t := range transactions {
		amount := decimal.NewFromInt(t.Amount).Div(decimal.NewFromInt(100))
		record := []string{
			t.SenderSortCode,
			t.SenderAccountNumber,
			t.SenderName,
			amount.StringFixed(2),
			Reference(t),
		}
		for i, cell := range record {
			record[i] = output.EscapeFormula(cell)
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reference computes the AccessPay reference for a refund: the sender's
// roll number when the account has one (building societies), otherwise a
// code derived from the receipt date and the numeric reference code.
func Reference(t upstream.Transaction) string {
	if t.SenderRollNumber != "" {
		return t.SenderRollNumber
	}
	refCode := t.RefCode
	if len(refCode) > 1 {
		refCode = refCode[1:]
	}
	return "Payment refunded " + t.ReceivedAt.Format(referenceDateFormat) + " " + refCode
}
