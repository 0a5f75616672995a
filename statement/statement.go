/*
Package statement produces the daily MT940 bank statement.

PIPELINE:
  resolve window (locks transactions upstream) -> retrieve every transaction
  in it -> serialize as a single MT940 message. Unlike the journal files, an
  empty window is not an error: the statement is still produced with opening
  and closing balances and no statement lines.

BALANCES:
  The opening balance is the last recorded closing balance strictly before
  the receipt date, or zero when none exists yet. The closing balance is the
  opening balance plus the window's net movement.

NARRATIVES:
  Statement lines carry the sender name and reference. Credits that have a
  reference code are overwritten with "<ref_code> BGC" so cashiers can match
  them against bank giro credit slips. Debit narratives are never rewritten.
*/
package statement

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/reconcile"
	"github.com/mtp/bank-admin/upstream"
)

const statementNumber = "1/1"

// Generator produces the MT940 statement for a receipt date.
type Generator struct {
	Client   *upstream.Client
	Resolver *reconcile.Resolver
	Account  Account
	Currency string

	// Now feeds the statement reference number. Defaults to time.Now;
	// tests pin it.
	Now func() time.Time
}

// Generate resolves and locks the reconciliation window for the receipt
// date and returns the serialized statement.
func (g *Generator) Generate(ctx context.Context, receiptDate time.Time) ([]byte, error) {
	start, end, err := g.Resolver.ForDate(ctx, receiptDate)
	if err != nil {
		return nil, err
	}

	transactions, err := g.Client.Transactions(ctx, "", start, end)
	if err != nil {
		return nil, err
	}
	lastBalance, err := g.Client.LastBalance(ctx, receiptDate)
	if err != nil {
		return nil, err
	}

	reference := strconv.Itoa(output.DailyFileUID(g.now()))
	return Render(g.Account, g.Currency, reference, receiptDate, transactions, lastBalance), nil
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

// Render serializes the window's transactions into an MT940 statement.
func Render(account Account, currency, reference string, receiptDate time.Time, transactions []upstream.Transaction, lastBalance *upstream.Balance) []byte {
	lines := make([]Transaction, 0, len(transactions))
	net := decimal.Zero
	for _, t := range transactions {
		amount := pounds(t.Amount)
		narrative := fullNarrative(t)
		if t.Category == upstream.CategoryDebit {
			amount = amount.Neg()
		} else if t.RefCode != "" {
			narrative = t.RefCode + " BGC"
		}
		net = net.Add(amount)
		lines = append(lines, Transaction{
			Date:      receiptDate,
			Amount:    amount,
			Type:      TypeMiscellaneous,
			Narrative: narrative,
		})
	}

	opening := Balance{Date: receiptDate, Currency: currency}
	if lastBalance != nil {
		opening.Amount = pounds(lastBalance.ClosingBalance)
		if day, err := time.Parse("2006-01-02", lastBalance.Date); err == nil {
			opening.Date = day
		}
	}
	closing := Balance{
		Amount:   opening.Amount.Add(net),
		Date:     receiptDate,
		Currency: currency,
	}

	message := Statement{
		Reference:      reference,
		Account:        account,
		Number:         statementNumber,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Transactions:   lines,
	}
	return []byte(message.String())
}

func pounds(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}

// fullNarrative joins the sender name and reference, skipping empty fields.
func fullNarrative(t upstream.Transaction) string {
	parts := make([]string, 0, 2)
	if t.SenderName != "" {
		parts = append(parts, t.SenderName)
	}
	if t.Reference != "" {
		parts = append(parts, t.Reference)
	}
	return strings.Join(parts, " ")
}
