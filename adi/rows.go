/*
rows.go - Pure ledger row building

PURPOSE:
  Turns one reconciliation window's credits, refundable transactions and
  rejected transactions into the ordered double-entry row list the journal
  renders. Pure computation: no I/O, no mutation of inputs.

BUCKETING:
  Credits group by destination ledger code in first-seen order. Within a
  prison group, amounts aggregate per reconciliation code; online credits
  without a code merge into one synthetic date-stamped card-payment batch
  per prison. Each group emits its debit rows immediately followed by one
  aggregate credit row.

  Refunds emit one debit row each plus a single aggregate credit row.
  Rejects emit an unaggregated debit/credit pair per transaction.

INVARIANT:
  sum(debits) == sum(credits) exactly, in decimal arithmetic. Conversion to
  the spreadsheet's float happens at the render boundary, never here.
*/
package adi

import (
	"github.com/shopspring/decimal"

	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/upstream"
)

// Row is one journal line: an amount on the debit or credit side plus the
// context its templated fields render from. Rows have no identity beyond
// their position in the list.
type Row struct {
	Payment PaymentType
	Record  RecordType
	Amount  decimal.Decimal
	Context RowContext
}

var minorUnits = decimal.NewFromInt(100)

func pounds(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorUnits)
}

// creditGroup accumulates one prison's credits, keyed by destination ledger
// code.
type creditGroup struct {
	ledgerCode string
	prisonName string
	total      decimal.Decimal
	codeOrder  []string
	codeTotals map[string]decimal.Decimal
}

func (g *creditGroup) add(code string, amount decimal.Decimal) {
	if _, seen := g.codeTotals[code]; !seen {
		g.codeOrder = append(g.codeOrder, code)
		g.codeTotals[code] = decimal.Zero
	}
	g.codeTotals[code] = g.codeTotals[code].Add(amount)
	g.total = g.total.Add(amount)
}

// BuildRows computes the ordered row list for one reconciliation window.
// journalDate is the receipt date in display form, used in synthetic batch
// labels and credit-total descriptions. Returns output.ErrEmptyFile when
// there is nothing to journal.
func BuildRows(
	credits []upstream.Credit,
	refunds []upstream.Transaction,
	rejects []upstream.Transaction,
	prisons map[string]upstream.Prison,
	journalDate string,
) ([]Row, error) {
	if len(credits) == 0 && len(refunds) == 0 && len(rejects) == 0 {
		return nil, output.ErrEmptyFile
	}

	var rows []Row

	// Credits, grouped per destination ledger code in first-seen order.
	var groupOrder []string
	groups := make(map[string]*creditGroup)
	for _, credit := range credits {
		prison := prisons[credit.Prison]
		group, seen := groups[prison.GeneralLedgerCode]
		if !seen {
			name := prison.Name
			if prison.PrivateEstate {
				name = "Private estate"
			}
			group = &creditGroup{
				ledgerCode: prison.GeneralLedgerCode,
				prisonName: name,
				codeTotals: make(map[string]decimal.Decimal),
			}
			groups[prison.GeneralLedgerCode] = group
			groupOrder = append(groupOrder, prison.GeneralLedgerCode)
		}

		code := credit.ReconciliationCode
		if credit.Source == upstream.SourceOnline && code == "" {
			code = journalDate + " - Card payment"
		}
		group.add(code, pounds(credit.Amount))
	}

	for _, ledgerCode := range groupOrder {
		group := groups[ledgerCode]
		for _, code := range group.codeOrder {
			rows = append(rows, Row{
				Payment: PaymentCredit,
				Record:  RecordDebit,
				Amount:  group.codeTotals[code],
				Context: RowContext{ReconciliationCode: code, Date: journalDate},
			})
		}
		rows = append(rows, Row{
			Payment: PaymentCredit,
			Record:  RecordCredit,
			Amount:  group.total,
			Context: RowContext{
				PrisonName:       group.prisonName,
				PrisonLedgerCode: group.ledgerCode,
				Date:             journalDate,
			},
		})
	}

	// Refunds: one debit row each, one aggregate credit row.
	if len(refunds) > 0 {
		refundTotal := decimal.Zero
		for _, refund := range refunds {
			amount := pounds(refund.Amount)
			refundTotal = refundTotal.Add(amount)
			rows = append(rows, Row{
				Payment: PaymentRefund,
				Record:  RecordDebit,
				Amount:  amount,
				Context: RowContext{ReconciliationCode: refund.RefCode, Date: journalDate},
			})
		}
		rows = append(rows, Row{
			Payment: PaymentRefund,
			Record:  RecordCredit,
			Amount:  refundTotal,
			Context: RowContext{Date: journalDate},
		})
	}

	// Rejects: an unaggregated debit/credit pair per transaction.
	for _, reject := range rejects {
		amount := pounds(reject.Amount)
		rows = append(rows,
			Row{
				Payment: PaymentReject,
				Record:  RecordDebit,
				Amount:  amount,
				Context: RowContext{ReconciliationCode: reject.RefCode, Date: journalDate},
			},
			Row{
				Payment: PaymentReject,
				Record:  RecordCredit,
				Amount:  amount,
				Context: RowContext{Reference: reject.Narrative(), Date: journalDate},
			},
		)
	}

	return rows, nil
}
