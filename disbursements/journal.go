/*
journal.go - disbursements journal generation and sent-marking

PIPELINE:
  resolve window (locks transactions upstream) -> retrieve disbursements
  confirmed in it, the window's private-estate batches and the prison
  reference data -> build rows -> render into the .xlsm upload template.

ROWS:
  One row per disbursement, plus one row per non-empty private-estate batch
  (those settlements go out through the same payment run). Bank detail
  columns are only written for bank-transfer payments. Missing audit actors
  render as "Unknown".

MARKING:
  MarkSent is a separate step from generation, issued after a successful
  download. It re-queries the window and only posts disbursements still in
  the confirmed state, so a retry cannot re-send.
*/
package disbursements

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/reconcile"
	"github.com/mtp/bank-admin/upstream"
)

// Row is one journal line: an amount plus the context its field templates
// render from.
type Row struct {
	Amount  decimal.Decimal
	Context RowContext
}

// Generator produces the disbursements workbook for a receipt date.
type Generator struct {
	Client       *upstream.Client
	Resolver     *reconcile.Resolver
	TemplatePath string
}

// Generate runs the full pipeline for one receipt date and returns the
// rendered workbook.
func (g *Generator) Generate(ctx context.Context, receiptDate time.Time) ([]byte, error) {
	start, end, err := g.Resolver.ForDate(ctx, receiptDate)
	if err != nil {
		return nil, err
	}

	disbursements, err := g.Client.ConfirmedDisbursements(ctx, start, end)
	if err != nil {
		return nil, err
	}
	batches, err := g.Client.PrivateEstateBatches(ctx, start, end)
	if err != nil {
		return nil, err
	}
	prisons, err := g.Client.Prisons(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := BuildRows(disbursements, batches, prisons, receiptDate)
	if err != nil {
		return nil, err
	}
	return Render(g.TemplatePath, rows)
}

// MarkSent flags the window's confirmed disbursements as sent, skipping any
// already sent. Returns how many were marked.
func (g *Generator) MarkSent(ctx context.Context, receiptDate time.Time) (int, error) {
	start, end, err := g.Resolver.ForDate(ctx, receiptDate)
	if err != nil {
		return 0, err
	}

	disbursements, err := g.Client.ConfirmedDisbursements(ctx, start, end)
	if err != nil {
		return 0, err
	}

	var outstanding []int
	for _, d := range disbursements {
		if d.Resolution == upstream.ResolutionConfirmed {
			outstanding = append(outstanding, d.ID)
		}
	}
	if len(outstanding) == 0 {
		return 0, nil
	}
	if err := g.Client.SendDisbursements(ctx, outstanding); err != nil {
		return 0, err
	}
	return len(outstanding), nil
}

// =============================================================================
// ROW BUILDING
// =============================================================================

// BuildRows turns the window's disbursements and private-estate batches
// into journal rows. Returns output.ErrEmptyFile when there is nothing to
// pay out.
func BuildRows(disbursements []upstream.Disbursement, batches []upstream.PrivateEstateBatch, prisons map[string]upstream.Prison, receiptDate time.Time) ([]Row, error) {
	date := receiptDate.Format(rowDateFormat)

	rows := make([]Row, 0, len(disbursements)+len(batches))
	for _, d := range disbursements {
		creator, confirmer := d.ActorNames()
		rows = append(rows, Row{
			Amount: pounds(d.Amount),
			Context: RowContext{
				ID:                 strconv.Itoa(d.ID),
				RecipientFirstName: d.RecipientFirstName,
				RecipientLastName:  d.RecipientLastName,
				RecipientEmail:     d.RecipientEmail,
				AddressLine1:       d.AddressLine1,
				AddressLine2:       d.AddressLine2,
				City:               d.City,
				Postcode:           d.Postcode,
				PaymentMethod:      PaymentMethods[d.Method],
				SortCode:           d.SortCode,
				AccountNumber:      d.AccountNumber,
				RollNumber:         d.RollNumber,
				Date:               date,
				InvoiceNumber:      d.InvoiceNumber,
				Description:        d.RemittanceDescription,
				PrisonLedgerCode:   prisons[d.Prison].GeneralLedgerCode,
				Creator:            creator,
				Confirmer:          confirmer,
			},
		})
	}

	// Private-estate batches settle by cheque to the operator, one row per
	// batch. Empty batches produce no payment.
	for _, b := range batches {
		if b.TotalAmount == 0 {
			continue
		}
		prison := prisons[b.Prison]
		rows = append(rows, Row{
			Amount: pounds(b.TotalAmount),
			Context: RowContext{
				ID:                b.Reference,
				RecipientLastName: prison.Name,
				PaymentMethod:     PaymentMethods[upstream.MethodCheque],
				Date:              date,
				InvoiceNumber:     b.Reference,
				Description:       "Credits received " + batchDate(b.Date),
				PrisonLedgerCode:  prison.GeneralLedgerCode,
				Creator:           "Automated",
				Confirmer:         "Automated",
			},
		})
	}

	if len(rows) == 0 {
		return nil, output.ErrEmptyFile
	}
	return rows, nil
}

// =============================================================================
// RENDERING
// =============================================================================

// Render writes the rows into the disbursements template.
func Render(templatePath string, rows []Row) ([]byte, error) {
	journal, err := output.NewJournal(templatePath, SheetName, StartRow, journalFields)
	if err != nil {
		return nil, err
	}

	bankTransfer := PaymentMethods[upstream.MethodBankTransfer]
	for _, row := range rows {
		for _, field := range journal.Fields() {
			if bankDetailsFields[field.Name] && row.Context.PaymentMethod != bankTransfer {
				continue
			}
			if amountFields[field.Name] {
				if err := journal.SetAmount(field.Name, row.Amount); err != nil {
					return nil, err
				}
				continue
			}
			value := ""
			if tmpl, ok := fieldValues[field.Name]; ok {
				value = tmpl.Render(row.Context)
			}
			if err := journal.SetField(field.Name, value); err != nil {
				return nil, err
			}
		}
		journal.NextRow(1)
	}

	return journal.Bytes()
}

func pounds(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}

// batchDate reformats the upstream batch date for the description column,
// falling back to the raw value if it is not a plain date.
func batchDate(value string) string {
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return value
	}
	return day.Format(rowDateFormat)
}
