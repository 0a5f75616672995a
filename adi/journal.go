/*
journal.go - ADI journal generation

PIPELINE:
  resolve window (locks transactions upstream) -> retrieve credits,
  refundable and rejected transactions, prisons -> build rows -> render
  into the .xlsm upload template. The empty-input check happens inside
  BuildRows, before any rendering.

RENDERING:
  Rows are written from StartRow down. A totals row follows with native SUM
  formulas over the debit and credit columns, so the workbook remains
  auditable when opened. The written span is published under the BNE_UPLOAD
  defined name for the bulk-upload tooling, and the worksheet is renamed to
  the receipt date (DDMMYY).

ACCOUNTING DATE:
  The journal date cell prefers "today" unless that has crossed a month
  boundary relative to the receipt date, in which case the receipt date is
  used to keep the posting inside its accounting period.
*/
package adi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/reconcile"
	"github.com/mtp/bank-admin/upstream"
)

// Generator produces the ADI journal workbook for a receipt date.
type Generator struct {
	Client       *upstream.Client
	Resolver     *reconcile.Resolver
	TemplatePath string

	// Now is the clock for the batch name and accounting date. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time
}

// Generate runs the full pipeline for one receipt date and returns the
// rendered workbook. initials identify the generating user in the batch
// name cell.
func (g *Generator) Generate(ctx context.Context, receiptDate time.Time, initials string) ([]byte, error) {
	start, end, err := g.Resolver.ForDate(ctx, receiptDate)
	if err != nil {
		return nil, err
	}

	credits, err := g.Client.Credits(ctx, start, end)
	if err != nil {
		return nil, err
	}
	refunds, err := g.Client.Transactions(ctx, upstream.StatusRefundable, start, end)
	if err != nil {
		return nil, err
	}
	rejects, err := g.Client.Transactions(ctx, upstream.StatusUnidentified, start, end)
	if err != nil {
		return nil, err
	}
	prisons, err := g.Client.Prisons(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := BuildRows(credits, refunds, rejects, prisons, receiptDate.Format(journalDateFormat))
	if err != nil {
		return nil, err
	}

	return Render(g.TemplatePath, rows, receiptDate, initials, g.now())
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

// Render writes the row list into the ADI template and finishes the journal
// with totals, named range and metadata cells.
func Render(templatePath string, rows []Row, receiptDate time.Time, initials string, now time.Time) ([]byte, error) {
	journal, err := output.NewJournal(templatePath, SheetName, StartRow, journalFields)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		for _, field := range journal.Fields() {
			value := ""
			if tmpl, ok := lookupValue(field.Name, row.Payment, row.Record); ok {
				value = tmpl.Render(row.Context)
			}
			if err := journal.SetField(field.Name, value); err != nil {
				return nil, err
			}
		}

		amountField := "debit"
		if row.Record == RecordCredit {
			amountField = "credit"
		}
		if err := journal.SetAmount(amountField, row.Amount); err != nil {
			return nil, err
		}
		journal.NextRow(1)
	}

	if err := finishJournal(journal, receiptDate, initials, now); err != nil {
		return nil, err
	}
	return journal.Bytes()
}

func finishJournal(journal *output.Journal, receiptDate time.Time, initials string, now time.Time) error {
	lastDataRow := journal.CurrentRow() - 1

	// Totals row: closed off with a border across every field, a label, and
	// native SUM formulas over both amount columns.
	for _, field := range journal.Fields() {
		if err := journal.SetField(field.Name, "", finalRowStyle); err != nil {
			return err
		}
	}
	if err := journal.SetField("upload", "Totals:", finalRowStyle, boldLeftStyle); err != nil {
		return err
	}
	for _, amountField := range []string{"debit", "credit"} {
		column, err := journal.Column(amountField)
		if err != nil {
			return err
		}
		formula := fmt.Sprintf("SUM(%s%d:%s%d)", column, journal.StartRow(), column, lastDataRow)
		style := finalRowStyle
		style.NumberFormat = amountFormat
		if err := journal.SetFormula(amountField, formula, style); err != nil {
			return err
		}
	}

	// Worksheet is named for the receipt date; the upload tooling reads the
	// data span through the defined name.
	if err := journal.RenameSheet(receiptDate.Format("020106")); err != nil {
		return err
	}
	uploadColumn, err := journal.Column("upload")
	if err != nil {
		return err
	}
	if err := journal.DefineName(uploadRangeName, journal.SheetRef(uploadColumn, journal.StartRow(), lastDataRow)); err != nil {
		return err
	}

	// Sign-off block below the table.
	for _, label := range []string{"Uploaded by:", "Checked by:", "Posted by:"} {
		journal.NextRow(2)
		if err := journal.SetField("description", label, lightBlueFill, boldLeftStyle); err != nil {
			return err
		}
	}

	if err := journal.SetCell(batchNameCell, batchName(initials, now)); err != nil {
		return err
	}

	// Keep the posting inside its accounting period: use today unless the
	// month has rolled over since the receipt date.
	accountingDate := now
	if accountingDate.Month() != receiptDate.Month() || accountingDate.Year() != receiptDate.Year() {
		accountingDate = receiptDate
	}
	return journal.SetCell(dateCell, accountingDate.Format(journalDateFormat))
}

func batchName(initials string, now time.Time) string {
	if initials == "" {
		initials = "MTP"
	}
	return strings.NewReplacer(
		"{initials}", initials,
		"{date}", now.Format(batchDateFormat),
	).Replace(batchNameFormat)
}
