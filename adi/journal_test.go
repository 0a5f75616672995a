package adi_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mtp/bank-admin/adi"
	"github.com/mtp/bank-admin/upstream"
)

// =============================================================================
// RENDER TESTS
// =============================================================================
// Rendering runs against a blank workbook (empty template path); the cell
// layout is what the real .xlsm template shares.

func renderFixture(t *testing.T, now time.Time) *excelize.File {
	t.Helper()

	credits := []upstream.Credit{
		bankCredit(1, 2550, "BPR", "BT001"),
	}
	rejects := []upstream.Transaction{
		{ID: 2, Amount: 1000, RefCode: "900001", Reference: "A1234BC"},
	}
	rows, err := adi.BuildRows(credits, nil, rejects, testPrisons(), journalDate)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	data, err := adi.Render("", rows, time.Date(2016, time.September, 13, 0, 0, 0, 0, time.UTC), "AB", now)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file
}

func TestRender_SheetNamedForReceiptDate(t *testing.T) {
	file := renderFixture(t, time.Date(2016, time.September, 14, 10, 0, 0, 0, time.UTC))

	index, err := file.GetSheetIndex("130916")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, index, 0, "worksheet renamed to DDMMYY of the receipt date")
}

func TestRender_RowLayoutAndAmounts(t *testing.T) {
	file := renderFixture(t, time.Date(2016, time.September, 14, 10, 0, 0, 0, time.UTC))

	// Row 16: credit debit row - amount in K, static values in place.
	debit, err := file.GetCellValue("130916", "K16")
	require.NoError(t, err)
	assert.Equal(t, "25.5", debit)

	upload, _ := file.GetCellValue("130916", "B16")
	assert.Equal(t, "O", upload)
	description, _ := file.GetCellValue("130916", "M16")
	assert.Equal(t, "BT001", description)

	// Row 17: the prison's aggregate credit row in L, ledger code in D.
	credit, _ := file.GetCellValue("130916", "L17")
	assert.Equal(t, "25.5", credit)
	businessUnit, _ := file.GetCellValue("130916", "D17")
	assert.Equal(t, "048", businessUnit)
	total, _ := file.GetCellValue("130916", "M17")
	assert.Equal(t, "HMP Birmingham MTP Total 13/09/2016", total)

	// Rows 18-19: the reject pair; credit narrative carries the reference.
	rejectNarrative, _ := file.GetCellValue("130916", "M19")
	assert.Equal(t, "A1234BC 13/09/2016", rejectNarrative)
}

func TestRender_TotalsRowUsesNativeFormulas(t *testing.T) {
	file := renderFixture(t, time.Date(2016, time.September, 14, 10, 0, 0, 0, time.UTC))

	// 4 data rows from 16 -> totals on row 20.
	label, _ := file.GetCellValue("130916", "B20")
	assert.Equal(t, "Totals:", label)

	debitFormula, err := file.GetCellFormula("130916", "K20")
	require.NoError(t, err)
	assert.Equal(t, "SUM(K16:K19)", debitFormula)
	creditFormula, _ := file.GetCellFormula("130916", "L20")
	assert.Equal(t, "SUM(L16:L19)", creditFormula)
}

func TestRender_DefinedNameCoversDataSpan(t *testing.T) {
	file := renderFixture(t, time.Date(2016, time.September, 14, 10, 0, 0, 0, time.UTC))

	names := file.GetDefinedName()
	found := false
	for _, name := range names {
		if name.Name == "BNE_UPLOAD" {
			found = true
			assert.Equal(t, "'130916'!$B$16:$B$19", name.RefersTo)
		}
	}
	assert.True(t, found, "BNE_UPLOAD named range must exist")
}

func TestRender_BatchNameAndSignoffBlock(t *testing.T) {
	file := renderFixture(t, time.Date(2016, time.September, 14, 10, 0, 0, 0, time.UTC))

	batch, _ := file.GetCellValue("130916", "C5")
	assert.Equal(t, "0210_SSCL_AB_140916_MTP01", batch)

	uploaded, _ := file.GetCellValue("130916", "M22")
	assert.Equal(t, "Uploaded by:", uploaded)
	checked, _ := file.GetCellValue("130916", "M24")
	assert.Equal(t, "Checked by:", checked)
	posted, _ := file.GetCellValue("130916", "M26")
	assert.Equal(t, "Posted by:", posted)
}

func TestRender_AccountingDate_SameMonthUsesToday(t *testing.T) {
	file := renderFixture(t, time.Date(2016, time.September, 14, 10, 0, 0, 0, time.UTC))

	journalDate, _ := file.GetCellValue("130916", "J9")
	assert.Equal(t, "14/09/2016", journalDate)
}

func TestRender_AccountingDate_MonthRolloverUsesReceiptDate(t *testing.T) {
	// Generating October 3rd for a September receipt must post to September.

	file := renderFixture(t, time.Date(2016, time.October, 3, 10, 0, 0, 0, time.UTC))

	journalDate, _ := file.GetCellValue("130916", "J9")
	assert.Equal(t, "13/09/2016", journalDate)
}
