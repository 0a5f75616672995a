package adi_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtp/bank-admin/adi"
	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/upstream"
)

// =============================================================================
// FIXTURES
// =============================================================================

const journalDate = "13/09/2016"

func testPrisons() map[string]upstream.Prison {
	return map[string]upstream.Prison{
		"BPR": {NomisID: "BPR", GeneralLedgerCode: "048", Name: "HMP Birmingham"},
		"SPR": {NomisID: "SPR", GeneralLedgerCode: "067", Name: "HMP Swansea"},
		"PPR": {NomisID: "PPR", GeneralLedgerCode: "123", Name: "HMP Oakwood", PrivateEstate: true},
	}
}

func onlineCredit(id int, amount int64, prison string) upstream.Credit {
	return upstream.Credit{ID: id, Amount: amount, Prison: prison, Source: upstream.SourceOnline}
}

func bankCredit(id int, amount int64, prison, code string) upstream.Credit {
	return upstream.Credit{
		ID: id, Amount: amount, Prison: prison,
		Source: upstream.SourceBankTransfer, ReconciliationCode: code,
	}
}

func refundTx(id int, amount int64, refCode string) upstream.Transaction {
	return upstream.Transaction{ID: id, Amount: amount, RefCode: refCode, Status: upstream.StatusRefundable}
}

func rejectTx(id int, amount int64, refCode string) upstream.Transaction {
	return upstream.Transaction{ID: id, Amount: amount, RefCode: refCode, Status: upstream.StatusUnidentified}
}

// scenarioCredits builds 20 credits across 3 prisons with mixed sources:
// 12 online without codes (one synthetic batch per prison) and 8 bank
// transfers with distinct reconciliation codes.
func scenarioCredits() []upstream.Credit {
	return []upstream.Credit{
		onlineCredit(1, 2000, "BPR"), onlineCredit(2, 1500, "BPR"),
		onlineCredit(3, 3000, "BPR"), onlineCredit(4, 2500, "BPR"),
		bankCredit(5, 5000, "BPR", "BT001"), bankCredit(6, 4000, "BPR", "BT002"),
		bankCredit(7, 3500, "BPR", "BT003"),

		onlineCredit(8, 1000, "SPR"), onlineCredit(9, 1200, "SPR"),
		onlineCredit(10, 900, "SPR"), onlineCredit(11, 1100, "SPR"),
		onlineCredit(12, 800, "SPR"),
		bankCredit(13, 2200, "SPR", "BT004"), bankCredit(14, 1800, "SPR", "BT005"),

		onlineCredit(15, 4200, "PPR"), onlineCredit(16, 3300, "PPR"),
		onlineCredit(17, 2100, "PPR"),
		bankCredit(18, 6000, "PPR", "BT006"), bankCredit(19, 2700, "PPR", "BT007"),
		bankCredit(20, 1300, "PPR", "BT008"),
	}
}

func sumSides(rows []adi.Row) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, row := range rows {
		if row.Record == adi.RecordDebit {
			debits = debits.Add(row.Amount)
		} else {
			credits = credits.Add(row.Amount)
		}
	}
	return debits, credits
}

func countRows(rows []adi.Row, payment adi.PaymentType, record adi.RecordType) int {
	n := 0
	for _, row := range rows {
		if row.Payment == payment && row.Record == record {
			n++
		}
	}
	return n
}

// =============================================================================
// ROW BUILDING TESTS
// =============================================================================

func TestBuildRows_EmptyInput_NoFile(t *testing.T) {
	_, err := adi.BuildRows(nil, nil, nil, testPrisons(), journalDate)
	assert.ErrorIs(t, err, output.ErrEmptyFile)
}

func TestBuildRows_Scenario_RowCounts(t *testing.T) {
	// GIVEN: 20 credits over 3 prisons, 5 refundable and 2 rejected transactions
	// WHEN: Building the row list
	// THEN: Debit rows = 11 distinct reconciliation codes + 5 refunds + 2 rejects,
	//       credit rows = 3 ledger codes + 1 refund total + 2 rejects

	refunds := []upstream.Transaction{
		refundTx(31, 2500, "900001"), refundTx(32, 1000, "900002"),
		refundTx(33, 3200, "900003"), refundTx(34, 450, "900004"),
		refundTx(35, 780, "900005"),
	}
	rejects := []upstream.Transaction{
		rejectTx(41, 5000, "900006"), rejectTx(42, 2000, "900007"),
	}

	rows, err := adi.BuildRows(scenarioCredits(), refunds, rejects, testPrisons(), journalDate)
	require.NoError(t, err)

	assert.Equal(t, 11, countRows(rows, adi.PaymentCredit, adi.RecordDebit),
		"8 bank codes + 1 synthetic card batch per prison")
	assert.Equal(t, 3, countRows(rows, adi.PaymentCredit, adi.RecordCredit),
		"one aggregate credit row per ledger code")
	assert.Equal(t, 5, countRows(rows, adi.PaymentRefund, adi.RecordDebit))
	assert.Equal(t, 1, countRows(rows, adi.PaymentRefund, adi.RecordCredit))
	assert.Equal(t, 2, countRows(rows, adi.PaymentReject, adi.RecordDebit))
	assert.Equal(t, 2, countRows(rows, adi.PaymentReject, adi.RecordCredit))
}

func TestBuildRows_DebitsEqualCredits(t *testing.T) {
	refunds := []upstream.Transaction{refundTx(31, 2500, "900001"), refundTx(32, 999, "900002")}
	rejects := []upstream.Transaction{rejectTx(41, 3333, "900006")}

	rows, err := adi.BuildRows(scenarioCredits(), refunds, rejects, testPrisons(), journalDate)
	require.NoError(t, err)

	debits, credits := sumSides(rows)
	assert.True(t, debits.Equal(credits), "debits %s != credits %s", debits, credits)
}

func TestBuildRows_OnlineCreditsMergeIntoCardBatch(t *testing.T) {
	// Two codeless online credits for the same prison share one synthetic
	// date-stamped batch row; an online credit with an explicit code keeps it.

	credits := []upstream.Credit{
		onlineCredit(1, 1000, "BPR"),
		onlineCredit(2, 2000, "BPR"),
		{ID: 3, Amount: 500, Prison: "BPR", Source: upstream.SourceOnline, ReconciliationCode: "WP339704"},
	}

	rows, err := adi.BuildRows(credits, nil, nil, testPrisons(), journalDate)
	require.NoError(t, err)

	require.Len(t, rows, 3, "two debit rows plus one credit total")
	assert.Equal(t, "13/09/2016 - Card payment", rows[0].Context.ReconciliationCode)
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("30")))
	assert.Equal(t, "WP339704", rows[1].Context.ReconciliationCode)

	total := rows[2]
	assert.Equal(t, adi.RecordCredit, total.Record)
	assert.Equal(t, "048", total.Context.PrisonLedgerCode)
	assert.Equal(t, "HMP Birmingham", total.Context.PrisonName)
	assert.True(t, total.Amount.Equal(decimal.RequireFromString("35")))
}

func TestBuildRows_DebitsPrecedeGroupCreditTotal(t *testing.T) {
	credits := []upstream.Credit{
		bankCredit(1, 1000, "BPR", "BT001"),
		bankCredit(2, 2000, "SPR", "BT002"),
		bankCredit(3, 3000, "BPR", "BT003"),
	}

	rows, err := adi.BuildRows(credits, nil, nil, testPrisons(), journalDate)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	// BPR group first (first seen), its debits immediately before its total.
	assert.Equal(t, "BT001", rows[0].Context.ReconciliationCode)
	assert.Equal(t, "BT003", rows[1].Context.ReconciliationCode)
	assert.Equal(t, adi.RecordCredit, rows[2].Record)
	assert.Equal(t, "048", rows[2].Context.PrisonLedgerCode)
	assert.Equal(t, "BT002", rows[3].Context.ReconciliationCode)
	assert.Equal(t, "067", rows[4].Context.PrisonLedgerCode)
}

func TestBuildRows_PrivateEstateName(t *testing.T) {
	credits := []upstream.Credit{bankCredit(1, 1000, "PPR", "BT001")}

	rows, err := adi.BuildRows(credits, nil, nil, testPrisons(), journalDate)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Private estate", rows[1].Context.PrisonName,
		"private-estate prisons are not named individually")
}

func TestBuildRows_RejectPairing(t *testing.T) {
	// Each reject produces exactly one debit/credit pair, unaggregated.

	rejects := []upstream.Transaction{
		rejectTx(1, 1000, "900001"),
		rejectTx(2, 1000, "900002"),
		rejectTx(3, 2500, "900003"),
	}

	rows, err := adi.BuildRows(nil, nil, rejects, testPrisons(), journalDate)
	require.NoError(t, err)

	require.Len(t, rows, 6)
	for i := 0; i < 6; i += 2 {
		assert.Equal(t, adi.RecordDebit, rows[i].Record)
		assert.Equal(t, adi.RecordCredit, rows[i+1].Record)
		assert.True(t, rows[i].Amount.Equal(rows[i+1].Amount))
	}
}

func TestBuildRows_RejectNarrative_SenderFieldFlag(t *testing.T) {
	// GIVEN: One reject whose reference was typed into the sender-name field,
	//        and one with a normal reference
	// WHEN: Building rows
	// THEN: The credit-side narrative uses the flagged field verbatim

	rejects := []upstream.Transaction{
		{ID: 1, Amount: 1000, RefCode: "900001", ReferenceInSenderField: true,
			SenderName: "original reference", Reference: "ignored"},
		{ID: 2, Amount: 2000, RefCode: "900002",
			SenderName: "J SMITH", Reference: "A1234BC 01/01/80"},
	}

	rows, err := adi.BuildRows(nil, nil, rejects, testPrisons(), journalDate)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "original reference", rows[1].Context.Reference)
	assert.Equal(t, "A1234BC 01/01/80", rows[3].Context.Reference)
}

func TestBuildRows_ExactPenceArithmetic(t *testing.T) {
	// Amounts that are awkward in binary floating point must still balance
	// exactly: 3 x 0.10 + 0.01.

	credits := []upstream.Credit{
		onlineCredit(1, 10, "BPR"), onlineCredit(2, 10, "BPR"),
		onlineCredit(3, 10, "BPR"), onlineCredit(4, 1, "BPR"),
	}

	rows, err := adi.BuildRows(credits, nil, nil, testPrisons(), journalDate)
	require.NoError(t, err)

	debits, credits2 := sumSides(rows)
	assert.True(t, debits.Equal(decimal.RequireFromString("0.31")))
	assert.True(t, credits2.Equal(decimal.RequireFromString("0.31")))
}
