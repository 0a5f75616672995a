package refund_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtp/bank-admin/calendar"
	"github.com/mtp/bank-admin/output"
	"github.com/mtp/bank-admin/reconcile"
	"github.com/mtp/bank-admin/refund"
	"github.com/mtp/bank-admin/upstream"
)

// =============================================================================
// RENDER TESTS
// =============================================================================

func transaction(id int, amount int64, sender string) upstream.Transaction {
	return upstream.Transaction{
		ID:                  id,
		Amount:              amount,
		SenderSortCode:      "110000",
		SenderAccountNumber: "11223344",
		SenderName:          sender,
		RefCode:             "900123",
		ReceivedAt:          time.Date(2016, time.September, 13, 9, 30, 0, 0, time.UTC),
	}
}

func TestRender_NoTransactions_NoFile(t *testing.T) {
	_, err := refund.Render(nil)
	assert.ErrorIs(t, err, output.ErrEmptyFile)
}

func TestRender_FiveColumnLayout(t *testing.T) {
	data, err := refund.Render([]upstream.Transaction{transaction(1, 2550, "J SMITH")})
	require.NoError(t, err)

	line := strings.TrimRight(string(data), "\r\n")
	assert.Equal(t, "110000,11223344,J SMITH,25.50,Payment refunded 1309 00123", line)
	assert.True(t, strings.HasSuffix(string(data), "\r\n"), "AccessPay requires CRLF line endings")
}

func TestRender_RollNumberPreferredAsReference(t *testing.T) {
	tx := transaction(1, 1000, "J SMITH")
	tx.SenderRollNumber = "A-123456"

	data, err := refund.Render([]upstream.Transaction{tx})
	require.NoError(t, err)

	assert.Contains(t, string(data), ",A-123456\r\n")
}

func TestRender_FormulaInjectionEscaped(t *testing.T) {
	// GIVEN: A sender name that is a spreadsheet formula
	// WHEN: Rendering the CSV
	// THEN: The cell is neutralized with a leading apostrophe

	data, err := refund.Render([]upstream.Transaction{transaction(1, 1000, "=1+2")})
	require.NoError(t, err)

	assert.Contains(t, string(data), "'=1+2")
	assert.NotContains(t, string(data), ",=1+2,")
}

func TestRender_AmountsAreExactTwoDecimalStrings(t *testing.T) {
	data, err := refund.Render([]upstream.Transaction{transaction(1, 1, "J SMITH")})
	require.NoError(t, err)

	assert.Contains(t, string(data), ",0.01,")
}

// =============================================================================
// MARKING TESTS
// =============================================================================

// markingStub serves the reconcile and transaction-list endpoints and
// records every lock, retrieval query and PATCH body.
type markingStub struct {
	transactions []upstream.Transaction
	locks        []map[string]string
	queries      []url.Values
	patches      [][]map[string]any
}

func (s *markingStub) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/transactions/reconcile/":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			s.locks = append(s.locks, body)
		case r.Method == http.MethodGet && r.URL.Path == "/transactions/":
			s.queries = append(s.queries, r.URL.Query())
			json.NewEncoder(w).Encode(map[string]any{
				"count": len(s.transactions), "results": s.transactions,
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/transactions/":
			var body []map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			s.patches = append(s.patches, body)
			for _, patch := range body {
				id := int(patch["id"].(float64))
				for i := range s.transactions {
					if s.transactions[i].ID == id {
						s.transactions[i].Refunded = true
					}
				}
			}
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newMarkingGenerator(t *testing.T, stub *markingStub, now time.Time) *refund.Generator {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	client, err := upstream.NewClient(server.URL, "")
	require.NoError(t, err)

	cal := calendar.New(nil)
	return &refund.Generator{
		Client:   client,
		Resolver: &reconcile.Resolver{
			Client:   client,
			Calendar: cal,
			Now:      func() time.Time { return now },
		},
		Calendar: cal,
	}
}

func TestMarkRefunded_OnlyOutstandingTransactions(t *testing.T) {
	// GIVEN: Three refundable transactions, one already marked refunded
	// WHEN: Marking the window
	// THEN: Only the two outstanding ids are patched

	stub := &markingStub{transactions: []upstream.Transaction{
		{ID: 1, Amount: 100, Status: upstream.StatusRefundable},
		{ID: 2, Amount: 200, Status: upstream.StatusRefundable, Refunded: true},
		{ID: 3, Amount: 300, Status: upstream.StatusRefundable},
	}}
	generator := newMarkingGenerator(t, stub, time.Date(2016, time.September, 15, 0, 0, 0, 0, time.UTC))

	marked, err := generator.MarkRefunded(context.Background(), time.Date(2016, time.September, 13, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, 2, marked)
	require.Len(t, stub.patches, 1)
	require.Len(t, stub.patches[0], 2)
	assert.Equal(t, float64(1), stub.patches[0][0]["id"])
	assert.Equal(t, float64(3), stub.patches[0][1]["id"])
}

func TestMarkRefunded_SecondRunPatchesNothing(t *testing.T) {
	// Marking twice must not re-patch transactions flagged by the first run.

	stub := &markingStub{transactions: []upstream.Transaction{
		{ID: 1, Amount: 100, Status: upstream.StatusRefundable},
		{ID: 2, Amount: 200, Status: upstream.StatusRefundable},
	}}
	generator := newMarkingGenerator(t, stub, time.Date(2016, time.September, 15, 0, 0, 0, 0, time.UTC))
	receiptDate := time.Date(2016, time.September, 13, 0, 0, 0, 0, time.UTC)

	_, err := generator.MarkRefunded(context.Background(), receiptDate)
	require.NoError(t, err)

	marked, err := generator.MarkRefunded(context.Background(), receiptDate)
	require.NoError(t, err)

	assert.Equal(t, 0, marked)
	assert.Len(t, stub.patches, 1, "second run must issue no PATCH")
}

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestGenerate_MondayPeriodCoversWeekend(t *testing.T) {
	// GIVEN: A Monday receipt date, so the period collapses to Friday-Monday
	// WHEN: Generating the refund file on Tuesday
	// THEN: Retrieval spans Friday midnight through Tuesday midnight and all
	//       four calendar days are locked - Monday must not be truncated off

	stub := &markingStub{transactions: []upstream.Transaction{
		{ID: 1, Amount: 100, Status: upstream.StatusRefundable,
			SenderSortCode: "110000", SenderAccountNumber: "11223344",
			SenderName: "J SMITH", RefCode: "900123",
			ReceivedAt: time.Date(2016, time.September, 12, 9, 0, 0, 0, time.UTC)},
	}}
	generator := newMarkingGenerator(t, stub, time.Date(2016, time.September, 13, 0, 0, 0, 0, time.UTC))

	_, err := generator.Generate(context.Background(), time.Date(2016, time.September, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, stub.locks, 4, "Friday, Saturday, Sunday and Monday each get a lock")
	assert.Equal(t, "2016-09-09T00:00:00Z", stub.locks[0]["received_at__gte"])
	assert.Equal(t, "2016-09-12T00:00:00Z", stub.locks[3]["received_at__gte"])
	assert.Equal(t, "2016-09-13T00:00:00Z", stub.locks[3]["received_at__lt"])

	require.Len(t, stub.queries, 1)
	assert.Equal(t, "2016-09-09T00:00:00Z", stub.queries[0].Get("received_at__gte"))
	assert.Equal(t, "2016-09-13T00:00:00Z", stub.queries[0].Get("received_at__lt"))
}

func TestGenerate_MondayPeriod_TooEarlyOnMondayItself(t *testing.T) {
	// The Friday-Monday period only closes at Tuesday midnight; a Monday run
	// must be refused outright, not served a truncated Friday-Sunday file.

	stub := &markingStub{}
	generator := newMarkingGenerator(t, stub, time.Date(2016, time.September, 12, 0, 0, 0, 0, time.UTC))

	_, err := generator.Generate(context.Background(), time.Date(2016, time.September, 12, 0, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, err, reconcile.ErrEarlyReconciliation)
	assert.Empty(t, stub.locks)
	assert.Empty(t, stub.queries)
}
