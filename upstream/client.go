/*
client.go - HTTP client and retrieval/mutation operations

PAGINATION:
  All list endpoints accept limit/offset. Retrieval here always drains the
  full result set before returning; a failure mid-drain propagates and the
  partial set is discarded.

MUTATIONS:
  Reconcile locks one calendar day of transactions upstream (irreversible
  from this side). MarkRefunded and SendDisbursements flip processed flags;
  callers re-query outstanding records immediately before calling, which is
  what keeps retries from double-marking.

ERROR HANDLING:
  Unexpected statuses surface as *StatusError so the API layer can
  distinguish auth expiry (401/403) from other upstream failures. Nothing is
  swallowed here except the known non-unique conflict on RecordDownload.
*/
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultPageSize is the fixed drain page size for list endpoints.
const DefaultPageSize = 500

// StatusError reports an unexpected upstream response status.
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s %s returned status %d", e.Method, e.Path, e.Status)
}

// IsClientError reports whether the upstream rejected the request itself
// (4xx), as opposed to failing internally.
func (e *StatusError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// =============================================================================
// CLIENT
// =============================================================================

// Client calls the prisoner-money API. Safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	pageSize   int
}

// NewClient builds a client for the API at baseURL, authenticating with the
// given bearer token. Timeout behaviour is the http.Client's default.
func NewClient(baseURL, token string) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream API URL: %w", err)
	}
	return &Client{
		baseURL:    parsed,
		token:      token,
		httpClient: &http.Client{},
		pageSize:   DefaultPageSize,
	}, nil
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// Transactions drains all transactions in [start, end), optionally filtered
// by status.
func (c *Client) Transactions(ctx context.Context, status string, start, end time.Time) ([]Transaction, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	setWindow(query, "received_at", start, end)

	var all []Transaction
	err := c.drain(ctx, "/transactions/", query, func(raw json.RawMessage) (int, error) {
		var batch []Transaction
		if err := json.Unmarshal(raw, &batch); err != nil {
			return 0, err
		}
		all = append(all, batch...)
		return len(batch), nil
	})
	return all, err
}

// Credits drains all valid credits received in [start, end).
func (c *Client) Credits(ctx context.Context, start, end time.Time) ([]Credit, error) {
	query := url.Values{}
	query.Set("valid", "True")
	setWindow(query, "received_at", start, end)

	var all []Credit
	err := c.drain(ctx, "/credits/", query, func(raw json.RawMessage) (int, error) {
		var batch []Credit
		if err := json.Unmarshal(raw, &batch); err != nil {
			return 0, err
		}
		all = append(all, batch...)
		return len(batch), nil
	})
	return all, err
}

// ConfirmedDisbursements drains disbursements confirmed in [start, end) that
// are awaiting or have completed sending.
func (c *Client) ConfirmedDisbursements(ctx context.Context, start, end time.Time) ([]Disbursement, error) {
	query := url.Values{}
	query.Add("resolution", ResolutionConfirmed)
	query.Add("resolution", ResolutionSent)
	query.Set("log__action", LogActionConfirmed)
	setWindow(query, "logged_at", start, end)

	var all []Disbursement
	err := c.drain(ctx, "/disbursements/", query, func(raw json.RawMessage) (int, error) {
		var batch []Disbursement
		if err := json.Unmarshal(raw, &batch); err != nil {
			return 0, err
		}
		all = append(all, batch...)
		return len(batch), nil
	})
	return all, err
}

// CancelledDisbursements returns one page of cancelled disbursements, most
// recently cancelled first, with the total count for pagination.
func (c *Client) CancelledDisbursements(ctx context.Context, limit, offset int) ([]Disbursement, int, error) {
	query := url.Values{}
	query.Set("resolution", ResolutionCancelled)
	query.Set("log__action", LogActionCancelled)
	query.Set("ordering", "-log__created")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var page listPage
	if err := c.getJSON(ctx, "/disbursements/", query, &page); err != nil {
		return nil, 0, err
	}
	var batch []Disbursement
	if err := json.Unmarshal(page.Results, &batch); err != nil {
		return nil, 0, err
	}
	return batch, page.Count, nil
}

// DisbursementByInvoice looks up a disbursement by its invoice number.
// found is false unless exactly one matches.
func (c *Client) DisbursementByInvoice(ctx context.Context, invoiceNumber string) (Disbursement, bool, error) {
	query := url.Values{}
	query.Set("invoice_number", invoiceNumber)

	var page listPage
	if err := c.getJSON(ctx, "/disbursements/", query, &page); err != nil {
		return Disbursement{}, false, err
	}
	if page.Count != 1 {
		return Disbursement{}, false, nil
	}
	var batch []Disbursement
	if err := json.Unmarshal(page.Results, &batch); err != nil {
		return Disbursement{}, false, err
	}
	return batch[0], true, nil
}

// Prisons fetches all prisons keyed by NOMIS id. Called once per generation
// run; callers memoize the map for the run's duration only.
func (c *Client) Prisons(ctx context.Context) (map[string]Prison, error) {
	var all []Prison
	err := c.drain(ctx, "/prisons/", url.Values{}, func(raw json.RawMessage) (int, error) {
		var batch []Prison
		if err := json.Unmarshal(raw, &batch); err != nil {
			return 0, err
		}
		all = append(all, batch...)
		return len(batch), nil
	})
	if err != nil {
		return nil, err
	}
	prisons := make(map[string]Prison, len(all))
	for _, p := range all {
		prisons[p.NomisID] = p
	}
	return prisons, nil
}

// LastBalance returns the most recent balance strictly before date, or nil
// if none exists yet (treated as an opening balance of zero).
func (c *Client) LastBalance(ctx context.Context, date time.Time) (*Balance, error) {
	query := url.Values{}
	query.Set("limit", "1")
	query.Set("date__lt", date.Format("2006-01-02"))

	var page listPage
	if err := c.getJSON(ctx, "/balances/", query, &page); err != nil {
		return nil, err
	}
	var batch []Balance
	if err := json.Unmarshal(page.Results, &batch); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}
	return &batch[0], nil
}

// PrivateEstateBatches drains the private-estate credit batches for the
// window.
func (c *Client) PrivateEstateBatches(ctx context.Context, start, end time.Time) ([]PrivateEstateBatch, error) {
	query := url.Values{}
	query.Set("date__gte", start.Format("2006-01-02"))
	query.Set("date__lt", end.Format("2006-01-02"))

	var all []PrivateEstateBatch
	err := c.drain(ctx, "/private-estate-batches/", query, func(raw json.RawMessage) (int, error) {
		var batch []PrivateEstateBatch
		if err := json.Unmarshal(raw, &batch); err != nil {
			return 0, err
		}
		all = append(all, batch...)
		return len(batch), nil
	})
	return all, err
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Reconcile locks one calendar day of transactions, [day, day+1), for
// reconciliation. The upstream lock is day-local, which is why multi-day
// windows are reconciled one day at a time.
func (c *Client) Reconcile(ctx context.Context, day time.Time) error {
	body := map[string]string{
		"received_at__gte": day.Format(time.RFC3339),
		"received_at__lt":  day.AddDate(0, 0, 1).Format(time.RFC3339),
	}
	return c.send(ctx, http.MethodPost, "/transactions/reconcile/", body)
}

// MarkRefunded flags the given transactions as refunded.
func (c *Client) MarkRefunded(ctx context.Context, ids []int) error {
	patch := make([]map[string]any, len(ids))
	for i, id := range ids {
		patch[i] = map[string]any{"id": id, "refunded": true}
	}
	return c.send(ctx, http.MethodPatch, "/transactions/", patch)
}

// SendDisbursements marks the given disbursements as sent.
func (c *Client) SendDisbursements(ctx context.Context, ids []int) error {
	return c.send(ctx, http.MethodPost, "/disbursements/actions/send/", map[string]any{
		"disbursement_ids": ids,
	})
}

// CancelDisbursement cancels a confirmed disbursement with a reason.
func (c *Client) CancelDisbursement(ctx context.Context, id int, reason string) error {
	return c.send(ctx, http.MethodPost, "/disbursements/actions/cancel/", map[string]any{
		"disbursement_ids": []int{id},
		"reason":           reason,
	})
}

// RecordDownload records that a file was generated for (label, date). A 4xx
// response is expected when re-downloading and is not an error.
func (c *Client) RecordDownload(ctx context.Context, label string, date time.Time) error {
	err := c.send(ctx, http.MethodPost, "/file-downloads/", map[string]string{
		"label": label,
		"date":  date.Format("2006-01-02"),
	})
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.IsClientError() {
		return nil
	}
	return err
}

// MissingDownloads lists the dates among those given that have no recorded
// download for the label.
func (c *Client) MissingDownloads(ctx context.Context, label string, dates []time.Time) ([]time.Time, error) {
	query := url.Values{}
	query.Set("label", label)
	for _, d := range dates {
		query.Add("date", d.Format("2006-01-02"))
	}

	var response struct {
		MissingDates []string `json:"missing_dates"`
	}
	if err := c.getJSON(ctx, "/file-downloads/missing/", query, &response); err != nil {
		return nil, err
	}
	missing := make([]time.Time, 0, len(response.MissingDates))
	for _, s := range response.MissingDates {
		day, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("bad missing-download date %q: %w", s, err)
		}
		missing = append(missing, day)
	}
	return missing, nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

type listPage struct {
	Count   int             `json:"count"`
	Results json.RawMessage `json:"results"`
}

// drain pages through a list endpoint until the full result set has been
// collected. collect reports how many records a page held.
func (c *Client) drain(ctx context.Context, path string, query url.Values, collect func(json.RawMessage) (int, error)) error {
	offset := 0
	for {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page listPage
		if err := c.getJSON(ctx, path, q, &page); err != nil {
			return err
		}
		n, err := collect(page.Results)
		if err != nil {
			return fmt.Errorf("decoding %s page at offset %d: %w", path, offset, err)
		}
		offset += n
		if n == 0 || offset >= page.Count {
			return nil
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.resolve(path)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: http.MethodGet, Path: path, Status: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path).String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) resolve(path string) *url.URL {
	ref := *c.baseURL
	ref.Path = joinPath(c.baseURL.Path, path)
	return &ref
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func joinPath(base, path string) string {
	if base == "" || base == "/" {
		return path
	}
	if base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + path
}

func setWindow(query url.Values, field string, start, end time.Time) {
	query.Set(field+"__gte", start.Format(time.RFC3339))
	query.Set(field+"__lt", end.Format(time.RFC3339))
}
