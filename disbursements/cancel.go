/*
cancel.go - cancellation of confirmed disbursements

Cancellation is keyed by invoice number, the identifier staff read off the
journal file. The lookup must match exactly one disbursement; state checks
happen here so the API layer can map each failure to its own response.
*/
package disbursements

import (
	"context"
	"errors"

	"github.com/mtp/bank-admin/upstream"
)

// CancelPageSize is the page size of the cancelled-disbursements listing.
const CancelPageSize = 20

var (
	// ErrUnknownInvoice means no single disbursement matches the invoice
	// number.
	ErrUnknownInvoice = errors.New("no unique disbursement matches the invoice number")

	// ErrAlreadyCancelled means the disbursement was cancelled previously.
	ErrAlreadyCancelled = errors.New("disbursement is already cancelled")

	// ErrNotConfirmed means the disbursement has not reached a cancellable
	// state yet.
	ErrNotConfirmed = errors.New("disbursement has not been confirmed")
)

// Canceller runs the cancel workflow against the upstream API.
type Canceller struct {
	Client *upstream.Client
}

// Cancel cancels the confirmed or sent disbursement with the given invoice
// number, recording the reason. The cancelled disbursement is returned so
// callers can show what was acted on.
func (c *Canceller) Cancel(ctx context.Context, invoiceNumber, reason string) (upstream.Disbursement, error) {
	disbursement, found, err := c.Client.DisbursementByInvoice(ctx, invoiceNumber)
	if err != nil {
		return upstream.Disbursement{}, err
	}
	if !found {
		return upstream.Disbursement{}, ErrUnknownInvoice
	}

	switch disbursement.Resolution {
	case upstream.ResolutionCancelled:
		return upstream.Disbursement{}, ErrAlreadyCancelled
	case upstream.ResolutionConfirmed, upstream.ResolutionSent:
	default:
		return upstream.Disbursement{}, ErrNotConfirmed
	}

	if err := c.Client.CancelDisbursement(ctx, disbursement.ID, reason); err != nil {
		return upstream.Disbursement{}, err
	}
	return disbursement, nil
}

// Cancelled returns one page of cancelled disbursements, most recently
// cancelled first, and the total count. Pages are numbered from 1.
func (c *Canceller) Cancelled(ctx context.Context, page int) ([]upstream.Disbursement, int, error) {
	if page < 1 {
		page = 1
	}
	return c.Client.CancelledDisbursements(ctx, CancelPageSize, (page-1)*CancelPageSize)
}
