package domain

import (
	"context"
	"errors"
)

// ErrPaymentRejected is returned by a Ledger when the recipient account
// does not accept incoming payments.
var ErrPaymentRejected = errors.New("recipient rejects payments")

// Ledger moves value out of a campaign's escrow to a recipient account.
// Implementations are scoped to a single campaign operation: a transfer
// becomes visible only if the surrounding operation succeeds.
type Ledger interface {
	Transfer(ctx context.Context, to Identity, amount Amount) error
}
