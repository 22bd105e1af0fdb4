package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crowdfund-escrow/internal/core/domain"
)

// ledger credits payout recipients inside the campaign's transaction.
type ledger struct {
	tx pgx.Tx
}

func (l *ledger) Transfer(ctx context.Context, to domain.Identity, amount domain.Amount) error {
	// make sure the account row exists so it can be locked
	_, err := l.tx.Exec(ctx, `INSERT INTO accounts (identity) VALUES ($1) ON CONFLICT DO NOTHING`, string(to))
	if err != nil {
		return err
	}
	var rejects bool
	err = l.tx.QueryRow(ctx, `SELECT rejects_payments FROM accounts WHERE identity = $1 FOR UPDATE`, string(to)).Scan(&rejects)
	if err != nil {
		return err
	}
	if rejects {
		return fmt.Errorf("account %s: %w", to, domain.ErrPaymentRejected)
	}
	_, err = l.tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1, updated_at = now() WHERE identity = $2`, int64(amount), string(to))
	return err
}
