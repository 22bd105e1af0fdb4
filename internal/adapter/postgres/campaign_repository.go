package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"crowdfund-escrow/internal/core/domain"
	"crowdfund-escrow/internal/core/port"
)

// CampaignRepository implements port.CampaignRepository using pgxpool for
// PostgreSQL.
type CampaignRepository struct {
	pool dbPool
}

// dbPool is the part of *pgxpool.Pool the repository uses.
type dbPool interface {
	querier
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

var _ port.CampaignRepository = (*CampaignRepository)(nil)

// NewCampaignRepository returns a new repository instance.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// querier is the read side shared by pgx.Tx and the pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Create inserts a new campaign. The serial seq column records deployment
// order.
func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO campaigns (id, manager, minimum_contribution, balance, approvers_count, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, string(c.Manager), int64(c.MinimumContribution), int64(c.Balance), c.ApproversCount, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// List returns campaign IDs in deployment order.
func (r *CampaignRepository) List(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM campaigns ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// Get loads the full campaign aggregate from a single read-only snapshot.
func (r *CampaignRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	return load(ctx, tx, id, false)
}

// Update loads the campaign under a row lock, runs fn and writes back
// whatever fn changed. Payouts made through the ledger share the
// transaction. The row lock serialises writers of one campaign; a
// transaction aborted as a deadlock or serialization failure is retried
// from scratch.
func (r *CampaignRepository) Update(ctx context.Context, id uuid.UUID, fn port.UpdateFunc) error {
	return retry(ctx, maxUpdateAttempts, func() error {
		return r.update(ctx, id, fn)
	})
}

func (r *CampaignRepository) update(ctx context.Context, id uuid.UUID, fn port.UpdateFunc) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	before, err := load(ctx, tx, id, true)
	if err != nil {
		return err
	}
	after := before.Clone()
	if err = fn(ctx, after, &ledger{tx: tx}); err != nil {
		return err
	}
	return save(ctx, tx, before, after)
}

// AccountBalance returns the payouts credited to account.
func (r *CampaignRepository) AccountBalance(ctx context.Context, account domain.Identity) (domain.Amount, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE identity = $1`, string(account)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return domain.Amount(balance), nil
}

// load reads the campaign row, its approvers, requests and votes. With lock
// set the campaign row is locked FOR UPDATE, which serialises writers.
func load(ctx context.Context, q querier, id uuid.UUID, lock bool) (*domain.Campaign, error) {
	query := `SELECT id, manager, minimum_contribution, balance, approvers_count, created_at FROM campaigns WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var (
		c                domain.Campaign
		manager          string
		minimum, balance int64
	)
	err := q.QueryRow(ctx, query, id).Scan(&c.ID, &manager, &minimum, &balance, &c.ApproversCount, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.Manager = domain.Identity(manager)
	c.MinimumContribution = domain.Amount(minimum)
	c.Balance = domain.Amount(balance)

	rows, err := q.Query(ctx, `SELECT identity FROM campaign_approvers WHERE campaign_id = $1`, id)
	if err != nil {
		return nil, err
	}
	approvers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	c.Approvers = make(map[domain.Identity]bool, len(approvers))
	for _, a := range approvers {
		c.Approvers[domain.Identity(a)] = true
	}

	rows, err = q.Query(ctx, `SELECT idx, description, value, recipient, complete, approval_count, created_at FROM requests WHERE campaign_id = $1 ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	c.Requests, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Request, error) {
		var (
			req       domain.Request
			value     int64
			recipient string
		)
		err := row.Scan(&req.Index, &req.Description, &value, &recipient, &req.Complete, &req.ApprovalCount, &req.CreatedAt)
		req.Value = domain.Amount(value)
		req.Recipient = domain.Identity(recipient)
		req.Approvals = make(map[domain.Identity]bool)
		return req, err
	})
	if err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `SELECT idx, approver FROM request_approvals WHERE campaign_id = $1`, id)
	if err != nil {
		return nil, err
	}
	type vote struct {
		idx      int
		approver string
	}
	votes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (vote, error) {
		var v vote
		err := row.Scan(&v.idx, &v.approver)
		return v, err
	})
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		if v.idx < 0 || v.idx >= len(c.Requests) {
			return nil, fmt.Errorf("vote for unknown request %d of campaign %s", v.idx, id)
		}
		c.Requests[v.idx].Approvals[domain.Identity(v.approver)] = true
	}
	return &c, nil
}

// save writes the difference between before and after. Approvers, requests
// and votes are append-only, so only new rows are inserted; existing
// requests can only change completion and approval count.
func save(ctx context.Context, tx pgx.Tx, before, after *domain.Campaign) error {
	b := &pgx.Batch{}
	if after.Balance != before.Balance || after.ApproversCount != before.ApproversCount {
		b.Queue(`UPDATE campaigns SET balance = $1, approvers_count = $2 WHERE id = $3`,
			int64(after.Balance), after.ApproversCount, after.ID)
	}
	for a := range after.Approvers {
		if !before.Approvers[a] {
			b.Queue(`INSERT INTO campaign_approvers (campaign_id, identity) VALUES ($1,$2)`, after.ID, string(a))
		}
	}
	for i := range after.Requests {
		req := &after.Requests[i]
		if i >= len(before.Requests) {
			b.Queue(`INSERT INTO requests (campaign_id, idx, description, value, recipient, complete, approval_count, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				after.ID, req.Index, req.Description, int64(req.Value), string(req.Recipient), req.Complete, req.ApprovalCount, req.CreatedAt)
		} else {
			prev := &before.Requests[i]
			if req.Complete != prev.Complete || req.ApprovalCount != prev.ApprovalCount {
				b.Queue(`UPDATE requests SET complete = $1, approval_count = $2 WHERE campaign_id = $3 AND idx = $4`,
					req.Complete, req.ApprovalCount, after.ID, req.Index)
			}
		}
		for a := range req.Approvals {
			if i < len(before.Requests) && before.Requests[i].Approvals[a] {
				continue
			}
			b.Queue(`INSERT INTO request_approvals (campaign_id, idx, approver) VALUES ($1,$2,$3)`, after.ID, req.Index, string(a))
		}
	}
	if b.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("save campaign %s: %w", after.ID, err)
	}
	return nil
}
