package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"crowdfund-escrow/internal/core/domain"
	"crowdfund-escrow/internal/core/port"
)

// CampaignRepository implements port.CampaignRepository in process memory.
// A single mutex serialises every operation. Updates run on a copy of the
// campaign which replaces the stored one only when the update succeeds.
type CampaignRepository struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*domain.Campaign
	deployed  []uuid.UUID
	accounts  map[domain.Identity]domain.Amount
	rejecting map[domain.Identity]bool
}

var _ port.CampaignRepository = (*CampaignRepository)(nil)

// NewCampaignRepository returns an empty repository.
func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{
		campaigns: make(map[uuid.UUID]*domain.Campaign),
		accounts:  make(map[domain.Identity]domain.Amount),
		rejecting: make(map[domain.Identity]bool),
	}
}

// Create stores c and appends it to the deployment registry.
func (r *CampaignRepository) Create(_ context.Context, c *domain.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[c.ID]; ok {
		return fmt.Errorf("campaign %s already exists", c.ID)
	}
	r.campaigns[c.ID] = c.Clone()
	r.deployed = append(r.deployed, c.ID)
	return nil
}

// List returns campaign IDs in deployment order.
func (r *CampaignRepository) List(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, len(r.deployed))
	copy(out, r.deployed)
	return out, nil
}

// Get returns a copy of the campaign.
func (r *CampaignRepository) Get(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s: %w", id, domain.ErrNotFound)
	}
	return c.Clone(), nil
}

// Update applies fn to a copy of the campaign. Payouts made through the
// ledger are staged and credited only when fn succeeds.
func (r *CampaignRepository) Update(ctx context.Context, id uuid.UUID, fn port.UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign %s: %w", id, domain.ErrNotFound)
	}

	c := stored.Clone()
	ledger := &stagedLedger{rejecting: r.rejecting}
	if err := fn(ctx, c, ledger); err != nil {
		return err
	}

	for _, p := range ledger.credits {
		r.accounts[p.to] += p.amount
	}
	r.campaigns[id] = c
	return nil
}

// AccountBalance returns the payouts credited to account.
func (r *CampaignRepository) AccountBalance(_ context.Context, account domain.Identity) (domain.Amount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[account], nil
}

// RejectPayments marks account as unable to receive payouts. Transfers to
// it fail with domain.ErrPaymentRejected.
func (r *CampaignRepository) RejectPayments(account domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejecting[account] = true
}

type credit struct {
	to     domain.Identity
	amount domain.Amount
}

// stagedLedger collects transfers for the duration of one Update. It is
// only used while the repository mutex is held.
type stagedLedger struct {
	rejecting map[domain.Identity]bool
	credits   []credit
}

func (l *stagedLedger) Transfer(_ context.Context, to domain.Identity, amount domain.Amount) error {
	if l.rejecting[to] {
		return fmt.Errorf("account %s: %w", to, domain.ErrPaymentRejected)
	}
	l.credits = append(l.credits, credit{to: to, amount: amount})
	return nil
}
