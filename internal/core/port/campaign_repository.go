package port

import (
	"context"

	"github.com/google/uuid"

	"crowdfund-escrow/internal/core/domain"
)

// UpdateFunc applies one operation to a private copy of a campaign. Value
// moved through ledger is committed together with the campaign, and neither
// is committed when the function returns an error.
type UpdateFunc func(ctx context.Context, c *domain.Campaign, ledger domain.Ledger) error

// CampaignRepository is the persistence layer for campaigns and the payout
// ledger. It is an outbound port in hexagonal architecture. Implementations
// must serialise updates to the same campaign and apply each UpdateFunc
// atomically.
type CampaignRepository interface {
	// Create stores a newly constructed campaign and appends it to the
	// deployment registry.
	Create(ctx context.Context, c *domain.Campaign) error
	// List returns campaign IDs in deployment order.
	List(ctx context.Context) ([]uuid.UUID, error)
	// Get loads a campaign. It returns domain.ErrNotFound when id is unknown.
	Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	// Update runs fn against the campaign and persists the result.
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) error
	// AccountBalance returns the value paid out to an account so far.
	AccountBalance(ctx context.Context, account domain.Identity) (domain.Amount, error)
}
