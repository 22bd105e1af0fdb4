package port

import (
	"context"

	"github.com/google/uuid"

	"crowdfund-escrow/internal/core/domain"
)

// CampaignUseCase defines the business operations exposed by the escrow
// service. This interface represents the primary port into the application
// domain. Every mutating method either completes fully or leaves the
// campaign unchanged and returns a domain error.
type CampaignUseCase interface {
	// CreateCampaign deploys a new campaign managed by caller and returns
	// its ID. Anyone may create a campaign.
	CreateCampaign(ctx context.Context, minimumContribution domain.Amount, caller domain.Identity) (uuid.UUID, error)

	// DeployedCampaigns returns every campaign ID in deployment order.
	DeployedCampaigns(ctx context.Context) ([]uuid.UUID, error)

	// DeployedCampaign returns the ID at position index of the registry.
	DeployedCampaign(ctx context.Context, index int) (uuid.UUID, error)

	// Summary returns the headline figures of a campaign.
	Summary(ctx context.Context, id uuid.UUID) (*domain.Summary, error)

	// Contribute escrows amount from caller.
	Contribute(ctx context.Context, id uuid.UUID, caller domain.Identity, amount domain.Amount) error

	// IsApprover reports whether account may vote on requests of the campaign.
	IsApprover(ctx context.Context, id uuid.UUID, account domain.Identity) (bool, error)

	// CreateRequest proposes a payout. Only the manager may call it.
	CreateRequest(ctx context.Context, id uuid.UUID, caller domain.Identity, req CreateRequestReq) (int, error)

	// Requests lists the campaign's requests in creation order.
	Requests(ctx context.Context, id uuid.UUID) ([]domain.Request, error)

	// Request returns the request at index.
	Request(ctx context.Context, id uuid.UUID, index int) (*domain.Request, error)

	// ApproveRequest records caller's vote.
	ApproveRequest(ctx context.Context, id uuid.UUID, index int, caller domain.Identity) error

	// FinalizeRequest pays the request out once a majority approved it.
	FinalizeRequest(ctx context.Context, id uuid.UUID, index int, caller domain.Identity) error

	// AccountBalance returns what an account has received from payouts.
	AccountBalance(ctx context.Context, account domain.Identity) (domain.Amount, error)
}

// CreateRequestReq carries the parameters of a spending request.
type CreateRequestReq struct {
	Description string
	Value       domain.Amount
	Recipient   domain.Identity
}
