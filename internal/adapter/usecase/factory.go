package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"crowdfund-escrow/internal/core/domain"
)

// CreateCampaign deploys a new campaign with caller as its manager and
// appends it to the registry.
func (u *CampaignUseCase) CreateCampaign(ctx context.Context, minimumContribution domain.Amount, caller domain.Identity) (uuid.UUID, error) {
	c, err := domain.NewCampaign(uuid.New(), minimumContribution, caller, u.now())
	if err != nil {
		return uuid.Nil, err
	}
	if err = u.repo.Create(ctx, c); err != nil {
		return uuid.Nil, err
	}
	u.logger.Info("campaign created",
		slog.String("campaign_id", c.ID.String()),
		slog.String("manager", string(caller)),
		slog.Int64("minimum_contribution", int64(minimumContribution)),
	)
	u.publish(ctx, domain.Event{
		Type:       domain.EventCampaignCreated,
		CampaignID: c.ID,
		Actor:      caller,
		Amount:     minimumContribution,
	})
	return c.ID, nil
}

// DeployedCampaigns returns every campaign ID in deployment order.
func (u *CampaignUseCase) DeployedCampaigns(ctx context.Context) ([]uuid.UUID, error) {
	return u.repo.List(ctx)
}

// DeployedCampaign returns the ID at position index of the registry.
func (u *CampaignUseCase) DeployedCampaign(ctx context.Context, index int) (uuid.UUID, error) {
	ids, err := u.repo.List(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if index < 0 || index >= len(ids) {
		return uuid.Nil, fmt.Errorf("campaign %d: %w", index, domain.ErrNotFound)
	}
	return ids[index], nil
}
