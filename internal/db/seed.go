package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crowdfund-escrow/internal/core/domain"
	"crowdfund-escrow/internal/core/port"
)

// Demo identities used by Seed.
const (
	SeedManager   domain.Identity = "0xmanager"
	SeedAlice     domain.Identity = "0xalice"
	SeedBob       domain.Identity = "0xbob"
	SeedRecipient domain.Identity = "0xsupplier"
)

// Seed deploys a demo campaign with two contributors and one open spending
// request. It goes through repo so the same data can be loaded into any
// store. The new campaign's ID is returned.
func Seed(ctx context.Context, repo port.CampaignRepository) (uuid.UUID, error) {
	now := time.Now()
	c, err := domain.NewCampaign(uuid.New(), 100, SeedManager, now)
	if err != nil {
		return uuid.Nil, err
	}
	if err = repo.Create(ctx, c); err != nil {
		return uuid.Nil, err
	}

	err = repo.Update(ctx, c.ID, func(_ context.Context, c *domain.Campaign, _ domain.Ledger) error {
		if _, err := c.Contribute(SeedAlice, 100); err != nil {
			return err
		}
		if _, err := c.Contribute(SeedBob, 500); err != nil {
			return err
		}
		_, err := c.CreateRequest(SeedManager, "Buy batteries", 250, SeedRecipient, now)
		return err
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("seed campaign %s: %w", c.ID, err)
	}
	return c.ID, nil
}
