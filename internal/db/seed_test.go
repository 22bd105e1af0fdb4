package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfund-escrow/internal/adapter/memory"
)

func TestSeed(t *testing.T) {
	repo := memory.NewCampaignRepository()
	id, err := Seed(context.Background(), repo)
	require.NoError(t, err)

	ids, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	c, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, SeedManager, c.Manager)
	assert.EqualValues(t, 2, c.ApproversCount)
	assert.EqualValues(t, 600, c.Balance)
	require.Equal(t, 1, c.NumberOfRequests())
	r, err := c.Request(0)
	require.NoError(t, err)
	assert.Equal(t, SeedRecipient, r.Recipient)
	assert.False(t, r.Complete)
}
