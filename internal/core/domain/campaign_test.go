package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	manager Identity = "0xmanager"
	alice   Identity = "0xalice"
	bob     Identity = "0xbob"
	carol   Identity = "0xcarol"

	// amounts in finney, so 1000 is one ether
	tenth Amount = 100
	half  Amount = 500
)

// fakeLedger records payouts and can be told to reject them.
type fakeLedger struct {
	paid   map[Identity]Amount
	reject error
}

func (l *fakeLedger) Transfer(_ context.Context, to Identity, amount Amount) error {
	if l.reject != nil {
		return l.reject
	}
	if l.paid == nil {
		l.paid = make(map[Identity]Amount)
	}
	l.paid[to] += amount
	return nil
}

func newCampaign(t *testing.T) *Campaign {
	t.Helper()
	c, err := NewCampaign(uuid.New(), tenth, manager, time.Now())
	require.NoError(t, err)
	return c
}

func TestNewCampaign(t *testing.T) {
	c := newCampaign(t)
	assert.Equal(t, manager, c.Manager)
	assert.Equal(t, tenth, c.MinimumContribution)
	assert.Zero(t, c.ApproversCount)
	assert.Zero(t, c.Balance)
	assert.Zero(t, c.NumberOfRequests())

	_, err := NewCampaign(uuid.New(), -1, manager, time.Now())
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = NewCampaign(uuid.New(), tenth, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestContributeBelowMinimumIsRejected(t *testing.T) {
	c := newCampaign(t)
	_, err := c.Contribute(alice, 5)
	require.ErrorIs(t, err, ErrInsufficientContribution)

	assert.False(t, c.IsApprover(alice))
	assert.Zero(t, c.ApproversCount)
	assert.Zero(t, c.Balance)
}

func TestContributeCountsApprovers(t *testing.T) {
	c := newCampaign(t)

	first, err := c.Contribute(alice, tenth)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, c.IsApprover(alice))
	assert.EqualValues(t, 1, c.ApproversCount)

	_, err = c.Contribute(bob, tenth)
	require.NoError(t, err)
	assert.True(t, c.IsApprover(bob))
	assert.EqualValues(t, 2, c.ApproversCount)

	// repeat contributions add value but not approvers
	again, err := c.Contribute(alice, half)
	require.NoError(t, err)
	assert.False(t, again)
	assert.EqualValues(t, 2, c.ApproversCount)
	assert.Equal(t, tenth+tenth+half, c.Balance)
}

func TestContributeOverflow(t *testing.T) {
	c := newCampaign(t)
	c.Balance = 1<<63 - 1
	_, err := c.Contribute(alice, tenth)
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.False(t, c.IsApprover(alice))
}

func TestCreateRequest(t *testing.T) {
	c := newCampaign(t)

	_, err := c.CreateRequest(alice, "test description", 2000, carol, time.Now())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, c.NumberOfRequests())

	idx, err := c.CreateRequest(manager, "test description", 2000, bob, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = c.CreateRequest(manager, "test description two", 5000, carol, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, c.NumberOfRequests())

	r, err := c.Request(0)
	require.NoError(t, err)
	assert.Equal(t, "test description", r.Description)
	assert.Equal(t, Amount(2000), r.Value)
	assert.Equal(t, bob, r.Recipient)
	assert.False(t, r.Complete)
	assert.Zero(t, r.ApprovalCount)

	r, err = c.Request(1)
	require.NoError(t, err)
	assert.Equal(t, "test description two", r.Description)
	assert.Equal(t, carol, r.Recipient)

	_, err = c.Request(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveRequest(t *testing.T) {
	c := newCampaign(t)
	_, err := c.CreateRequest(manager, "test description", 2000, carol, time.Now())
	require.NoError(t, err)

	require.ErrorIs(t, c.ApproveRequest(0, alice), ErrNotApproved)

	_, err = c.Contribute(alice, tenth)
	require.NoError(t, err)
	require.ErrorIs(t, c.ApproveRequest(7, alice), ErrNotFound)

	require.NoError(t, c.ApproveRequest(0, alice))
	require.ErrorIs(t, c.ApproveRequest(0, alice), ErrAlreadyVoted)

	r, err := c.Request(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, r.ApprovalCount)
	assert.True(t, r.HasVoted(alice))
	assert.False(t, r.Complete)
}

// TestApproveRequestCheckOrder pins the order of precondition checks: a
// non-approver learns it is not approved even for a missing request.
func TestApproveRequestCheckOrder(t *testing.T) {
	c := newCampaign(t)
	require.ErrorIs(t, c.ApproveRequest(3, alice), ErrNotApproved)
}

func fundedCampaign(t *testing.T, value Amount) *Campaign {
	t.Helper()
	c := newCampaign(t)
	_, err := c.CreateRequest(manager, "test description", value, carol, time.Now())
	require.NoError(t, err)
	_, err = c.Contribute(alice, tenth)
	require.NoError(t, err)
	_, err = c.Contribute(bob, half)
	require.NoError(t, err)
	return c
}

func TestFinalizeRequestPaysRecipient(t *testing.T) {
	c := fundedCampaign(t, tenth+half)
	require.NoError(t, c.ApproveRequest(0, alice))
	require.NoError(t, c.ApproveRequest(0, bob))

	ledger := &fakeLedger{}
	require.ErrorIs(t, c.FinalizeRequest(context.Background(), 0, alice, ledger), ErrUnauthorized)

	require.NoError(t, c.FinalizeRequest(context.Background(), 0, manager, ledger))
	r, err := c.Request(0)
	require.NoError(t, err)
	assert.True(t, r.Complete)
	assert.Equal(t, tenth+half, ledger.paid[carol])
	assert.Zero(t, c.Balance)

	err = c.FinalizeRequest(context.Background(), 0, manager, ledger)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.Equal(t, tenth+half, ledger.paid[carol])
}

func TestFinalizeRequestNeedsMajority(t *testing.T) {
	c := fundedCampaign(t, tenth)
	_, err := c.Contribute(carol, tenth)
	require.NoError(t, err)
	require.NoError(t, c.ApproveRequest(0, alice))

	// 1 of 3
	ledger := &fakeLedger{}
	err = c.FinalizeRequest(context.Background(), 0, manager, ledger)
	require.ErrorIs(t, err, ErrInsufficientApprovals)
	r, _ := c.Request(0)
	assert.False(t, r.Complete)
	assert.Empty(t, ledger.paid)

	// 2 of 3
	require.NoError(t, c.ApproveRequest(0, bob))
	require.NoError(t, c.FinalizeRequest(context.Background(), 0, manager, ledger))
}

func TestFinalizeRequestUsesCurrentApproverCount(t *testing.T) {
	c := fundedCampaign(t, tenth)
	require.NoError(t, c.ApproveRequest(0, alice))
	// 1 of 2 is exactly half

	for _, late := range []Identity{carol, "0xdave"} {
		_, err := c.Contribute(late, tenth)
		require.NoError(t, err)
	}
	// 1 of 4 after late joiners
	err := c.FinalizeRequest(context.Background(), 0, manager, &fakeLedger{})
	require.ErrorIs(t, err, ErrInsufficientApprovals)
}

func TestFinalizeRequestUncoveredValue(t *testing.T) {
	c := fundedCampaign(t, 2000)
	require.NoError(t, c.ApproveRequest(0, alice))
	require.NoError(t, c.ApproveRequest(0, bob))

	ledger := &fakeLedger{}
	err := c.FinalizeRequest(context.Background(), 0, manager, ledger)
	require.ErrorIs(t, err, ErrTransferFailed)

	r, _ := c.Request(0)
	assert.False(t, r.Complete)
	assert.Equal(t, tenth+half, c.Balance)
	assert.Empty(t, ledger.paid)
}

func TestFinalizeRequestRejectedTransfer(t *testing.T) {
	c := fundedCampaign(t, tenth)
	require.NoError(t, c.ApproveRequest(0, alice))

	ledger := &fakeLedger{reject: ErrPaymentRejected}
	err := c.FinalizeRequest(context.Background(), 0, manager, ledger)
	require.ErrorIs(t, err, ErrTransferFailed)
	require.True(t, errors.Is(err, ErrPaymentRejected))

	r, _ := c.Request(0)
	assert.False(t, r.Complete)
	assert.Equal(t, tenth+half, c.Balance)
}

func TestFinalizeRequestLedgerFailure(t *testing.T) {
	c := fundedCampaign(t, tenth)
	require.NoError(t, c.ApproveRequest(0, alice))

	dbErr := errors.New("could not serialize access due to concurrent update (SQLSTATE 40001)")
	err := c.FinalizeRequest(context.Background(), 0, manager, &fakeLedger{reject: dbErr})
	require.ErrorIs(t, err, dbErr)
	assert.False(t, errors.Is(err, ErrTransferFailed))

	r, _ := c.Request(0)
	assert.False(t, r.Complete)
	assert.Equal(t, tenth+half, c.Balance)
}

func TestCloneIsDeep(t *testing.T) {
	c := fundedCampaign(t, tenth)
	cp := c.Clone()

	_, err := cp.Contribute(carol, tenth)
	require.NoError(t, err)
	require.NoError(t, cp.ApproveRequest(0, alice))

	assert.False(t, c.IsApprover(carol))
	r, _ := c.Request(0)
	assert.Zero(t, r.ApprovalCount)
	assert.False(t, r.HasVoted(alice))
}

func TestSummary(t *testing.T) {
	c := fundedCampaign(t, tenth)
	s := c.Summary()
	assert.Equal(t, c.ID, s.ID)
	assert.Equal(t, manager, s.Manager)
	assert.Equal(t, tenth, s.MinimumContribution)
	assert.Equal(t, tenth+half, s.Balance)
	assert.Equal(t, 1, s.NumberOfRequests)
	assert.EqualValues(t, 2, s.ApproversCount)
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("  0xAbC ")
	require.NoError(t, err)
	assert.Equal(t, Identity("0xabc"), id)

	for _, raw := range []string{"", "   ", "a b", "a/b"} {
		_, err = ParseIdentity(raw)
		assert.ErrorIs(t, err, ErrInvalidIdentity, raw)
	}
}
