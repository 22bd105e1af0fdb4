package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Campaign is a crowdfunding escrow. Contributors who send at least
// MinimumContribution become approvers; the manager proposes spending
// requests and releases funds once a majority of approvers agree.
//
// A Campaign is not safe for concurrent use. Repositories serialise access
// to a single campaign and hand out private copies.
type Campaign struct {
	ID                  uuid.UUID
	Manager             Identity
	MinimumContribution Amount
	Balance             Amount // escrowed value
	ApproversCount      int64
	Approvers           map[Identity]bool
	Requests            []Request // index is the request identifier
	CreatedAt           time.Time
}

// NewCampaign constructs a campaign owned by manager.
func NewCampaign(id uuid.UUID, minimumContribution Amount, manager Identity, now time.Time) (*Campaign, error) {
	if err := minimumContribution.Validate(); err != nil {
		return nil, err
	}
	if manager == "" {
		return nil, fmt.Errorf("%w: manager is empty", ErrInvalidIdentity)
	}
	return &Campaign{
		ID:                  id,
		Manager:             manager,
		MinimumContribution: minimumContribution,
		Approvers:           make(map[Identity]bool),
		CreatedAt:           now.UTC(),
	}, nil
}

// Contribute adds amount to the escrow on behalf of caller. The first
// qualifying contribution of an identity makes it an approver; newApprover
// reports whether that happened on this call.
func (c *Campaign) Contribute(caller Identity, amount Amount) (newApprover bool, err error) {
	if err = amount.Validate(); err != nil {
		return false, err
	}
	if amount < c.MinimumContribution {
		return false, fmt.Errorf("%w: got %d, minimum is %d", ErrInsufficientContribution, amount, c.MinimumContribution)
	}
	balance, err := c.Balance.add(amount)
	if err != nil {
		return false, err
	}

	c.Balance = balance
	if !c.Approvers[caller] {
		if c.Approvers == nil {
			c.Approvers = make(map[Identity]bool)
		}
		c.Approvers[caller] = true
		c.ApproversCount++
		newApprover = true
	}
	return newApprover, nil
}

// IsApprover reports whether id has ever made a qualifying contribution.
func (c *Campaign) IsApprover(id Identity) bool {
	return c.Approvers[id]
}

// CreateRequest appends a spending request and returns its index. The value
// is not checked against the escrow here; an uncovered request fails at
// finalization.
func (c *Campaign) CreateRequest(caller Identity, description string, value Amount, recipient Identity, now time.Time) (int, error) {
	if caller != c.Manager {
		return 0, ErrUnauthorized
	}
	if err := value.Validate(); err != nil {
		return 0, err
	}
	if recipient == "" {
		return 0, fmt.Errorf("%w: recipient is empty", ErrInvalidIdentity)
	}

	idx := len(c.Requests)
	c.Requests = append(c.Requests, Request{
		Index:       idx,
		Description: description,
		Value:       value,
		Recipient:   recipient,
		Approvals:   make(map[Identity]bool),
		CreatedAt:   now.UTC(),
	})
	return idx, nil
}

// NumberOfRequests returns how many requests have been created.
func (c *Campaign) NumberOfRequests() int {
	return len(c.Requests)
}

// Request returns a copy of the request at index.
func (c *Campaign) Request(index int) (Request, error) {
	r, err := c.request(index)
	if err != nil {
		return Request{}, err
	}
	return r.clone(), nil
}

func (c *Campaign) request(index int) (*Request, error) {
	if index < 0 || index >= len(c.Requests) {
		return nil, fmt.Errorf("request %d: %w", index, ErrNotFound)
	}
	return &c.Requests[index], nil
}

// ApproveRequest records caller's vote for the request at index.
func (c *Campaign) ApproveRequest(index int, caller Identity) error {
	if !c.Approvers[caller] {
		return ErrNotApproved
	}
	r, err := c.request(index)
	if err != nil {
		return err
	}
	if r.Approvals[caller] {
		return ErrAlreadyVoted
	}

	if r.Approvals == nil {
		r.Approvals = make(map[Identity]bool)
	}
	r.Approvals[caller] = true
	r.ApprovalCount++
	return nil
}

// FinalizeRequest releases the request's value to its recipient through
// ledger and marks the request complete. The majority rule is evaluated
// against the approver count at the time of the call.
//
// Nothing on c changes unless the transfer succeeds. ErrTransferFailed marks
// payouts the escrow or the recipient refused; other ledger errors are
// returned as they are.
func (c *Campaign) FinalizeRequest(ctx context.Context, index int, caller Identity, ledger Ledger) error {
	if caller != c.Manager {
		return ErrUnauthorized
	}
	r, err := c.request(index)
	if err != nil {
		return err
	}
	if r.Complete {
		return ErrAlreadyFinalized
	}
	if !r.HasMajority(c.ApproversCount) {
		return fmt.Errorf("%w: %d of %d approvers", ErrInsufficientApprovals, r.ApprovalCount, c.ApproversCount)
	}
	if r.Value > c.Balance {
		return fmt.Errorf("%w: escrow holds %d, request needs %d", ErrTransferFailed, c.Balance, r.Value)
	}
	if err = ledger.Transfer(ctx, r.Recipient, r.Value); err != nil {
		if errors.Is(err, ErrPaymentRejected) {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		return fmt.Errorf("transfer to %s: %w", r.Recipient, err)
	}

	c.Balance -= r.Value
	r.Complete = true
	return nil
}

// Summary is a read-only snapshot of the campaign's headline figures.
type Summary struct {
	ID                  uuid.UUID
	MinimumContribution Amount
	Balance             Amount
	NumberOfRequests    int
	ApproversCount      int64
	Manager             Identity
}

// Summary returns the campaign's headline figures.
func (c *Campaign) Summary() Summary {
	return Summary{
		ID:                  c.ID,
		MinimumContribution: c.MinimumContribution,
		Balance:             c.Balance,
		NumberOfRequests:    len(c.Requests),
		ApproversCount:      c.ApproversCount,
		Manager:             c.Manager,
	}
}

// Clone returns a deep copy of c.
func (c *Campaign) Clone() *Campaign {
	cp := *c
	cp.Approvers = make(map[Identity]bool, len(c.Approvers))
	for k, v := range c.Approvers {
		cp.Approvers[k] = v
	}
	cp.Requests = make([]Request, len(c.Requests))
	for i := range c.Requests {
		cp.Requests[i] = c.Requests[i].clone()
	}
	return &cp
}
