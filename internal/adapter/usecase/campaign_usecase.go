package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"crowdfund-escrow/internal/core/domain"
	"crowdfund-escrow/internal/core/port"
)

// CampaignUseCase provides business logic for campaigns and the factory
// registry. It orchestrates the domain state machine, the repository and the
// event publisher to implement the port.CampaignUseCase interface.
type CampaignUseCase struct {
	repo   port.CampaignRepository
	events port.EventPublisher
	logger *slog.Logger

	// now is the clock used for creation timestamps. Tests replace it.
	now func() time.Time
}

// NewCampaignUseCase creates a new usecase over repo. Committed changes are
// announced through events.
func NewCampaignUseCase(repo port.CampaignRepository, events port.EventPublisher, logger *slog.Logger) *CampaignUseCase {
	return &CampaignUseCase{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Summary returns the headline figures of a campaign.
func (u *CampaignUseCase) Summary(ctx context.Context, id uuid.UUID) (*domain.Summary, error) {
	c, err := u.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s := c.Summary()
	return &s, nil
}

// Contribute escrows amount from caller. Contributions below the campaign
// minimum are rejected without touching the escrow.
func (u *CampaignUseCase) Contribute(ctx context.Context, id uuid.UUID, caller domain.Identity, amount domain.Amount) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	var newApprover bool
	err := u.repo.Update(ctx, id, func(_ context.Context, c *domain.Campaign, _ domain.Ledger) error {
		var err error
		newApprover, err = c.Contribute(caller, amount)
		return err
	})
	if err != nil {
		return err
	}
	u.publish(ctx, domain.Event{
		Type:        domain.EventContributed,
		CampaignID:  id,
		Actor:       caller,
		Amount:      amount,
		NewApprover: newApprover,
	})
	return nil
}

// IsApprover reports whether account may vote on the campaign's requests.
func (u *CampaignUseCase) IsApprover(ctx context.Context, id uuid.UUID, account domain.Identity) (bool, error) {
	c, err := u.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return c.IsApprover(account), nil
}

// CreateRequest appends a spending request on behalf of the manager and
// returns its index.
func (u *CampaignUseCase) CreateRequest(ctx context.Context, id uuid.UUID, caller domain.Identity, req port.CreateRequestReq) (int, error) {
	var index int
	err := u.repo.Update(ctx, id, func(_ context.Context, c *domain.Campaign, _ domain.Ledger) error {
		var err error
		index, err = c.CreateRequest(caller, req.Description, req.Value, req.Recipient, u.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	u.publish(ctx, domain.Event{
		Type:         domain.EventRequestCreated,
		CampaignID:   id,
		Actor:        caller,
		Amount:       req.Value,
		RequestIndex: &index,
		Recipient:    req.Recipient,
	})
	return index, nil
}

// Requests lists the campaign's requests in creation order.
func (u *CampaignUseCase) Requests(ctx context.Context, id uuid.UUID) ([]domain.Request, error) {
	c, err := u.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, c.NumberOfRequests())
	for i := 0; i < c.NumberOfRequests(); i++ {
		r, err := c.Request(i)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Request returns the request at index.
func (u *CampaignUseCase) Request(ctx context.Context, id uuid.UUID, index int) (*domain.Request, error) {
	c, err := u.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := c.Request(index)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ApproveRequest records caller's vote on the request at index.
func (u *CampaignUseCase) ApproveRequest(ctx context.Context, id uuid.UUID, index int, caller domain.Identity) error {
	err := u.repo.Update(ctx, id, func(_ context.Context, c *domain.Campaign, _ domain.Ledger) error {
		return c.ApproveRequest(index, caller)
	})
	if err != nil {
		return err
	}
	u.publish(ctx, domain.Event{
		Type:         domain.EventRequestApproved,
		CampaignID:   id,
		Actor:        caller,
		RequestIndex: &index,
	})
	return nil
}

// FinalizeRequest pays the request out to its recipient and marks it
// complete. A failed payout leaves both the escrow and the request as they
// were.
func (u *CampaignUseCase) FinalizeRequest(ctx context.Context, id uuid.UUID, index int, caller domain.Identity) error {
	var paid domain.Request
	err := u.repo.Update(ctx, id, func(ctx context.Context, c *domain.Campaign, ledger domain.Ledger) error {
		if err := c.FinalizeRequest(ctx, index, caller, ledger); err != nil {
			return err
		}
		var err error
		paid, err = c.Request(index)
		return err
	})
	if err != nil {
		return err
	}
	u.logger.Info("request finalized",
		slog.String("campaign_id", id.String()),
		slog.Int("index", index),
		slog.String("recipient", string(paid.Recipient)),
		slog.Int64("value", int64(paid.Value)),
	)
	u.publish(ctx, domain.Event{
		Type:         domain.EventRequestFinalized,
		CampaignID:   id,
		Actor:        caller,
		Amount:       paid.Value,
		RequestIndex: &index,
		Recipient:    paid.Recipient,
	})
	return nil
}

// AccountBalance returns what an account has received from payouts.
func (u *CampaignUseCase) AccountBalance(ctx context.Context, account domain.Identity) (domain.Amount, error) {
	return u.repo.AccountBalance(ctx, account)
}

// publish sends ev after the change has been committed. Delivery problems
// are logged and never surface to the caller.
func (u *CampaignUseCase) publish(ctx context.Context, ev domain.Event) {
	ev.OccurredAt = u.now().UTC()
	if err := u.events.Publish(ctx, ev); err != nil {
		u.logger.Warn("publish event",
			slog.String("type", string(ev.Type)),
			slog.String("campaign_id", ev.CampaignID.String()),
			slog.Any("error", err),
		)
	}
}
