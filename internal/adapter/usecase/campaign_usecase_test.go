package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"crowdfund-escrow/internal/core/domain"
	"crowdfund-escrow/internal/core/port"
	"crowdfund-escrow/internal/core/port/mocks"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type payouts struct {
	mu   sync.Mutex
	paid map[domain.Identity]domain.Amount
}

func (p *payouts) Transfer(_ context.Context, to domain.Identity, amount domain.Amount) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paid == nil {
		p.paid = make(map[domain.Identity]domain.Amount)
	}
	p.paid[to] += amount
	return nil
}

// applyTo makes repo.Update run the update function against c, serialised
// by mu, the way a real repository would.
func applyTo(mu *sync.Mutex, c *domain.Campaign, ledger domain.Ledger) func(context.Context, uuid.UUID, port.UpdateFunc) error {
	return func(ctx context.Context, _ uuid.UUID, fn port.UpdateFunc) error {
		mu.Lock()
		defer mu.Unlock()
		cp := c.Clone()
		if err := fn(ctx, cp, ledger); err != nil {
			return err
		}
		*c = *cp
		return nil
	}
}

func newTestCampaign(t *testing.T) *domain.Campaign {
	t.Helper()
	c, err := domain.NewCampaign(uuid.New(), 100, "manager", time.Now())
	if err != nil {
		t.Fatalf("NewCampaign: %v", err)
	}
	return c
}

// TestCreateCampaign ensures the caller becomes manager and the deployment
// is announced.
func TestCreateCampaign(t *testing.T) {
	repo := mocks.NewMockCampaignRepository(t)
	events := mocks.NewMockEventPublisher(t)

	var stored *domain.Campaign
	repo.EXPECT().
		Create(mock.Anything, mock.AnythingOfType("*domain.Campaign")).
		Run(func(_ context.Context, c *domain.Campaign) { stored = c }).
		Return(nil)
	events.EXPECT().
		Publish(mock.Anything, mock.MatchedBy(func(ev domain.Event) bool {
			return ev.Type == domain.EventCampaignCreated && ev.Actor == "alice" && ev.Amount == 100
		})).
		Return(nil)

	svc := NewCampaignUseCase(repo, events, discard)
	id, err := svc.CreateCampaign(context.Background(), 100, "alice")
	if err != nil {
		t.Fatalf("CreateCampaign error: %v", err)
	}
	if stored == nil || stored.ID != id {
		t.Fatalf("stored campaign does not match returned id %s", id)
	}
	if stored.Manager != "alice" || stored.MinimumContribution != 100 {
		t.Fatalf("unexpected campaign: manager=%s minimum=%d", stored.Manager, stored.MinimumContribution)
	}
}

func TestCreateCampaignRejectsNegativeMinimum(t *testing.T) {
	repo := mocks.NewMockCampaignRepository(t)
	events := mocks.NewMockEventPublisher(t)

	svc := NewCampaignUseCase(repo, events, discard)
	if _, err := svc.CreateCampaign(context.Background(), -1, "alice"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDeployedCampaign(t *testing.T) {
	repo := mocks.NewMockCampaignRepository(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	repo.EXPECT().List(mock.Anything).Return(ids, nil)

	svc := NewCampaignUseCase(repo, mocks.NewMockEventPublisher(t), discard)

	got, err := svc.DeployedCampaign(context.Background(), 1)
	if err != nil || got != ids[1] {
		t.Fatalf("DeployedCampaign(1) = %s, %v", got, err)
	}
	if _, err = svc.DeployedCampaign(context.Background(), 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContributePublishesNewApprover(t *testing.T) {
	repo := mocks.NewMockCampaignRepository(t)
	events := mocks.NewMockEventPublisher(t)
	c := newTestCampaign(t)
	var mu sync.Mutex

	repo.EXPECT().Update(mock.Anything, c.ID, mock.Anything).RunAndReturn(applyTo(&mu, c, &payouts{}))
	events.EXPECT().
		Publish(mock.Anything, mock.MatchedBy(func(ev domain.Event) bool {
			return ev.Type == domain.EventContributed && ev.NewApprover && ev.Amount == 150
		})).
		Return(nil).
		Once()

	svc := NewCampaignUseCase(repo, events, discard)
	if err := svc.Contribute(context.Background(), c.ID, "bob", 150); err != nil {
		t.Fatalf("Contribute error: %v", err)
	}
	if !c.IsApprover("bob") || c.ApproversCount != 1 || c.Balance != 150 {
		t.Fatalf("unexpected state: approvers=%d balance=%d", c.ApproversCount, c.Balance)
	}
}

// TestContributeBelowMinimum ensures a rejected contribution changes nothing
// and is not announced.
func TestContributeBelowMinimum(t *testing.T) {
	repo := mocks.NewMockCampaignRepository(t)
	events := mocks.NewMockEventPublisher(t)
	c := newTestCampaign(t)
	var mu sync.Mutex

	repo.EXPECT().Update(mock.Anything, c.ID, mock.Anything).RunAndReturn(applyTo(&mu, c, &payouts{}))

	svc := NewCampaignUseCase(repo, events, discard)
	err := svc.Contribute(context.Background(), c.ID, "bob", 99)
	if !errors.Is(err, domain.ErrInsufficientContribution) {
		t.Fatalf("expected ErrInsufficientContribution, got %v", err)
	}
	if c.Balance != 0 || c.ApproversCount != 0 {
		t.Fatalf("state changed: approvers=%d balance=%d", c.ApproversCount, c.Balance)
	}
}

// TestPublishFailureIsSwallowed ensures a broker outage does not fail an
// operation that has already been committed.
func TestPublishFailureIsSwallowed(t *testing.T) {
	repo := mocks.NewMockCampaignRepository(t)
	events := mocks.NewMockEventPublisher(t)
	c := newTestCampaign(t)
	var mu sync.Mutex

	repo.EXPECT().Update(mock.Anything, c.ID, mock.Anything).RunAndReturn(applyTo(&mu, c, &payouts{}))
	events.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := NewCampaignUseCase(repo, events, discard)
	idx, err := svc.CreateRequest(context.Background(), c.ID, "manager", port.CreateRequestReq{
		Description: "tools",
		Value:       10,
		Recipient:   "shop",
	})
	if err != nil {
		t.Fatalf("CreateRequest error: %v", err)
	}
	if idx != 0 || c.NumberOfRequests() != 1 {
		t.Fatalf("request not stored: idx=%d n=%d", idx, c.NumberOfRequests())
	}
}

func TestFinalizeRequestPublishesPayout(t *testing.T) {
	repo := mocks.NewMockCampaignRepository(t)
	events := mocks.NewMockEventPublisher(t)
	c := newTestCampaign(t)
	if _, err := c.Contribute("bob", 300); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateRequest("manager", "tools", 250, "shop", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := c.ApproveRequest(0, "bob"); err != nil {
		t.Fatal(err)
	}

	ledger := &payouts{}
	var mu sync.Mutex
	repo.EXPECT().Update(mock.Anything, c.ID, mock.Anything).RunAndReturn(applyTo(&mu, c, ledger))
	events.EXPECT().
		Publish(mock.Anything, mock.MatchedBy(func(ev domain.Event) bool {
			return ev.Type == domain.EventRequestFinalized &&
				ev.Recipient == "shop" && ev.Amount == 250 &&
				ev.RequestIndex != nil && *ev.RequestIndex == 0
		})).
		Return(nil)

	svc := NewCampaignUseCase(repo, events, discard)
	if err := svc.FinalizeRequest(context.Background(), c.ID, 0, "manager"); err != nil {
		t.Fatalf("FinalizeRequest error: %v", err)
	}
	if ledger.paid["shop"] != 250 || c.Balance != 50 {
		t.Fatalf("unexpected payout: paid=%d balance=%d", ledger.paid["shop"], c.Balance)
	}
}

// TestConcurrentFinalize ensures a request racing with itself is paid out
// exactly once.
func TestConcurrentFinalize(t *testing.T) {
	repo := mocks.NewMockCampaignRepository(t)
	events := mocks.NewMockEventPublisher(t)
	c := newTestCampaign(t)
	if _, err := c.Contribute("bob", 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateRequest("manager", "tools", 100, "shop", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := c.ApproveRequest(0, "bob"); err != nil {
		t.Fatal(err)
	}

	ledger := &payouts{}
	var mu sync.Mutex
	repo.EXPECT().Update(mock.Anything, c.ID, mock.Anything).RunAndReturn(applyTo(&mu, c, ledger))
	events.EXPECT().Publish(mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewCampaignUseCase(repo, events, discard)
	// applyTo replaces *c under mu, so goroutines must not read c
	id := c.ID

	var (
		wg        sync.WaitGroup
		errMu     sync.Mutex
		finalized int
		already   int
	)
	count := 10
	wg.Add(count)
	for i := 0; i < count; i++ {
		go func() {
			defer wg.Done()
			err := svc.FinalizeRequest(context.Background(), id, 0, "manager")
			errMu.Lock()
			defer errMu.Unlock()
			switch {
			case err == nil:
				finalized++
			case errors.Is(err, domain.ErrAlreadyFinalized):
				already++
			}
		}()
	}
	wg.Wait()

	if finalized != 1 || already != count-1 {
		t.Fatalf("finalized=%d already=%d, want 1 and %d", finalized, already, count-1)
	}
	if ledger.paid["shop"] != 100 || c.Balance != 900 {
		t.Fatalf("unexpected payout: paid=%d balance=%d", ledger.paid["shop"], c.Balance)
	}
}
