package port

import (
	"context"

	"crowdfund-escrow/internal/core/domain"
)

// EventPublisher announces committed campaign changes to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
	Close()
}
