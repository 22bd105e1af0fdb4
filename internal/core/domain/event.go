package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a committed state change. It doubles as the routing key
// when events are published to a broker.
type EventType string

const (
	EventCampaignCreated  EventType = "campaign.created"
	EventContributed      EventType = "campaign.contributed"
	EventRequestCreated   EventType = "request.created"
	EventRequestApproved  EventType = "request.approved"
	EventRequestFinalized EventType = "request.finalized"
)

// Event is a record of a state change on a campaign.
type Event struct {
	Type         EventType `json:"type"`
	CampaignID   uuid.UUID `json:"campaign_id"`
	Actor        Identity  `json:"actor"`
	Amount       Amount    `json:"amount,omitempty"`
	RequestIndex *int      `json:"request_index,omitempty"`
	Recipient    Identity  `json:"recipient,omitempty"`
	NewApprover  bool      `json:"new_approver,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
