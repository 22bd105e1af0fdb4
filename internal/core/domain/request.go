package domain

import "time"

// Request is a proposal to pay Value out of the escrow to Recipient.
type Request struct {
	Index         int
	Description   string
	Value         Amount
	Recipient     Identity
	Complete      bool
	ApprovalCount int64
	Approvals     map[Identity]bool
	CreatedAt     time.Time
}

// HasMajority reports whether at least half of approversCount approved.
func (r *Request) HasMajority(approversCount int64) bool {
	return r.ApprovalCount*2 >= approversCount
}

// HasVoted reports whether id approved the request.
func (r *Request) HasVoted(id Identity) bool {
	return r.Approvals[id]
}

func (r Request) clone() Request {
	approvals := make(map[Identity]bool, len(r.Approvals))
	for k, v := range r.Approvals {
		approvals[k] = v
	}
	r.Approvals = approvals
	return r
}
