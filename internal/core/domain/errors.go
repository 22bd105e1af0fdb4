package domain

import "errors"

// Precondition failures. Every failing operation leaves the campaign
// untouched and returns one of these, possibly wrapped.
var (
	ErrInsufficientContribution = errors.New("not enough contributed to be an approver")
	ErrUnauthorized             = errors.New("caller is not the manager")
	ErrNotApproved              = errors.New("caller is not an approver")
	ErrAlreadyVoted             = errors.New("approver has already voted")
	ErrAlreadyFinalized         = errors.New("request is already finalized")
	ErrInsufficientApprovals    = errors.New("not enough approvals")
	ErrNotFound                 = errors.New("not found")

	ErrTransferFailed  = errors.New("transfer failed")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidIdentity = errors.New("invalid identity")
)
