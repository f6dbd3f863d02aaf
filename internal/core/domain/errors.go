package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every flow. Authorization and ledger-state errors
// are always surfaced to the acting user; ErrUnavailable degrades to "not
// privileged" on authorization paths and "log and continue" on fan-out.
var (
	ErrNotPrivileged    = errors.New("not privileged in destination")
	ErrNoBinding        = errors.New("no destination bound")
	ErrNoDestination    = errors.New("destination no longer bound")
	ErrEmptyDraft       = errors.New("draft has no text or media")
	ErrEmptyNote        = errors.New("note has no text or media")
	ErrAlreadySubmitted = errors.New("note already submitted for this post")
	ErrAlreadyVoted     = errors.New("already voted on this post")
	ErrNoActiveReply    = errors.New("no reply in progress")
	ErrInvalidToken     = errors.New("invalid entry token")
	ErrInvalidReference = errors.New("forwarded object is not a channel or group")
	ErrUnavailable      = errors.New("collaborator unavailable")
	ErrDeliveryFailed   = errors.New("delivery failed")
)

// AlreadyHandledError reports that another administrator replied first.
type AlreadyHandledError struct {
	By string
}

func (e *AlreadyHandledError) Error() string {
	return fmt.Sprintf("already handled by %s", e.By)
}
