package ports

import (
	"context"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
)

// Messenger is the transport collaborator that delivers and mutates messages.
// Implementations must bound every call with a timeout; a timeout surfaces as
// an error, never a hang.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, kb domain.Keyboard) (domain.MessageRef, error)
	SendMedia(ctx context.Context, chatID int64, item domain.MediaItem, kb domain.Keyboard) (domain.MessageRef, error)
	// EditText rewrites a delivered message's text and controls in place.
	EditText(ctx context.Context, ref domain.MessageRef, text string, kb domain.Keyboard) error
	// EditKeyboard replaces the control rows only; a nil keyboard strips them.
	EditKeyboard(ctx context.Context, ref domain.MessageRef, kb domain.Keyboard) error
	// Username is the bot's public handle, used to build deep links.
	Username(ctx context.Context) (string, error)
}

// Directory answers live membership questions against the platform. Results
// are never cached: privilege is always as-of-now.
type Directory interface {
	// Resolve maps a public @handle to a destination.
	Resolve(ctx context.Context, handle string) (domain.Destination, error)
	// Lookup confirms the bot can see a destination by id.
	Lookup(ctx context.Context, destID int64) (domain.Destination, error)
	// IsPrivileged reports whether the user holds an administrator or owner
	// role in the destination. Errors mean unknown, never privileged.
	IsPrivileged(ctx context.Context, destID, userID int64) (bool, error)
	// PrivilegedMembers lists the destination's current human administrators.
	PrivilegedMembers(ctx context.Context, destID int64) ([]domain.Member, error)
}
