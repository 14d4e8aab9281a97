package notify

import (
	"context"
	"errors"
)

// ErrCannotEdit reports that the underlying message cannot be edited in
// place (wrong message type, too old, or not authored by the bot). Callers
// branch on it to fall back to post-and-supersede.
var ErrCannotEdit = errors.New("message cannot be edited in place")

// Message is composed content ready for the chat transport.
// When Thumbnail is set the transport sends a photo with Text as caption,
// otherwise a plain text message.
type Message struct {
	Text           string
	Thumbnail      string
	DisablePreview bool
}

// Ref identifies a delivered message so it can later be edited, pinned,
// unpinned or deleted.
type Ref struct {
	ChatID    int64
	MessageID int
}

func (r Ref) IsZero() bool { return r.MessageID == 0 }

// Sink executes decisions against the chat transport. Every call is
// individually best-effort from the engine's point of view: failures are
// logged by the caller and retried on a later cycle, never fatal.
type Sink interface {
	Post(ctx context.Context, msg Message) (Ref, error)
	// Edit rewrites a delivered message in place. Returns ErrCannotEdit
	// (possibly wrapped) when the message type does not support it.
	Edit(ctx context.Context, ref Ref, msg Message) error
	Pin(ctx context.Context, ref Ref) error
	Unpin(ctx context.Context, ref Ref) error
	Delete(ctx context.Context, ref Ref) error
}
