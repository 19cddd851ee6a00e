// Package notify carries the "thread updated" signal emitted after a
// successful message post so an external collaborator can push a UI refresh.
// The transport is pluggable; delivery is best-effort and never blocks or
// fails a post.
package notify

import "context"

// ThreadUpdate describes a thread that just accepted a message.
type ThreadUpdate struct {
	ThreadID      string `json:"thread_id"`
	MessageID     string `json:"message_id"`
	Sender        int64  `json:"sender"`
	LastMessageTS int64  `json:"last_message_ts"`
}

// Notifier publishes thread updates.
type Notifier interface {
	ThreadUpdated(ctx context.Context, ev ThreadUpdate) error
	Close()
}

// Nop is the default notifier when no transport is configured.
type Nop struct{}

func (Nop) ThreadUpdated(context.Context, ThreadUpdate) error { return nil }
func (Nop) Close()                                            {}
