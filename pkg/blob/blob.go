// Package blob defines the boundary to the external image store. The chat
// core only ever sees opaque blob references; upload transport, byte-level
// validation and storage location belong to the collaborator behind this
// interface.
package blob

import "context"

// Promoter promotes referenced blobs from temporary to permanent status
// after a message carrying them has been accepted. Implementations live
// outside the core.
type Promoter interface {
	Promote(ctx context.Context, refs []string) error
}

// NopPromoter is used when no blob collaborator is wired.
type NopPromoter struct{}

func (NopPromoter) Promote(context.Context, []string) error { return nil }
