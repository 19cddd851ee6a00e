// Package admission decides whether a candidate message may be persisted.
// Admit is a pure function: it constructs the Message but performs no
// storage, so the caller controls the transaction boundary around it.
package admission

import (
	"strings"
	"time"

	"matchchat/pkg/errdefs"
	"matchchat/pkg/models"
	"matchchat/pkg/utils"
)

// MaxAttachments is the per-message image limit.
const MaxAttachments = 3

// Admit validates a candidate message against the thread's current consent
// state and structural constraints, returning the constructed Message on
// success.
//
// The checks run in a fixed order so a user who attempted an upload against
// policy sees the attachment error rather than the less specific emptiness
// error. The uploads-enabled read happens here, at admission time, never
// from an earlier cached check: the caller must pass a freshly loaded
// thread from within its per-thread critical section.
func Admit(t *models.Thread, sender int64, body string, images []string, now time.Time) (*models.Message, error) {
	if !t.IsParticipant(sender) {
		return nil, errdefs.ErrForbidden
	}
	if len(images) > 0 && !t.UploadsEnabled() {
		return nil, errdefs.ErrUploadsDisabled
	}
	if len(images) > MaxAttachments {
		return nil, errdefs.ErrTooManyAttachments
	}
	if strings.TrimSpace(body) == "" && len(images) == 0 {
		return nil, errdefs.ErrEmptyMessage
	}
	return &models.Message{
		ID:     utils.GenMessageID(),
		Thread: t.ID,
		Sender: sender,
		Body:   body,
		Images: append([]string(nil), images...),
		TS:     now.UTC().UnixNano(),
	}, nil
}
