// Package chat orchestrates the thread/message core: start-or-resume,
// message posting, consent updates and the query surface. All writes to one
// thread serialize on a per-thread lock so the admission-time consent read
// and the message commit form one unit against concurrent revocations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"matchchat/pkg/admission"
	"matchchat/pkg/blob"
	"matchchat/pkg/consent"
	"matchchat/pkg/errdefs"
	"matchchat/pkg/logger"
	"matchchat/pkg/models"
	"matchchat/pkg/notify"
	"matchchat/pkg/store"
	"matchchat/pkg/telemetry"
)

// Eligibility is the external match-policy collaborator consulted when a
// recipient restricts incoming chats.
type Eligibility interface {
	// RequiresMutualMatch reports whether user only accepts chats from
	// mutual matches.
	RequiresMutualMatch(ctx context.Context, user int64) (bool, error)
	// IsMutualMatch reports whether a and b are mutually matched.
	IsMutualMatch(ctx context.Context, a, b int64) (bool, error)
}

// AllowAll accepts every chat request; used when no match service is wired.
type AllowAll struct{}

func (AllowAll) RequiresMutualMatch(context.Context, int64) (bool, error) { return false, nil }
func (AllowAll) IsMutualMatch(context.Context, int64, int64) (bool, error) {
	return true, nil
}

// Service is the chat orchestrator.
type Service struct {
	store    *store.Store
	elig     Eligibility
	notifier notify.Notifier
	promoter blob.Promoter
	locks    lockPool
}

// New builds a Service. Nil collaborators fall back to permissive/no-op
// defaults.
func New(st *store.Store, elig Eligibility, notifier notify.Notifier, promoter blob.Promoter) *Service {
	if elig == nil {
		elig = AllowAll{}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if promoter == nil {
		promoter = blob.NopPromoter{}
	}
	return &Service{store: st, elig: elig, notifier: notifier, promoter: promoter}
}

// StartOrResumeChat returns the canonical thread between requester and
// recipient, creating it on first contact. A recipient whose profile
// restricts incoming chats to mutual matches rejects non-matches with
// ErrNotEligible.
func (s *Service) StartOrResumeChat(ctx context.Context, requester, recipient int64, now time.Time) (*models.Thread, error) {
	if requester == recipient {
		return nil, errdefs.ErrSelfChat
	}
	restricted, err := s.elig.RequiresMutualMatch(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("eligibility check failed: %w", err)
	}
	if restricted {
		matched, err := s.elig.IsMutualMatch(ctx, requester, recipient)
		if err != nil {
			return nil, fmt.Errorf("eligibility check failed: %w", err)
		}
		if !matched {
			return nil, errdefs.ErrNotEligible
		}
	}
	return s.store.FindOrCreate(requester, recipient, requester, now.UTC().UnixNano())
}

// PostMessage admits and persists a message, then advances the thread's
// last-message timestamp. The fresh thread read, the admission decision and
// the commit all happen under the thread lock, so a concurrent consent
// revocation either fully precedes or fully follows the write.
func (s *Service) PostMessage(ctx context.Context, threadID string, sender int64, body string, images []string, now time.Time) (*models.Message, error) {
	mu := s.locks.get(threadID)
	mu.Lock()
	t, err := s.store.GetThread(threadID)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	msg, err := admission.Admit(t, sender, body, images, now)
	if err != nil {
		mu.Unlock()
		telemetry.AdmissionRejectsTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	if err := s.store.CommitMessage(msg); err != nil {
		mu.Unlock()
		return nil, err
	}
	mu.Unlock()

	telemetry.RecordMessage(len(msg.Images) > 0)

	// post-commit collaborators; failures are logged, never surfaced
	if len(msg.Images) > 0 {
		if err := s.promoter.Promote(ctx, msg.Images); err != nil {
			logger.Log.Warn("blob_promotion_failed", zap.String("msg_id", msg.ID), zap.Error(err))
		}
	}
	if err := s.notifier.ThreadUpdated(ctx, notify.ThreadUpdate{
		ThreadID:      threadID,
		MessageID:     msg.ID,
		Sender:        sender,
		LastMessageTS: msg.TS,
	}); err != nil {
		logger.Log.Warn("thread_update_notify_failed", zap.String("thread", threadID), zap.Error(err))
	}
	return msg, nil
}

// SetMyConsent sets the caller's own upload-consent flag on the thread.
// Setting the other participant's flag is impossible by construction;
// non-participants fail with ErrForbidden.
func (s *Service) SetMyConsent(ctx context.Context, threadID string, user int64, value bool) (*models.Thread, error) {
	mu := s.locks.get(threadID)
	mu.Lock()
	defer mu.Unlock()

	t, err := s.store.GetThread(threadID)
	if err != nil {
		return nil, err
	}
	role, err := consent.Resolve(t, user)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.SetConsent(threadID, role, value)
	if err != nil {
		return nil, err
	}
	if t.Agrees(role) != value {
		telemetry.RecordConsentChange(value)
	}
	return updated, nil
}

// GetThread loads a thread by id.
func (s *Service) GetThread(ctx context.Context, threadID string) (*models.Thread, error) {
	return s.store.GetThread(threadID)
}

// ListMessages returns the thread's messages ordered by (created_ts, id)
// ascending. It reflects all messages committed before the call returns.
func (s *Service) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	if _, err := s.store.GetThread(threadID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(threadID)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, errdefs.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errdefs.ErrUploadsDisabled):
		return "uploads_disabled"
	case errors.Is(err, errdefs.ErrTooManyAttachments):
		return "too_many_attachments"
	case errors.Is(err, errdefs.ErrEmptyMessage):
		return "empty"
	default:
		return "other"
	}
}
