package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchchat/pkg/errdefs"
	"matchchat/pkg/notify"
	"matchchat/pkg/store"
)

type fakeElig struct {
	restricted map[int64]bool
	matched    bool
}

func (f *fakeElig) RequiresMutualMatch(_ context.Context, user int64) (bool, error) {
	return f.restricted[user], nil
}

func (f *fakeElig) IsMutualMatch(context.Context, int64, int64) (bool, error) {
	return f.matched, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []notify.ThreadUpdate
}

func (r *recordingNotifier) ThreadUpdated(_ context.Context, u notify.ThreadUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *recordingNotifier) Close() {}

func newService(t *testing.T, elig Eligibility) (*Service, *recordingNotifier) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	n := &recordingNotifier{}
	return New(st, elig, n, nil), n
}

func TestChatLifecycle(t *testing.T) {
	svc, n := newService(t, nil)
	ctx := context.Background()
	base := time.Now()

	// 7 starts a chat with 3: one canonical thread, uploads off
	th, err := svc.StartOrResumeChat(ctx, 7, 3, base)
	require.NoError(t, err)
	require.Equal(t, int64(3), th.Low)
	require.Equal(t, int64(7), th.High)
	require.Equal(t, int64(7), th.Initiator)
	require.False(t, th.UploadsEnabled())

	// a text message is always admissible
	msg, err := svc.PostMessage(ctx, th.ID, 3, "hi", nil, base.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, "hi", msg.Body)

	// images are rejected until both parties consent
	_, err = svc.PostMessage(ctx, th.ID, 3, "", []string{"blob-1"}, base.Add(2*time.Second))
	require.ErrorIs(t, err, errdefs.ErrUploadsDisabled)

	_, err = svc.SetMyConsent(ctx, th.ID, 3, true)
	require.NoError(t, err)
	updated, err := svc.SetMyConsent(ctx, th.ID, 7, true)
	require.NoError(t, err)
	require.True(t, updated.UploadsEnabled())

	msg, err = svc.PostMessage(ctx, th.ID, 3, "", []string{"blob-1", "blob-2"}, base.Add(3*time.Second))
	require.NoError(t, err)
	require.Len(t, msg.Images, 2)

	// one party revoking flips uploads off for both immediately
	updated, err = svc.SetMyConsent(ctx, th.ID, 7, false)
	require.NoError(t, err)
	require.False(t, updated.UploadsEnabled())

	_, err = svc.PostMessage(ctx, th.ID, 3, "", []string{"blob-3"}, base.Add(4*time.Second))
	require.ErrorIs(t, err, errdefs.ErrUploadsDisabled)

	// earlier image messages stay visible after the revocation
	msgs, err := svc.ListMessages(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, []string{"blob-1", "blob-2"}, msgs[1].Images)

	// the restart resumes, never duplicates
	again, err := svc.StartOrResumeChat(ctx, 3, 7, base.Add(5*time.Second))
	require.NoError(t, err)
	require.Equal(t, th.ID, again.ID)

	got, err := svc.GetThread(ctx, th.ID)
	require.NoError(t, err)
	require.Equal(t, base.Add(3*time.Second).UTC().UnixNano(), got.LastMessageTS)

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.updates, 2)
	require.Equal(t, th.ID, n.updates[0].ThreadID)
	require.Equal(t, int64(3), n.updates[0].Sender)
}

func TestStartChatWithSelf(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.StartOrResumeChat(context.Background(), 5, 5, time.Now())
	require.ErrorIs(t, err, errdefs.ErrSelfChat)
}

func TestStartChatEligibility(t *testing.T) {
	elig := &fakeElig{restricted: map[int64]bool{3: true}, matched: false}
	svc, _ := newService(t, elig)
	ctx := context.Background()

	_, err := svc.StartOrResumeChat(ctx, 7, 3, time.Now())
	require.ErrorIs(t, err, errdefs.ErrNotEligible)

	// the requester's own restriction does not block an outgoing chat
	th, err := svc.StartOrResumeChat(ctx, 3, 9, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(3), th.Low)

	elig.matched = true
	th, err = svc.StartOrResumeChat(ctx, 7, 3, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(3), th.Low)
	require.Equal(t, int64(7), th.High)
}

func TestPostToUnknownThread(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.PostMessage(context.Background(), "missing", 3, "hi", nil, time.Now())
	require.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestPostMessageNonParticipant(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	th, err := svc.StartOrResumeChat(ctx, 7, 3, time.Now())
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, th.ID, 42, "hi", nil, time.Now())
	require.ErrorIs(t, err, errdefs.ErrForbidden)
}

func TestSetMyConsentNonParticipant(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	th, err := svc.StartOrResumeChat(ctx, 7, 3, time.Now())
	require.NoError(t, err)

	_, err = svc.SetMyConsent(ctx, th.ID, 42, true)
	require.ErrorIs(t, err, errdefs.ErrForbidden)
}

func TestSetMyConsentIdempotent(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	th, err := svc.StartOrResumeChat(ctx, 7, 3, time.Now())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		updated, err := svc.SetMyConsent(ctx, th.ID, 3, true)
		require.NoError(t, err)
		require.True(t, updated.LowAgreesToUploads)
		require.False(t, updated.UploadsEnabled())
	}
}

func TestRevocationRacesImagePosts(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	th, err := svc.StartOrResumeChat(ctx, 7, 3, time.Now())
	require.NoError(t, err)
	_, err = svc.SetMyConsent(ctx, th.ID, 3, true)
	require.NoError(t, err)
	_, err = svc.SetMyConsent(ctx, th.ID, 7, true)
	require.NoError(t, err)

	// race image posts against a revocation on the same thread
	const n = 10
	errs := make([]error, n)
	var revokedAt int64
	var revokeErr error
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PostMessage(ctx, th.ID, 3, "", []string{"blob"}, time.Now())
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, revokeErr = svc.SetMyConsent(ctx, th.ID, 7, false)
		atomic.StoreInt64(&revokedAt, time.Now().UnixNano())
	}()
	wg.Wait()
	require.NoError(t, revokeErr)

	// each post either committed or saw the closed gate; nothing else
	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		require.True(t, errors.Is(err, errdefs.ErrUploadsDisabled), "unexpected error: %v", err)
	}

	// every stored image message was admitted before the revoke committed
	msgs, err := svc.ListMessages(ctx, th.ID)
	require.NoError(t, err)
	stored := 0
	for _, m := range msgs {
		if len(m.Images) == 0 {
			continue
		}
		stored++
		require.Less(t, m.TS, atomic.LoadInt64(&revokedAt))
	}
	require.Equal(t, accepted, stored)

	// once the revoke has settled no image post can land
	_, err = svc.PostMessage(ctx, th.ID, 3, "", []string{"blob"}, time.Now())
	require.ErrorIs(t, err, errdefs.ErrUploadsDisabled)
}

func TestConcurrentPosts(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	base := time.Now()
	th, err := svc.StartOrResumeChat(ctx, 7, 3, base)
	require.NoError(t, err)

	const n = 20
	postErrs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := int64(3)
			if i%2 == 1 {
				sender = 7
			}
			_, postErrs[i] = svc.PostMessage(ctx, th.ID, sender, "msg", nil, base.Add(time.Duration(i)*time.Millisecond))
		}(i)
	}
	wg.Wait()
	for _, err := range postErrs {
		require.NoError(t, err)
	}

	msgs, err := svc.ListMessages(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i := 1; i < len(msgs); i++ {
		require.LessOrEqual(t, msgs[i-1].TS, msgs[i].TS)
	}

	got, err := svc.GetThread(ctx, th.ID)
	require.NoError(t, err)
	require.Equal(t, msgs[len(msgs)-1].TS, got.LastMessageTS)
}
