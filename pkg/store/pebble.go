// Package store persists threads and messages in a Pebble database.
//
// Key schema:
//
//	thread:<id>                         -> thread JSON
//	threadpair:<low>:<high>             -> thread id (canonical-pair uniqueness index)
//	thread:<id>:msg:<ts%020d>-<msgid>   -> message JSON
//
// Message keys embed the zero-padded acceptance timestamp followed by the
// message id, so a prefix scan yields messages ordered by (created_ts, id)
// with no sort step.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cockroachdb/pebble"

	"matchchat/pkg/errdefs"
	"matchchat/pkg/ident"
	"matchchat/pkg/logger"
	"matchchat/pkg/models"
	"matchchat/pkg/telemetry"
	"matchchat/pkg/utils"
)

// Store wraps a Pebble handle with the thread/message operations the chat
// core needs. All methods are safe for concurrent use; pair creation is
// serialized internally so the at-most-one-thread-per-pair invariant holds
// even under racing FindOrCreate calls.
type Store struct {
	db   *pebble.DB
	path string

	// createMu serializes thread creation against the pair index.
	createMu sync.Mutex
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*Store, error) {
	logger.Log.Info("opening_pebble_db", zap.String("path", path))
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Log.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	logger.Log.Info("pebble_opened", zap.String("path", path))
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Log.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool {
	return s != nil && s.db != nil
}

func threadKey(id string) []byte {
	return []byte("thread:" + id)
}

func pairKey(low, high int64) []byte {
	return []byte(fmt.Sprintf("threadpair:%d:%d", low, high))
}

func messageKey(threadID string, ts int64, msgID string) []byte {
	return []byte(fmt.Sprintf("thread:%s:msg:%020d-%s", threadID, ts, msgID))
}

func messagePrefix(threadID string) []byte {
	return []byte("thread:" + threadID + ":msg:")
}

// FindByPair looks up the thread for a canonical ordered pair. Callers must
// not bypass ident.CanonicalPair when producing (low, high).
func (s *Store) FindByPair(low, high int64) (*models.Thread, error) {
	v, closer, err := s.db.Get(pairKey(low, high))
	if err == pebble.ErrNotFound {
		return nil, errdefs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	id := string(v)
	_ = closer.Close()
	return s.GetThread(id)
}

// CreateThread creates the thread for a canonical pair with both consent
// flags false and last_message_ts initialized to now. It fails with
// ErrConflict if a thread for the pair already exists.
func (s *Store) CreateThread(low, high, initiator int64, nowNS int64) (*models.Thread, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	if _, closer, err := s.db.Get(pairKey(low, high)); err == nil {
		_ = closer.Close()
		return nil, errdefs.ErrConflict
	} else if err != pebble.ErrNotFound {
		return nil, err
	}

	t := &models.Thread{
		ID:            utils.GenThreadID(),
		Low:           low,
		High:          high,
		Initiator:     initiator,
		CreatedTS:     nowNS,
		LastMessageTS: nowNS,
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal thread: %w", err)
	}

	// thread record and pair index commit atomically
	b := s.db.NewBatch()
	_ = b.Set(threadKey(t.ID), data, nil)
	_ = b.Set(pairKey(low, high), []byte(t.ID), nil)
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Log.Error("create_thread_failed", zap.String("thread", t.ID), zap.Error(err))
		return nil, err
	}
	telemetry.ThreadsCreatedTotal.Inc()
	logger.Log.Info("thread_created",
		zap.String("thread", t.ID),
		zap.Int64("low", low),
		zap.Int64("high", high),
		zap.Int64("initiator", initiator),
	)
	return t, nil
}

// FindOrCreate canonicalizes the pair, returns the existing thread if one
// exists and creates it otherwise. A create that loses a race re-reads and
// returns the winner's thread, so ErrConflict never escapes under normal
// load and all concurrent callers observe the same thread.
func (s *Store) FindOrCreate(userA, userB, initiator int64, nowNS int64) (*models.Thread, error) {
	low, high, err := ident.CanonicalPair(userA, userB)
	if err != nil {
		return nil, err
	}
	t, err := s.FindByPair(low, high)
	if err == nil {
		return t, nil
	}
	if err != errdefs.ErrNotFound {
		return nil, err
	}
	t, err = s.CreateThread(low, high, initiator, nowNS)
	if err == errdefs.ErrConflict {
		// the uniqueness index guarantees the re-read succeeds
		return s.FindByPair(low, high)
	}
	return t, err
}

// GetThread loads a thread by id.
func (s *Store) GetThread(id string) (*models.Thread, error) {
	v, closer, err := s.db.Get(threadKey(id))
	if err == pebble.ErrNotFound {
		return nil, errdefs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	var t models.Thread
	if err := json.Unmarshal(v, &t); err != nil {
		return nil, fmt.Errorf("invalid thread metadata: %w", err)
	}
	return &t, nil
}

// saveThread overwrites a thread record.
func (s *Store) saveThread(t *models.Thread) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}
	return s.db.Set(threadKey(t.ID), data, pebble.Sync)
}

// SetConsent updates one role's upload-consent flag and returns the updated
// thread. Callers that must serialize against concurrent posts (the chat
// service) hold the per-thread lock around this call.
func (s *Store) SetConsent(threadID string, role models.Role, value bool) (*models.Thread, error) {
	t, err := s.GetThread(threadID)
	if err != nil {
		return nil, err
	}
	if t.Agrees(role) == value {
		// idempotent: no write needed
		return t, nil
	}
	t.SetAgrees(role, value)
	if err := s.saveThread(t); err != nil {
		logger.Log.Error("set_consent_failed", zap.String("thread", threadID), zap.Error(err))
		return nil, err
	}
	logger.Log.Info("consent_updated",
		zap.String("thread", threadID),
		zap.String("role", string(role)),
		zap.Bool("agrees", value),
		zap.Bool("uploads_enabled", t.UploadsEnabled()),
	)
	return t, nil
}

// TouchLastMessage advances last_message_ts. Monotonic: a timestamp earlier
// than the current value is a no-op, which defends against out-of-order
// message commits.
func (s *Store) TouchLastMessage(threadID string, nowNS int64) error {
	t, err := s.GetThread(threadID)
	if err != nil {
		return err
	}
	if nowNS <= t.LastMessageTS {
		return nil
	}
	t.LastMessageTS = nowNS
	return s.saveThread(t)
}

// AppendMessage persists a message under its thread, assigning an id when
// the message carries none. It fails with ErrConflict on an id collision,
// which should not occur with generated ids.
func (s *Store) AppendMessage(m *models.Message) error {
	if m.ID == "" {
		m.ID = utils.GenMessageID()
	}
	key := messageKey(m.Thread, m.TS, m.ID)
	if _, closer, err := s.db.Get(key); err == nil {
		_ = closer.Close()
		return errdefs.ErrConflict
	} else if err != pebble.ErrNotFound {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		logger.Log.Error("append_message_failed", zap.String("thread", m.Thread), zap.String("msg_id", m.ID), zap.Error(err))
		return err
	}
	logger.Log.Info("message_saved", zap.String("thread", m.Thread), zap.String("msg_id", m.ID))
	return nil
}

// CommitMessage persists a message and advances the owning thread's
// last_message_ts in a single batch, so the append and the timestamp touch
// either both happen or neither.
func (s *Store) CommitMessage(m *models.Message) error {
	if m.ID == "" {
		m.ID = utils.GenMessageID()
	}
	t, err := s.GetThread(m.Thread)
	if err != nil {
		return err
	}
	key := messageKey(m.Thread, m.TS, m.ID)
	if _, closer, err := s.db.Get(key); err == nil {
		_ = closer.Close()
		return errdefs.ErrConflict
	} else if err != pebble.ErrNotFound {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b := s.db.NewBatch()
	_ = b.Set(key, data, nil)
	if m.TS > t.LastMessageTS {
		t.LastMessageTS = m.TS
		td, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal thread: %w", err)
		}
		_ = b.Set(threadKey(t.ID), td, nil)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Log.Error("commit_message_failed", zap.String("thread", m.Thread), zap.String("msg_id", m.ID), zap.Error(err))
		return err
	}
	logger.Log.Info("message_saved", zap.String("thread", m.Thread), zap.String("msg_id", m.ID))
	return nil
}

// ListMessages returns all messages for a thread ordered by (created_ts, id)
// ascending. The result is a snapshot at call time.
func (s *Store) ListMessages(threadID string) ([]models.Message, error) {
	prefix := messagePrefix(threadID)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := []models.Message{}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("invalid message JSON at %s: %w", iter.Key(), err)
		}
		out = append(out, m)
	}
	return out, iter.Error()
}
