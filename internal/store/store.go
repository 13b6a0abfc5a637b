// Package store provides durable keyed storage for per-user meal logs and
// the pending-analysis queue.
//
// Collections are stored as whole JSON blobs, one per namespace, and every
// mutation is a read-modify-write of the full blob. The underlying engine
// has transactions, but callers from different goroutines still race at the
// blob level, so all mutations for a namespace are serialized through an
// in-process mutex.
package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/apperror"
)

// Stable namespace keys. Other code must not collide with these.
const (
	KeyCurrentUser = "currentUser"
	KeyPending     = "pending_analyses"
	keyLogsBare    = "food_logs"
	keySession     = "cloud_session"
)

// LogsNamespace returns the log namespace for a username, or the bare
// namespace when no user context exists.
func LogsNamespace(username string) string {
	if username == "" {
		return keyLogsBare
	}
	return keyLogsBare + "_" + username
}

// Options configures a Store.
type Options struct {
	// Dir is the directory for the database files. Ignored when InMemory.
	Dir string
	// InMemory disables disk persistence. Used by tests.
	InMemory bool
	// Logger is optional; nil means no logging.
	Logger *zap.Logger
}

// Store is a namespaced blob store backed by BadgerDB.
type Store struct {
	db  *badger.DB
	log *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (or creates) the store.
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", apperror.ErrStorage, err)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log, locks: make(map[string]*sync.Mutex)}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lock returns the mutation mutex for a namespace, creating it on first use.
// Callers holding it serialize all read-modify-write cycles for that key.
func (s *Store) Lock(ns string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[ns]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ns] = l
	}
	return l
}

// get returns the raw blob for key, or nil when the key does not exist.
func (s *Store) get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperror.ErrStorage, key, err)
	}
	return out, nil
}

func (s *Store) set(key string, val []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", apperror.ErrStorage, key, err)
	}
	return nil
}

func (s *Store) delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", apperror.ErrStorage, key, err)
	}
	return nil
}

// readJSON loads a collection blob into v. A missing key leaves v untouched.
// A corrupt blob is copied to a quarantine key, logged, and treated as a
// missing key: the store degrades to the empty collection instead of
// failing, and the unreadable bytes are preserved.
func (s *Store) readJSON(key string, v interface{}) error {
	raw, err := s.get(key)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.quarantine(key, raw)
		s.log.Warn("corrupt collection blob, treating as empty",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	return nil
}

func (s *Store) writeJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", apperror.ErrStorage, key, err)
	}
	return s.set(key, raw)
}

// quarantine preserves an unreadable blob under a timestamped side key so a
// later rewrite of the main key cannot destroy it.
func (s *Store) quarantine(key string, raw []byte) {
	qk := fmt.Sprintf("%s!corrupt!%d", key, time.Now().UnixNano())
	if err := s.set(qk, raw); err != nil {
		s.log.Error("failed to quarantine corrupt blob", zap.String("key", key), zap.Error(err))
	}
}

// CurrentUser returns the active local user, or "" when none is set.
func (s *Store) CurrentUser() (string, error) {
	raw, err := s.get(KeyCurrentUser)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetCurrentUser switches the active namespace. Other users' data stays put.
func (s *Store) SetCurrentUser(name string) error {
	return s.set(KeyCurrentUser, []byte(name))
}

// ClearCurrentUser signs the local user out.
func (s *Store) ClearCurrentUser() error {
	return s.delete(KeyCurrentUser)
}

// SessionToken returns the stored cloud access token, or "" when none.
// Only the raw token is kept; the session itself is rebuilt on each start
// by asking the auth service.
func (s *Store) SessionToken() (string, error) {
	raw, err := s.get(keySession)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetSessionToken stores the cloud access token across restarts.
func (s *Store) SetSessionToken(token string) error {
	return s.set(keySession, []byte(token))
}

// ClearSessionToken removes the stored cloud access token.
func (s *Store) ClearSessionToken() error {
	return s.delete(keySession)
}
