package cloudsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/model"
	"github.com/gusuihan4-tech/kaluli/internal/store"
)

// Reconciler moves full log snapshots between the local store and the
// cloud row store.
type Reconciler struct {
	client *Client
	store  *store.Store
	state  *State
	log    *zap.Logger
}

// NewReconciler wires a reconciler over the given client and local store.
func NewReconciler(c *Client, s *store.Store, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{client: c, store: s, state: NewState(), log: log}
}

// State exposes the derived sync state for display.
func (r *Reconciler) State() *State {
	return r.state
}

// Enabled reports whether cloud sync is configured.
func (r *Reconciler) Enabled() bool {
	return r.client.Enabled()
}

// Push uploads the active user's full log collection as one upsert.
func (r *Reconciler) Push(ctx context.Context, sess *Session, username string) error {
	r.state.SetStatus(StatusSyncing)

	entries, err := r.store.Logs(username).ListAll()
	if err != nil {
		r.state.SetStatus(StatusFailed)
		return err
	}
	if entries == nil {
		entries = []model.LogEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		r.state.SetStatus(StatusFailed)
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := r.client.UpsertRow(ctx, sess, username, data); err != nil {
		r.state.SetStatus(StatusFailed)
		return err
	}
	r.state.SetStatus(StatusSynced)
	r.log.Info("log snapshot pushed",
		zap.String("username", username),
		zap.Int("entries", len(entries)))
	return nil
}

// PushAsync runs Push in a detached goroutine. Best effort only: a failure
// updates the sync state but is not retried; the next successful mutation
// or manual push carries the data, since every push is a full snapshot.
// This is deliberately weaker than the offline queue's guarantee.
func (r *Reconciler) PushAsync(sess *Session, username string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.Push(ctx, sess, username); err != nil {
			r.log.Warn("background push failed", zap.Error(err))
		}
	}()
}

// PullOnSignIn fetches the account's remote snapshot and, if one exists,
// overwrites the local namespace unconditionally. No merge is attempted:
// local-only entries created before first sign-in are lost. Returns the
// number of entries pulled; an account with no remote row leaves local
// data alone and returns 0.
func (r *Reconciler) PullOnSignIn(ctx context.Context, sess *Session, username string) (int, error) {
	data, err := r.client.FetchRow(ctx, sess)
	if err != nil {
		if err == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}

	var entries []model.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("decode remote snapshot: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := r.store.Logs(username).ReplaceAll(entries); err != nil {
		return 0, err
	}
	r.state.SetLinked(true)
	r.log.Info("remote snapshot pulled, local collection overwritten",
		zap.String("username", username),
		zap.Int("entries", len(entries)))
	return len(entries), nil
}
