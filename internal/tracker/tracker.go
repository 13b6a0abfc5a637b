// Package tracker orchestrates the capture-analyze-save pipeline over the
// local store, the offline queue, and the cloud reconciler.
package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/apperror"
	"github.com/gusuihan4-tech/kaluli/internal/cloudsync"
	"github.com/gusuihan4-tech/kaluli/internal/imageprep"
	"github.com/gusuihan4-tech/kaluli/internal/model"
	"github.com/gusuihan4-tech/kaluli/internal/queue"
	"github.com/gusuihan4-tech/kaluli/internal/store"
)

// Tracker ties the pipeline together for the active local user.
type Tracker struct {
	log    *zap.Logger
	store  *store.Store
	prep   *imageprep.Preparer
	client queue.Analyzer
	queue  queue.Manager
	sync   *cloudsync.Reconciler

	mu      sync.Mutex
	session *cloudsync.Session
	online  bool
}

// New wires a Tracker. The reconciler may be disabled; pushes are then
// skipped.
func New(s *store.Store, p *imageprep.Preparer, a queue.Analyzer, q queue.Manager, r *cloudsync.Reconciler, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		log:    log,
		store:  s,
		prep:   p,
		client: a,
		queue:  q,
		sync:   r,
		online: true,
	}
}

// SetOnline records a connectivity transition. Going online kicks the
// queue's drain loop. Failed background pushes are not re-driven here:
// push is fire-and-forget, and the next successful mutation carries the
// full snapshot anyway.
func (t *Tracker) SetOnline(online bool) {
	t.mu.Lock()
	was := t.online
	t.online = online
	t.mu.Unlock()

	if online && !was {
		t.log.Info("network online, draining pending analyses")
		t.queue.NotifyOnline()
	}
}

// Online reports the last known connectivity state.
func (t *Tracker) Online() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online
}

// SetSession links or unlinks the cloud account session used for pushes.
func (t *Tracker) SetSession(sess *cloudsync.Session) {
	t.mu.Lock()
	t.session = sess
	t.mu.Unlock()
	if t.sync != nil {
		t.sync.State().SetLinked(sess != nil)
	}
}

// Session returns the linked cloud session, or nil.
func (t *Tracker) Session() *cloudsync.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// Outcome is the result of an analysis attempt: either predictions to
// confirm, or a note that the request was queued for later delivery.
type Outcome struct {
	Predictions []model.Prediction
	Queued      bool
	QueueLength int
}

// AnalyzePhoto prepares a captured image and tries to analyze it. Offline
// or retryable failures divert the prepared image into the offline queue
// instead of surfacing a terminal error; the photo is never silently
// dropped. Undecodable input and unusable endpoint content are terminal.
func (t *Tracker) AnalyzePhoto(ctx context.Context, raw []byte) (*Outcome, error) {
	img, err := t.prep.Prepare(raw)
	if err != nil {
		return nil, err
	}

	if !t.Online() {
		n, err := t.queue.Enqueue(img)
		if err != nil {
			return nil, err
		}
		return &Outcome{Queued: true, QueueLength: n}, nil
	}

	preds, err := t.client.Analyze(ctx, img)
	if err != nil {
		if apperror.ShouldQueue(err) {
			t.log.Warn("analysis failed, queueing for retry", zap.Error(err))
			n, qerr := t.queue.Enqueue(img)
			if qerr != nil {
				return nil, qerr
			}
			return &Outcome{Queued: true, QueueLength: n}, nil
		}
		return nil, err
	}
	return &Outcome{Predictions: preds}, nil
}

// Save confirms predictions as one meal log entry for the active user and
// triggers a background push when a cloud session is linked.
func (t *Tracker) Save(meal model.MealType, preds []model.Prediction) (model.LogEntry, error) {
	user, err := t.store.CurrentUser()
	if err != nil {
		return model.LogEntry{}, err
	}
	entry := model.NewLogEntry(time.Now(), meal, preds)
	if err := t.store.Logs(user).Append(entry); err != nil {
		return model.LogEntry{}, err
	}
	t.pushAfterMutation(user)
	return entry, nil
}

// DeleteAt removes the entry at the chronological index. UIs displaying
// newest-first translate with DisplayedToChronological first.
func (t *Tracker) DeleteAt(chronoIndex int) error {
	user, err := t.store.CurrentUser()
	if err != nil {
		return err
	}
	if err := t.store.Logs(user).DeleteAt(chronoIndex); err != nil {
		return err
	}
	t.pushAfterMutation(user)
	return nil
}

// DisplayedToChronological maps an index in a newest-first listing of
// length entries back to the chronological index the store expects.
func DisplayedToChronological(length, displayed int) int {
	return length - 1 - displayed
}

// History returns the active user's entries in insertion order.
func (t *Tracker) History() ([]model.LogEntry, error) {
	user, err := t.store.CurrentUser()
	if err != nil {
		return nil, err
	}
	return t.store.Logs(user).ListAll()
}

// Stats summarizes the active user's log relative to now.
func (t *Tracker) Stats(now time.Time) (model.Stats, error) {
	user, err := t.store.CurrentUser()
	if err != nil {
		return model.Stats{}, err
	}
	return t.store.Logs(user).ComputeStats(now)
}

// PendingCount returns the offline queue length.
func (t *Tracker) PendingCount() (int, error) {
	items, err := t.store.ListPending()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (t *Tracker) pushAfterMutation(user string) {
	sess := t.Session()
	if sess == nil || t.sync == nil || !t.sync.Enabled() {
		return
	}
	t.sync.PushAsync(sess, user)
}
