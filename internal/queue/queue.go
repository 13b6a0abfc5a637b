// Package queue owns at-least-once delivery of queued analysis requests.
package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/model"
	"github.com/gusuihan4-tech/kaluli/internal/store"
)

// Analyzer delivers one encoded image to the analysis endpoint.
type Analyzer interface {
	Analyze(ctx context.Context, image string) ([]model.Prediction, error)
}

// Manager defines the interface for queueing work and controlling lifecycle.
type Manager interface {
	Enqueue(image string) (int, error)
	Drain(ctx context.Context) (int, error)
	Start()
	NotifyOnline()
	Stop()
}

// manager persists pending analyses and drains them on reconnect.
type manager struct {
	log      *zap.Logger
	store    *store.Store
	analyzer Analyzer
	online   chan struct{}
	quit     chan struct{}
}

// New initializes a new Manager instance.
func New(s *store.Store, a Analyzer, log *zap.Logger) Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &manager{
		log:      log,
		store:    s,
		analyzer: a,
		online:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
}

// Enqueue appends a new pending item and returns the queue length. It never
// blocks on the network and fails only if persistence itself fails.
func (m *manager) Enqueue(image string) (int, error) {
	n, err := m.store.EnqueuePending(model.PendingAnalysis{
		ID:    uuid.NewString(),
		Image: image,
	})
	if err != nil {
		return 0, err
	}
	m.log.Info("analysis request queued for retry", zap.Int("queue_length", n))
	return n, nil
}

// Drain walks the queue strictly in FIFO order, removing each item only
// after its analysis call succeeds. It stops at the first failure: a failed
// call most likely means the connection is still bad, so later items are
// left untouched for the next online transition. Returns the number of
// items delivered.
//
// Delivery is at-least-once: if the process dies between a successful call
// and the queue rewrite, the item is resent later. Analysis has no remote
// side effect, so a duplicate costs only a second call.
func (m *manager) Drain(ctx context.Context) (int, error) {
	delivered := 0
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		default:
		}

		items, err := m.store.ListPending()
		if err != nil {
			return delivered, err
		}
		if len(items) == 0 {
			return delivered, nil
		}

		head := items[0]
		if _, err := m.analyzer.Analyze(ctx, head.Image); err != nil {
			m.log.Warn("drain stopped at first failure",
				zap.String("item_id", head.ID),
				zap.Int("remaining", len(items)),
				zap.Error(err))
			return delivered, err
		}
		if err := m.store.DropFirstPending(); err != nil {
			return delivered, err
		}
		delivered++
		m.log.Info("queued analysis delivered",
			zap.String("item_id", head.ID),
			zap.Int("remaining", len(items)-1))
	}
}

// Start runs the reconnect loop: every online notification triggers a
// drain attempt until Stop is called.
func (m *manager) Start() {
	for {
		select {
		case <-m.online:
			if _, err := m.Drain(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
				m.log.Warn("drain incomplete, waiting for next online transition", zap.Error(err))
			}
		case <-m.quit:
			return
		}
	}
}

// NotifyOnline signals a network-online transition. Coalesces when a drain
// is already pending.
func (m *manager) NotifyOnline() {
	select {
	case m.online <- struct{}{}:
	default:
	}
}

// Stop signals the manager to shut down.
func (m *manager) Stop() {
	close(m.quit)
}
