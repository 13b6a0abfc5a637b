package store

import (
	"github.com/gusuihan4-tech/kaluli/internal/model"
)

// Pending-analysis queue persistence. The queue is a single FIFO blob under
// KeyPending; items are never reordered or deduplicated, and an item leaves
// the queue only through DropFirstPending after successful delivery.

// EnqueuePending appends an item and returns the new queue length.
func (s *Store) EnqueuePending(item model.PendingAnalysis) (int, error) {
	l := s.Lock(KeyPending)
	l.Lock()
	defer l.Unlock()

	items, err := s.listPending()
	if err != nil {
		return 0, err
	}
	items = append(items, item)
	if err := s.writeJSON(KeyPending, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// ListPending returns the queue in FIFO order.
func (s *Store) ListPending() ([]model.PendingAnalysis, error) {
	l := s.Lock(KeyPending)
	l.Lock()
	defer l.Unlock()
	return s.listPending()
}

func (s *Store) listPending() ([]model.PendingAnalysis, error) {
	var items []model.PendingAnalysis
	if err := s.readJSON(KeyPending, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// DropFirstPending removes the head of the queue and persists the shortened
// queue. A no-op on an empty queue.
func (s *Store) DropFirstPending() error {
	l := s.Lock(KeyPending)
	l.Lock()
	defer l.Unlock()

	items, err := s.listPending()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return s.writeJSON(KeyPending, items[1:])
}
