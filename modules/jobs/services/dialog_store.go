package services

import (
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobform"
)

var ErrDialogNotFound = errors.New("dialog not found")

// DialogStore keeps open dialogs between requests.
type DialogStore struct {
	mu      sync.Mutex
	dialogs map[string]*jobform.Dialog
}

func NewDialogStore() *DialogStore {
	return &DialogStore{dialogs: make(map[string]*jobform.Dialog)}
}

func (s *DialogStore) Put(d *jobform.Dialog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogs[d.ID] = d
	openDialogs.Set(float64(len(s.dialogs)))
}

func (s *DialogStore) Get(id string) (*jobform.Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dialogs[id]
	if !ok {
		return nil, errors.Wrap(ErrDialogNotFound, id)
	}
	return d, nil
}

// Remove closes and forgets the dialog. Unknown ids are ignored.
func (s *DialogStore) Remove(id string) {
	s.mu.Lock()
	d, ok := s.dialogs[id]
	delete(s.dialogs, id)
	openDialogs.Set(float64(len(s.dialogs)))
	s.mu.Unlock()
	if ok {
		d.Close()
	}
}

func (s *DialogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dialogs)
}

// Sweep closes dialogs idle for longer than maxIdle, and closed dialogs left behind, and returns how many it removed.
func (s *DialogStore) Sweep(now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	var stale []*jobform.Dialog
	for id, d := range s.dialogs {
		if d.Phase() == jobform.PhaseSubmitting {
			continue
		}
		if d.Phase() == jobform.PhaseClosed || now.Sub(d.IdleSince()) > maxIdle {
			stale = append(stale, d)
			delete(s.dialogs, id)
		}
	}
	openDialogs.Set(float64(len(s.dialogs)))
	s.mu.Unlock()
	for _, d := range stale {
		d.Close()
	}
	return len(stale)
}
