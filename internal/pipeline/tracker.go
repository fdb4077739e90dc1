package pipeline

import (
	"fmt"
	"sync"

	"github.com/datasynth/api/internal/model"
)

// Observer receives a snapshot after every tracker transition.
type Observer func(model.Progress)

// Tracker holds the progress of one job. The executor's collector goroutine
// is its only writer; readers use Snapshot.
type Tracker struct {
	mu        sync.Mutex
	state     model.Progress
	observers []Observer
}

// NewTracker returns a PENDING tracker for total records split into chunks.
func NewTracker(total, chunks int, observers ...Observer) *Tracker {
	return &Tracker{
		state: model.Progress{
			Status:      model.JobStatusPending,
			Total:       total,
			TotalChunks: chunks,
		},
		observers: observers,
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() model.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start moves the job into PROGRESS.
func (t *Tracker) Start(message string) {
	t.update(func(s *model.Progress) {
		s.Status = model.JobStatusProgress
		s.Message = message
	})
}

// Advance records one completed chunk of the given size.
func (t *Tracker) Advance(records int) {
	t.update(func(s *model.Progress) {
		s.Status = model.JobStatusProgress
		s.Current += records
		if s.Current > s.Total {
			s.Current = s.Total
		}
		s.CompletedChunks++
		s.Message = fmt.Sprintf("Generated %d/%d records (%d/%d chunks)", s.Current, s.Total, s.CompletedChunks, s.TotalChunks)
	})
}

// Note replaces the progress message without changing counters.
func (t *Tracker) Note(message string) {
	t.update(func(s *model.Progress) {
		s.Message = message
	})
}

// Succeed marks the job SUCCESS.
func (t *Tracker) Succeed(message string) {
	t.update(func(s *model.Progress) {
		s.Status = model.JobStatusSuccess
		s.Message = message
	})
}

// Fail marks the job FAILURE.
func (t *Tracker) Fail(message string) {
	t.update(func(s *model.Progress) {
		s.Status = model.JobStatusFailure
		s.Error = message
		s.Message = message
	})
}

// update applies fn unless the job is already terminal, then notifies observers
// outside the lock.
func (t *Tracker) update(fn func(*model.Progress)) {
	t.mu.Lock()
	if t.state.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	fn(&t.state)
	snap := t.state
	t.mu.Unlock()

	for _, obs := range t.observers {
		obs(snap)
	}
}
