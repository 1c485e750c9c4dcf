// Package registry owns exam session state for the lifetime of a session.
// Active sessions live in memory and write through to the session store;
// once a session completes it becomes immutable history served from the
// store alone.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/exameye/proctor/db"
	"github.com/exameye/proctor/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrSessionEnded indicates an operation on an already-completed session.
	ErrSessionEnded = errors.New("session already completed")
)

// Store is the persistence collaborator behind the registry.
type Store interface {
	Insert(session models.ExamSession) error
	Get(id string) (models.ExamSession, error)
	MarkEnded(id string, endTime time.Time) error
	AddFrame(id string) error
	AddViolation(id string) error
	ListActive() ([]models.ExamSession, error)
}

// entry guards one active session. Counter updates lock the entry only,
// so concurrent frames for different sessions never contend.
type entry struct {
	mu      sync.Mutex
	session models.ExamSession
}

type Registry struct {
	mu     sync.RWMutex
	active map[string]*entry
	store  Store

	now   func() time.Time
	newID func() string
}

func New(store Store) *Registry {
	return &Registry{
		active: make(map[string]*entry),
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Restore loads sessions that were active when the process last stopped.
// Returns the number of sessions recovered.
func (r *Registry) Restore() (int, error) {
	sessions, err := r.store.ListActive()
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		r.active[s.ID] = &entry{session: s}
	}
	return len(sessions), nil
}

// StartSession allocates a fresh session for the student and persists it.
func (r *Registry) StartSession(studentID, studentName string, calibPitch, calibYaw float64) (models.ExamSession, error) {
	session := models.ExamSession{
		ID:              r.newID(),
		StudentID:       studentID,
		StudentName:     studentName,
		CalibratedPitch: calibPitch,
		CalibratedYaw:   calibYaw,
		Status:          models.SessionActive,
		StartTime:       r.now().UTC(),
	}

	if err := r.store.Insert(session); err != nil {
		return models.ExamSession{}, err
	}

	r.mu.Lock()
	r.active[session.ID] = &entry{session: session}
	r.mu.Unlock()

	return session, nil
}

// EndSession transitions an active session to completed. Ending a session
// twice returns ErrSessionEnded so double-end bugs surface instead of
// silently passing.
func (r *Registry) EndSession(id string) (models.ExamSession, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.ExamSession{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Status == models.SessionCompleted {
		return models.ExamSession{}, ErrSessionEnded
	}

	endTime := r.now().UTC()
	if err := r.store.MarkEnded(id, endTime); err != nil {
		return models.ExamSession{}, err
	}

	e.session.Status = models.SessionCompleted
	e.session.EndTime = &endTime
	ended := e.session

	r.mu.Lock()
	delete(r.active, id)
	r.mu.Unlock()

	return ended, nil
}

// IncrementFrameCount atomically bumps the session's frame counter.
func (r *Registry) IncrementFrameCount(id string) error {
	return r.increment(id, Store.AddFrame, func(s *models.ExamSession) {
		s.TotalFrames++
	})
}

// IncrementViolationCount atomically bumps the session's violation counter.
func (r *Registry) IncrementViolationCount(id string) error {
	return r.increment(id, Store.AddViolation, func(s *models.ExamSession) {
		s.ViolationCount++
	})
}

func (r *Registry) increment(id string, persist func(Store, string) error, apply func(*models.ExamSession)) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Status == models.SessionCompleted {
		return ErrSessionEnded
	}
	// Write-through first: the in-memory counter only advances once the
	// store accepted the increment, keeping both views consistent.
	if err := persist(r.store, id); err != nil {
		switch {
		case errors.Is(err, db.ErrSessionEnded):
			return ErrSessionEnded
		case errors.Is(err, db.ErrNotFound):
			return ErrNotFound
		}
		return err
	}
	apply(&e.session)
	return nil
}

// GetSession returns the current state of an active session, or the
// persisted record for a completed one.
func (r *Registry) GetSession(id string) (models.ExamSession, error) {
	r.mu.RLock()
	e, ok := r.active[id]
	r.mu.RUnlock()

	if ok {
		e.mu.Lock()
		session := e.session
		e.mu.Unlock()
		return session, nil
	}

	session, err := r.store.Get(id)
	if errors.Is(err, db.ErrNotFound) {
		return models.ExamSession{}, ErrNotFound
	}
	return session, err
}

// ListActive returns a snapshot of every active session. Order is not
// specified; callers that present lists sort them.
func (r *Registry) ListActive() []models.ExamSession {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.active))
	for _, e := range r.active {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sessions := make([]models.ExamSession, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		sessions = append(sessions, e.session)
		e.mu.Unlock()
	}
	return sessions
}

// ActiveCount reports how many sessions are currently active.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// lookup resolves an id to its active entry, distinguishing unknown ids
// from completed sessions.
func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.active[id]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	session, err := r.store.Get(id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		return nil, ErrSessionEnded
	}
	// Active in the store but not in memory (e.g. started before a
	// restart without Restore): adopt it.
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.active[id]; ok {
		return existing, nil
	}
	// Re-read under the lock: the session may have completed since the
	// read above, and inserting that stale snapshot would resurrect it.
	session, err = r.store.Get(id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		return nil, ErrSessionEnded
	}
	e = &entry{session: session}
	r.active[id] = e
	return e, nil
}
