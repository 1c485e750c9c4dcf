package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/exameye/proctor/db"
	"github.com/exameye/proctor/models"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]models.ExamSession

	insertErr    error
	endErr       error
	frameErr     error
	violationErr error

	// when set, the first Get signals getEntered and parks on getStall
	getStall   chan struct{}
	getEntered chan struct{}
	stalled    atomic.Bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]models.ExamSession)}
}

func (f *fakeStore) Insert(session models.ExamSession) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeStore) Get(id string) (models.ExamSession, error) {
	f.mu.Lock()
	session, ok := f.sessions[id]
	f.mu.Unlock()
	if !ok {
		return models.ExamSession{}, db.ErrNotFound
	}
	if f.getStall != nil {
		// Only the first Get parks; a sync.Once here would also block
		// concurrent Gets (EndSession's own lookup) and deadlock the test.
		if f.stalled.CompareAndSwap(false, true) {
			close(f.getEntered)
			<-f.getStall
		}
	}
	return session, nil
}

func (f *fakeStore) MarkEnded(id string, endTime time.Time) error {
	if f.endErr != nil {
		return f.endErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	session.Status = models.SessionCompleted
	session.EndTime = &endTime
	f.sessions[id] = session
	return nil
}

func (f *fakeStore) AddFrame(id string) error {
	if f.frameErr != nil {
		return f.frameErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	if session.Status == models.SessionCompleted {
		return db.ErrSessionEnded
	}
	session.TotalFrames++
	f.sessions[id] = session
	return nil
}

func (f *fakeStore) AddViolation(id string) error {
	if f.violationErr != nil {
		return f.violationErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	if session.Status == models.SessionCompleted {
		return db.ErrSessionEnded
	}
	session.ViolationCount++
	f.sessions[id] = session
	return nil
}

func (f *fakeStore) ListActive() ([]models.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active []models.ExamSession
	for _, session := range f.sessions {
		if session.Status == models.SessionActive {
			active = append(active, session)
		}
	}
	return active, nil
}

func (f *fakeStore) stored(id string) models.ExamSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

func TestStartSession(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	session, err := reg.StartSession("STU-ABC123", "Jane Doe", 1.5, -2.0)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	if session.ID == "" {
		t.Error("expected a generated session id")
	}
	if session.Status != models.SessionActive {
		t.Errorf("status = %q, want %q", session.Status, models.SessionActive)
	}
	if session.TotalFrames != 0 || session.ViolationCount != 0 {
		t.Errorf("counters = %d/%d, want 0/0", session.TotalFrames, session.ViolationCount)
	}
	if session.CalibratedPitch != 1.5 || session.CalibratedYaw != -2.0 {
		t.Errorf("calibration = %v/%v, want 1.5/-2.0", session.CalibratedPitch, session.CalibratedYaw)
	}
	if got := store.stored(session.ID); got.ID != session.ID {
		t.Error("session was not persisted")
	}
	if reg.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", reg.ActiveCount())
	}
}

func TestEndSession(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	session, _ := reg.StartSession("STU-ABC123", "Jane Doe", 0, 0)

	ended, err := reg.EndSession(session.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if ended.Status != models.SessionCompleted {
		t.Errorf("status = %q, want %q", ended.Status, models.SessionCompleted)
	}
	if ended.EndTime == nil {
		t.Error("expected an end timestamp")
	}
	if reg.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", reg.ActiveCount())
	}

	// Ending twice surfaces the bug instead of silently passing.
	if _, err := reg.EndSession(session.ID); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("second EndSession err = %v, want ErrSessionEnded", err)
	}
}

func TestEndSessionUnknown(t *testing.T) {
	reg := New(newFakeStore())
	if _, err := reg.EndSession("S-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIncrementUnknownSession(t *testing.T) {
	reg := New(newFakeStore())

	if err := reg.IncrementFrameCount("S-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementFrameCount err = %v, want ErrNotFound", err)
	}
	if err := reg.IncrementViolationCount("S-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementViolationCount err = %v, want ErrNotFound", err)
	}
}

func TestIncrementCompletedSession(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	session, _ := reg.StartSession("STU-ABC123", "Jane Doe", 0, 0)
	if _, err := reg.EndSession(session.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	if err := reg.IncrementFrameCount(session.ID); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("err = %v, want ErrSessionEnded", err)
	}
}

func TestIncrementWriteThroughFailure(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	session, _ := reg.StartSession("STU-ABC123", "Jane Doe", 0, 0)

	store.frameErr = errors.New("connection reset")
	if err := reg.IncrementFrameCount(session.ID); err == nil {
		t.Fatal("expected an error from the failed write-through")
	}

	// The in-memory counter must not advance when the store rejected it.
	got, err := reg.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.TotalFrames != 0 {
		t.Errorf("TotalFrames = %d, want 0", got.TotalFrames)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	session, _ := reg.StartSession("STU-ABC123", "Jane Doe", 0, 0)

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := reg.IncrementFrameCount(session.ID); err != nil {
					t.Errorf("IncrementFrameCount: %v", err)
				}
				if err := reg.IncrementViolationCount(session.ID); err != nil {
					t.Errorf("IncrementViolationCount: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, err := reg.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	want := int64(workers * perWorker)
	if got.TotalFrames != want {
		t.Errorf("TotalFrames = %d, want %d", got.TotalFrames, want)
	}
	if got.ViolationCount != want {
		t.Errorf("ViolationCount = %d, want %d", got.ViolationCount, want)
	}
	if stored := store.stored(session.ID); stored.TotalFrames != want {
		t.Errorf("stored TotalFrames = %d, want %d", stored.TotalFrames, want)
	}
}

func TestGetSessionAfterCompletion(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	session, _ := reg.StartSession("STU-ABC123", "Jane Doe", 0, 0)
	reg.EndSession(session.ID)

	got, err := reg.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != models.SessionCompleted {
		t.Errorf("status = %q, want %q", got.Status, models.SessionCompleted)
	}
}

func TestGetSessionUnknown(t *testing.T) {
	reg := New(newFakeStore())
	if _, err := reg.GetSession("S-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListActive(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	first, _ := reg.StartSession("STU-AAA111", "Jane Doe", 0, 0)
	reg.StartSession("STU-BBB222", "John Smith", 0, 0)

	if got := len(reg.ListActive()); got != 2 {
		t.Fatalf("ListActive len = %d, want 2", got)
	}

	reg.EndSession(first.ID)
	active := reg.ListActive()
	if len(active) != 1 {
		t.Fatalf("ListActive len = %d, want 1", len(active))
	}
	if active[0].StudentID != "STU-BBB222" {
		t.Errorf("remaining session student = %q, want STU-BBB222", active[0].StudentID)
	}
}

func TestRestore(t *testing.T) {
	store := newFakeStore()
	store.sessions["left-over"] = models.ExamSession{
		ID:        "left-over",
		StudentID: "STU-ABC123",
		Status:    models.SessionActive,
		StartTime: time.Now().Add(-time.Hour),
	}
	store.sessions["finished"] = models.ExamSession{
		ID:        "finished",
		StudentID: "STU-DEF456",
		Status:    models.SessionCompleted,
	}

	reg := New(store)
	recovered, err := reg.Restore()
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if recovered != 1 {
		t.Errorf("recovered = %d, want 1", recovered)
	}

	if err := reg.IncrementFrameCount("left-over"); err != nil {
		t.Errorf("IncrementFrameCount on recovered session: %v", err)
	}
}

func TestIncrementRacesEndSession(t *testing.T) {
	store := newFakeStore()
	store.sessions["orphan"] = models.ExamSession{
		ID:        "orphan",
		StudentID: "STU-ABC123",
		Status:    models.SessionActive,
		StartTime: time.Now(),
	}
	store.getStall = make(chan struct{})
	store.getEntered = make(chan struct{})

	reg := New(store)

	incErr := make(chan error, 1)
	go func() {
		incErr <- reg.IncrementFrameCount("orphan")
	}()

	// The increment is parked on its first store read holding a stale
	// active snapshot; complete the session underneath it.
	<-store.getEntered
	if _, err := reg.EndSession("orphan"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	close(store.getStall)

	// The resumed increment must not adopt the stale snapshot and must
	// not advance any counter.
	if err := <-incErr; !errors.Is(err, ErrSessionEnded) {
		t.Errorf("err = %v, want ErrSessionEnded", err)
	}
	if got := store.stored("orphan").TotalFrames; got != 0 {
		t.Errorf("stored TotalFrames = %d, want 0", got)
	}
	if reg.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", reg.ActiveCount())
	}
}

func TestStoreGuardRejectsCompletedIncrement(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	session, _ := reg.StartSession("STU-ABC123", "Jane Doe", 0, 0)

	// The row completed underneath the registry; memory has not caught up.
	store.mu.Lock()
	s := store.sessions[session.ID]
	s.Status = models.SessionCompleted
	store.sessions[session.ID] = s
	store.mu.Unlock()

	if err := reg.IncrementFrameCount(session.ID); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("err = %v, want ErrSessionEnded", err)
	}
	if got := store.stored(session.ID).TotalFrames; got != 0 {
		t.Errorf("stored TotalFrames = %d, want 0", got)
	}
}

func TestAdoptActiveSessionFromStore(t *testing.T) {
	store := newFakeStore()
	store.sessions["orphan"] = models.ExamSession{
		ID:        "orphan",
		StudentID: "STU-ABC123",
		Status:    models.SessionActive,
		StartTime: time.Now(),
	}

	// No Restore: the registry should still pick the session up lazily.
	reg := New(store)
	if err := reg.IncrementFrameCount("orphan"); err != nil {
		t.Fatalf("IncrementFrameCount: %v", err)
	}
	if reg.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", reg.ActiveCount())
	}
}
