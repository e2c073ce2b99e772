// Package storage is the sole owner and writer of the in-memory session
// and executor maps. Every mutation goes through Storage: it is applied
// to the in-memory maps under the mutex first, and then written through
// to an engine.Engine after the mutex is released (spec §4.C).
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/engine"
	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/internal/model"
)

// Clock is the time source Storage uses for creation/completion
// timestamps; tests substitute a fixed clock.
type Clock func() time.Time

// Storage holds every in-memory session and executor. All access goes
// through its mutex; engine I/O (a suspension point) must never happen
// while the mutex is held.
type Storage struct {
	mu sync.Mutex

	sessions  map[model.SessionID]*model.Session
	executors map[model.ExecutorID]*model.Executor

	// sessionCond/taskCond back WaitForSession/WatchTask: callers park on
	// cond.Wait() and every mutation broadcasts, so a goroutine waiting
	// on any session or task wakes up and re-checks its own predicate.
	sessionCond *sync.Cond
	taskCond    *sync.Cond
	execCond    *sync.Cond

	eng   engine.Engine
	clock Clock
	log   *logger.Logger

	closed bool
}

// New constructs a Storage over eng, loading any sessions and executors
// eng already has persisted (spec §4.C: explicit init, no global
// singleton).
func New(ctx context.Context, eng engine.Engine, clock Clock) (*Storage, error) {
	if eng == nil {
		return nil, apperrors.NewUninitialized("storage requires an engine")
	}
	if clock == nil {
		clock = time.Now
	}

	s := &Storage{
		sessions:  make(map[model.SessionID]*model.Session),
		executors: make(map[model.ExecutorID]*model.Executor),
		eng:       eng,
		clock:     clock,
		log:       logger.Default().With(),
	}
	s.sessionCond = sync.NewCond(&s.mu)
	s.taskCond = sync.NewCond(&s.mu)
	s.execCond = sync.NewCond(&s.mu)

	sessions, err := eng.LoadSessions(ctx)
	if err != nil {
		return nil, apperrors.NewStorage("load sessions", err)
	}
	for _, sess := range sessions {
		if sess.TasksByState == nil {
			sess.TasksByState = make(map[model.TaskState][]model.TaskID)
		}
		s.sessions[sess.ID] = sess
	}

	executors, err := eng.LoadExecutors(ctx)
	if err != nil {
		return nil, apperrors.NewStorage("load executors", err)
	}
	for _, x := range executors {
		s.executors[x.ID] = x
	}

	return s, nil
}

// Close releases the underlying engine. Storage is unusable afterward.
func (s *Storage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.sessionCond.Broadcast()
	s.taskCond.Broadcast()
	s.execCond.Broadcast()
	return s.eng.Close()
}

func (s *Storage) checkOpen() error {
	if s.closed {
		return apperrors.NewUninitialized("storage is closed")
	}
	return nil
}
