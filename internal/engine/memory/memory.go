// Package memory implements the in-memory default Engine backend
// ("mem" in FlameContext.Storage). It is the zero-config backend: nothing
// survives process restart, which is why Storage's startup path tolerates
// an empty LoadSessions/LoadExecutors result.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/GeauxEric/flame/internal/model"
)

// Engine is a sync.RWMutex-guarded map-of-maps implementation of
// engine.Engine.
type Engine struct {
	mu        sync.RWMutex
	sessions  map[model.SessionID]*model.Session
	executors map[model.ExecutorID]*model.Executor

	sessionSeq  atomic.Int64
	executorSeq atomic.Int64
	taskSeq     atomic.Int64
}

// New returns an empty in-memory engine.
func New() *Engine {
	return &Engine{
		sessions:  make(map[model.SessionID]*model.Session),
		executors: make(map[model.ExecutorID]*model.Executor),
	}
}

func (e *Engine) SaveSession(_ context.Context, s *model.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions[s.ID] = s
	return nil
}

func (e *Engine) DeleteSession(_ context.Context, id model.SessionID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, id)
	return nil
}

func (e *Engine) LoadSessions(_ context.Context) ([]*model.Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*model.Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (e *Engine) SaveTask(_ context.Context, t *model.Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[t.SessionID]
	if !ok {
		return nil
	}
	s.Tasks[t.ID] = t
	return nil
}

func (e *Engine) SaveExecutor(_ context.Context, x *model.Executor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executors[x.ID] = x
	return nil
}

func (e *Engine) DeleteExecutor(_ context.Context, id model.ExecutorID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.executors, id)
	return nil
}

func (e *Engine) LoadExecutors(_ context.Context) ([]*model.Executor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*model.Executor, 0, len(e.executors))
	for _, x := range e.executors {
		out = append(out, x)
	}
	return out, nil
}

func (e *Engine) NextSessionID(_ context.Context) (model.SessionID, error) {
	n := e.sessionSeq.Add(1)
	return model.SessionID(fmt.Sprintf("ssn-%d", n)), nil
}

func (e *Engine) NextTaskID(_ context.Context, _ model.SessionID) (model.TaskID, error) {
	n := e.taskSeq.Add(1)
	return model.TaskID(fmt.Sprintf("task-%d", n)), nil
}

func (e *Engine) NextExecutorID(_ context.Context) (model.ExecutorID, error) {
	n := e.executorSeq.Add(1)
	return model.ExecutorID(fmt.Sprintf("executor-%d", n)), nil
}

// Close is a no-op for the in-memory backend.
func (e *Engine) Close() error { return nil }
