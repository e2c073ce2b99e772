package storage

import (
	"context"
	"sync"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/model"
)

// watchCtx spawns a goroutine that broadcasts cond once ctx is done, so a
// caller parked in cond.Wait() wakes up and can re-check ctx.Err(). The
// returned stop function must be called once the wait loop exits, to let
// the goroutine terminate without leaking.
func watchCtx(ctx context.Context, cond *sync.Cond) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cond.L.Lock()
			cond.Broadcast()
			cond.L.Unlock()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// WaitForSession blocks until the session leaves OPEN state (CLOSED or
// TERMINATED) or ctx is cancelled. Used by clients that submitted tasks
// and want to know when no more will be accepted.
func (s *Storage) WaitForSession(ctx context.Context, id model.SessionID) error {
	stop := watchCtx(ctx, s.sessionCond)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		sess, ok := s.sessions[id]
		if !ok {
			return apperrors.NewNotFound(string(id))
		}
		if sess.State != model.SessionOpen {
			return nil
		}
		if s.closed {
			return apperrors.NewUninitialized("storage is closed")
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.sessionCond.Wait()
	}
}

// WatchTask snapshots the task's state and blocks until that state
// changes or ctx is cancelled, returning the task's state at the moment
// it resolves. A task already in a different state than at call time, or
// already terminal, resolves immediately without waiting (spec §4.E).
func (s *Storage) WatchTask(ctx context.Context, ssnID model.SessionID, taskID model.TaskID) (*model.Task, error) {
	stop := watchCtx(ctx, s.taskCond)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ssnID]
	if !ok {
		return nil, apperrors.NewNotFound(string(ssnID))
	}
	task, ok := sess.GetTask(taskID)
	if !ok {
		return nil, apperrors.NewNotFound(string(taskID))
	}
	initial := task.State

	for {
		sess, ok := s.sessions[ssnID]
		if !ok {
			return nil, apperrors.NewNotFound(string(ssnID))
		}
		task, ok := sess.GetTask(taskID)
		if !ok {
			return nil, apperrors.NewNotFound(string(taskID))
		}
		if task.State != initial || task.IsCompleted() {
			cp := *task
			return &cp, nil
		}
		if s.closed {
			return nil, apperrors.NewUninitialized("storage is closed")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.taskCond.Wait()
	}
}

// WaitForBinding blocks until the scheduler has assigned execID a
// session (BINDING or BOUND), returning that session, or until ctx is
// cancelled. An executor process calls this right after registering, to
// learn which session it should prepare to serve.
func (s *Storage) WaitForBinding(ctx context.Context, execID model.ExecutorID) (*model.Session, error) {
	stop := watchCtx(ctx, s.execCond)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		exec, ok := s.executors[execID]
		if !ok {
			return nil, apperrors.NewNotFound(string(execID))
		}
		if exec.SessionID != nil {
			if sess, ok := s.sessions[*exec.SessionID]; ok {
				return sess, nil
			}
		}
		if s.closed {
			return nil, apperrors.NewUninitialized("storage is closed")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.execCond.Wait()
	}
}

// NextTask blocks until a bound, idle executor has a pending task to run
// in its session, launches it, and returns it, or returns once ctx is
// cancelled. An executor process calls this in a loop after
// bind_session_completed to pull its next unit of work. It returns
// (nil, nil) once its session has closed/terminated with nothing left
// pending, signaling the caller to unbind rather than keep polling.
func (s *Storage) NextTask(ctx context.Context, execID model.ExecutorID) (*model.Task, error) {
	stop := watchCtx(ctx, s.taskCond)
	defer stop()

	s.mu.Lock()
	for {
		exec, ok := s.executors[execID]
		if !ok {
			s.mu.Unlock()
			return nil, apperrors.NewNotFound(string(execID))
		}
		if exec.State != model.ExecutorBound {
			s.mu.Unlock()
			return nil, apperrors.NewInvalidState("executor is not bound")
		}
		if exec.TaskID != nil {
			s.mu.Unlock()
			return nil, apperrors.NewInvalidState("executor already has a task in flight")
		}
		if exec.SessionID != nil {
			if sess, ok := s.sessions[*exec.SessionID]; ok {
				if taskID, hasPending := sess.PopPendingTask(); hasPending {
					s.mu.Unlock()
					return s.LaunchTask(ctx, execID, taskID)
				}
				// Session closed/terminated with nothing left to hand out:
				// no more tasks are coming, so tell the caller to move on
				// to unbind rather than block forever.
				if sess.State != model.SessionOpen {
					s.mu.Unlock()
					return nil, nil
				}
			}
		}
		if s.closed {
			s.mu.Unlock()
			return nil, apperrors.NewUninitialized("storage is closed")
		}
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.taskCond.Wait()
	}
}

// WatchTaskUpdates sends the task to ch each time it observes a state
// different from the last one it saw, starting from the state at call
// time, until the task completes or ctx is cancelled, then closes ch. A
// task that is already terminal at call time is sent once. States are
// observed on each wake-up, so changes that follow each other before the
// watcher runs again arrive as one update carrying the latest state. Used
// by the websocket handler so a client sees RUNNING before the terminal
// state rather than only the final snapshot.
func (s *Storage) WatchTaskUpdates(ctx context.Context, ssnID model.SessionID, taskID model.TaskID, ch chan<- model.Task) {
	defer close(ch)

	stop := watchCtx(ctx, s.taskCond)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastState model.TaskState
	if sess, ok := s.sessions[ssnID]; ok {
		if task, ok := sess.GetTask(taskID); ok && !task.IsCompleted() {
			lastState = task.State
		}
	}
	for {
		sess, ok := s.sessions[ssnID]
		if !ok {
			return
		}
		task, ok := sess.GetTask(taskID)
		if !ok {
			return
		}
		if task.State != lastState {
			lastState = task.State
			cp := *task
			s.mu.Unlock()
			select {
			case ch <- cp:
			case <-ctx.Done():
				s.mu.Lock()
				return
			}
			s.mu.Lock()
		}
		if task.IsCompleted() {
			return
		}
		if s.closed || ctx.Err() != nil {
			return
		}
		s.taskCond.Wait()
	}
}
