package storage

import (
	"context"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/executorfsm"
	"github.com/GeauxEric/flame/internal/model"
)

// lockOrder fetches the executor, then (if it names one) its bound
// session, while holding s.mu. Callers must already hold s.mu before
// calling this and keep holding it through the transition, matching the
// executor -> session -> task -> engine lock order (spec §4.D): the
// engine is only ever touched after s.mu is released.
func (s *Storage) lockOrder(execID model.ExecutorID) (*model.Executor, *model.Session, error) {
	exec, ok := s.executors[execID]
	if !ok {
		return nil, nil, apperrors.NewNotFound(string(execID))
	}
	var sess *model.Session
	if exec.SessionID != nil {
		sess = s.sessions[*exec.SessionID]
	}
	return exec, sess, nil
}

// BindSession assigns an idle executor to an open session with
// outstanding desired slots, moving it to BINDING. The scheduler is the
// only normal caller.
func (s *Storage) BindSession(ctx context.Context, execID model.ExecutorID, ssnID model.SessionID) error {
	s.mu.Lock()
	exec, ok := s.executors[execID]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFound(string(execID))
	}
	sess, ok := s.sessions[ssnID]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFound(string(ssnID))
	}

	st := executorfsm.ForExecutor(exec.State)
	if err := st.BindSession(exec, sess, s.clock()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.execCond.Broadcast()
	return s.persistExecAndSession(ctx, exec, sess)
}

// BindSessionCompleted is called by an executor confirming it has
// attached to its assigned session and is ready to run tasks.
func (s *Storage) BindSessionCompleted(ctx context.Context, execID model.ExecutorID) error {
	s.mu.Lock()
	exec, sess, err := s.lockOrder(execID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	st := executorfsm.ForExecutor(exec.State)
	if err := st.BindSessionCompleted(exec, sess, s.clock()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.execCond.Broadcast()
	s.taskCond.Broadcast()
	return s.persistExecAndSession(ctx, exec, sess)
}

// LaunchTask assigns a pending task to a bound, idle executor.
func (s *Storage) LaunchTask(ctx context.Context, execID model.ExecutorID, taskID model.TaskID) (*model.Task, error) {
	s.mu.Lock()
	exec, sess, err := s.lockOrder(execID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if sess == nil {
		s.mu.Unlock()
		return nil, apperrors.NewInvalidState("executor is not bound to a session")
	}
	task, ok := sess.GetTask(taskID)
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NewNotFound(string(taskID))
	}

	st := executorfsm.ForExecutor(exec.State)
	if err := st.LaunchTask(exec, sess, task, s.clock()); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sess.UpdateTaskState(taskID, task.State)
	s.mu.Unlock()

	s.taskCond.Broadcast()

	if err := s.persistExecAndSession(ctx, exec, sess); err != nil {
		return nil, err
	}
	if err := s.eng.SaveTask(ctx, task); err != nil {
		return nil, apperrors.NewStorage("save task", err)
	}
	return task, nil
}

// CompleteTask records the outcome an executor reports for the task it
// was running, and frees the executor to accept another.
func (s *Storage) CompleteTask(ctx context.Context, execID model.ExecutorID, taskID model.TaskID, result executorfsm.TaskResult) error {
	s.mu.Lock()
	exec, sess, err := s.lockOrder(execID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if sess == nil {
		s.mu.Unlock()
		return apperrors.NewInvalidState("executor is not bound to a session")
	}
	task, ok := sess.GetTask(taskID)
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFound(string(taskID))
	}

	st := executorfsm.ForExecutor(exec.State)
	if err := st.CompleteTask(exec, sess, task, result, s.clock()); err != nil {
		s.mu.Unlock()
		return err
	}
	sess.UpdateTaskState(taskID, task.State)
	s.terminateIfDrained(sess)
	s.mu.Unlock()

	s.taskCond.Broadcast()
	s.sessionCond.Broadcast()

	if err := s.persistExecAndSession(ctx, exec, sess); err != nil {
		return err
	}
	if err := s.eng.SaveTask(ctx, task); err != nil {
		return apperrors.NewStorage("save task", err)
	}
	return nil
}

// UnbindExecutor begins releasing a BINDING or BOUND executor from its
// session, moving it to UNBINDING; a task still in flight stays assigned
// and can be finished with CompleteTask. The executor process calls this
// through the gateway's unbind route; the scheduler never does.
func (s *Storage) UnbindExecutor(ctx context.Context, execID model.ExecutorID) error {
	s.mu.Lock()
	exec, sess, err := s.lockOrder(execID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	st := executorfsm.ForExecutor(exec.State)
	if err := st.UnbindExecutor(exec, sess, s.clock()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.execCond.Broadcast()
	return s.persistExecAndSession(ctx, exec, sess)
}

// UnbindExecutorCompleted is called by an executor confirming it has
// fully released its session and returned to IDLE.
func (s *Storage) UnbindExecutorCompleted(ctx context.Context, execID model.ExecutorID) error {
	s.mu.Lock()
	exec, sess, err := s.lockOrder(execID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	st := executorfsm.ForExecutor(exec.State)
	if err := st.UnbindExecutorCompleted(exec, sess, s.clock()); err != nil {
		s.mu.Unlock()
		return err
	}
	if sess != nil {
		s.terminateIfDrained(sess)
	}
	s.mu.Unlock()

	s.sessionCond.Broadcast()
	s.execCond.Broadcast()
	return s.persistExecAndSession(ctx, exec, sess)
}

func (s *Storage) persistExecAndSession(ctx context.Context, exec *model.Executor, sess *model.Session) error {
	if err := s.eng.SaveExecutor(ctx, exec); err != nil {
		return apperrors.NewStorage("save executor", err)
	}
	if sess != nil {
		if err := s.eng.SaveSession(ctx, sess); err != nil {
			return apperrors.NewStorage("save session", err)
		}
	}
	return nil
}
