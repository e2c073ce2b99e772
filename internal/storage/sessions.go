package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/model"
)

// CreateSession opens a new session for application, requesting desired
// slots, and persists it.
func (s *Storage) CreateSession(ctx context.Context, application string, slots map[string]string, desired int32) (*model.Session, error) {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	id, err := s.eng.NextSessionID(ctx)
	if err != nil {
		return nil, apperrors.NewStorage("allocate session id", err)
	}

	sess := model.NewSession(id, application, slots, desired, s.clock())

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	if err := s.eng.SaveSession(ctx, sess); err != nil {
		s.log.WithError(err).Error("save session failed", zap.String("session_id", string(id)))
		return nil, apperrors.NewStorage("save session", err)
	}

	s.log.Info("session created", zap.String("session_id", string(id)), zap.String("application", application))
	return sess, nil
}

// GetSession returns the session with the given id.
func (s *Storage) GetSession(id model.SessionID) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFound(string(id))
	}
	return sess, nil
}

// ListSessions returns every known session.
func (s *Storage) ListSessions() []*model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// CloseSession marks a session CLOSED: no new tasks may be submitted, but
// tasks already pending or running still run to completion. Any
// goroutine parked in WaitForSession wakes up.
func (s *Storage) CloseSession(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFound(string(id))
	}
	if sess.State != model.SessionOpen {
		s.mu.Unlock()
		return apperrors.NewInvalidState("session is not open")
	}
	sess.State = model.SessionClosed
	s.mu.Unlock()

	s.sessionCond.Broadcast()

	if err := s.eng.SaveSession(ctx, sess); err != nil {
		return apperrors.NewStorage("save session", err)
	}
	return nil
}

// DeleteSession removes a session and every task under it. A session
// must be CLOSED or TERMINATED first.
func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFound(string(id))
	}
	if sess.State == model.SessionOpen {
		s.mu.Unlock()
		return apperrors.NewInvalidState("session must be closed before deletion")
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	if err := s.eng.DeleteSession(ctx, id); err != nil {
		return apperrors.NewStorage("delete session", err)
	}
	return nil
}

// terminateIfDrained flips a CLOSED session with no pending, running or
// aborting tasks to TERMINATED. Callers must already hold s.mu.
func (s *Storage) terminateIfDrained(sess *model.Session) {
	if sess.State != model.SessionClosed {
		return
	}
	outstanding := len(sess.TasksByState[model.TaskPending]) +
		len(sess.TasksByState[model.TaskRunning]) +
		len(sess.TasksByState[model.TaskAborting])
	if outstanding > 0 {
		return
	}
	now := s.clock()
	sess.State = model.SessionTerminated
	sess.CompletionTime = &now
}

// CreateTask submits a new PENDING task to an OPEN session.
func (s *Storage) CreateTask(ctx context.Context, ssnID model.SessionID, input []byte) (*model.Task, error) {
	s.mu.Lock()
	sess, ok := s.sessions[ssnID]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NewNotFound(string(ssnID))
	}
	if sess.State != model.SessionOpen {
		s.mu.Unlock()
		return nil, apperrors.NewInvalidState("session is not open")
	}
	s.mu.Unlock()

	taskID, err := s.eng.NextTaskID(ctx, ssnID)
	if err != nil {
		return nil, apperrors.NewStorage("allocate task id", err)
	}

	task := &model.Task{
		ID:           taskID,
		SessionID:    ssnID,
		Input:        input,
		State:        model.TaskPending,
		CreationTime: s.clock(),
	}

	s.mu.Lock()
	sess.AddTask(task)
	s.mu.Unlock()

	s.taskCond.Broadcast()

	if err := s.eng.SaveTask(ctx, task); err != nil {
		return nil, apperrors.NewStorage("save task", err)
	}
	return task, nil
}

// PopPendingTask removes and returns the oldest pending task id for a
// session. The task's own State is left unchanged.
func (s *Storage) PopPendingTask(ssnID model.SessionID) (model.TaskID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ssnID]
	if !ok {
		return "", false
	}
	return sess.PopPendingTask()
}

// GetTask returns a single task under a session.
func (s *Storage) GetTask(ssnID model.SessionID, taskID model.TaskID) (*model.Task, error) {
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
	return task, nil
}

// UpdateTaskState transitions a task to newState, optionally attaching
// output, and wakes any WatchTask callers. It sets the state directly,
// without going through the executor FSM; executor-reported outcomes go
// through CompleteTask instead.
func (s *Storage) UpdateTaskState(ctx context.Context, ssnID model.SessionID, taskID model.TaskID, newState model.TaskState, output []byte) error {
	s.mu.Lock()
	sess, ok := s.sessions[ssnID]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFound(string(ssnID))
	}
	task, ok := sess.GetTask(taskID)
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFound(string(taskID))
	}
	if task.IsCompleted() {
		s.mu.Unlock()
		return apperrors.NewInvalidState("task already completed")
	}

	sess.UpdateTaskState(taskID, newState)
	if output != nil {
		task.Output = output
	}
	if newState.IsTerminal() {
		now := s.clock()
		task.CompletionTime = &now
	}
	s.terminateIfDrained(sess)
	s.mu.Unlock()

	s.taskCond.Broadcast()
	s.sessionCond.Broadcast()

	if err := s.eng.SaveTask(ctx, task); err != nil {
		return apperrors.NewStorage("save task", err)
	}
	if err := s.eng.SaveSession(ctx, sess); err != nil {
		return apperrors.NewStorage("save session", err)
	}
	return nil
}
