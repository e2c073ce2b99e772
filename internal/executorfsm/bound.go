package executorfsm

import (
	"time"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/model"
)

// boundState is an executor attached to a session and ready to run
// tasks, one at a time.
type boundState struct{}

func (boundState) BindSession(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("bind_session", exec)
}

func (boundState) BindSessionCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("bind_session_completed", exec)
}

func (boundState) LaunchTask(exec *model.Executor, sess *model.Session, task *model.Task, now time.Time) error {
	if exec.TaskID != nil {
		return apperrors.NewInvalidState("executor already has a task in flight")
	}
	if task.State != model.TaskPending {
		return apperrors.NewInvalidState("task is not pending")
	}
	id := task.ID
	exec.TaskID = &id
	task.State = model.TaskRunning
	return nil
}

func (boundState) CompleteTask(exec *model.Executor, sess *model.Session, task *model.Task, result TaskResult, now time.Time) error {
	if exec.TaskID == nil || *exec.TaskID != task.ID {
		return apperrors.NewInvalidState("task is not the executor's current task")
	}
	if result.Succeeded {
		task.State = model.TaskSucceed
	} else {
		task.State = model.TaskFailed
	}
	task.Output = result.Output
	task.CompletionTime = &now
	exec.TaskID = nil
	return nil
}

func (boundState) UnbindExecutor(exec *model.Executor, sess *model.Session, now time.Time) error {
	exec.State = model.ExecutorUnbinding
	return nil
}

func (boundState) UnbindExecutorCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("unbind_executor_completed", exec)
}
