package executorfsm

import (
	"time"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/model"
)

// unbindingState is an executor leaving its current session; it is
// waiting for the executor process to confirm it has released its slot.
type unbindingState struct{}

func (unbindingState) BindSession(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("bind_session", exec)
}

func (unbindingState) BindSessionCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("bind_session_completed", exec)
}

func (unbindingState) LaunchTask(exec *model.Executor, sess *model.Session, task *model.Task, now time.Time) error {
	return illegal("launch_task", exec)
}

// CompleteTask finishes a task that was already in flight when the
// executor was asked to unbind. As in boundState, but never re-launches:
// the executor leaving Unbinding is only ever driven by
// unbind_executor_completed from here on.
func (unbindingState) CompleteTask(exec *model.Executor, sess *model.Session, task *model.Task, result TaskResult, now time.Time) error {
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

func (unbindingState) UnbindExecutor(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("unbind_executor", exec)
}

func (unbindingState) UnbindExecutorCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	exec.State = model.ExecutorIdle
	exec.SessionID = nil
	if sess != nil && sess.Allocated > 0 {
		sess.Allocated--
	}
	return nil
}
