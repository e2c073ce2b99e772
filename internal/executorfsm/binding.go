package executorfsm

import (
	"time"

	"github.com/GeauxEric/flame/internal/model"
)

// bindingState is an executor that has been told which session it is
// joining but has not yet confirmed it is ready to receive tasks.
type bindingState struct{}

func (bindingState) BindSession(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("bind_session", exec)
}

func (bindingState) BindSessionCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	exec.State = model.ExecutorBound
	return nil
}

func (bindingState) LaunchTask(exec *model.Executor, sess *model.Session, task *model.Task, now time.Time) error {
	return illegal("launch_task", exec)
}

func (bindingState) CompleteTask(exec *model.Executor, sess *model.Session, task *model.Task, result TaskResult, now time.Time) error {
	return illegal("complete_task", exec)
}

func (bindingState) UnbindExecutor(exec *model.Executor, sess *model.Session, now time.Time) error {
	exec.State = model.ExecutorUnbinding
	return nil
}

func (bindingState) UnbindExecutorCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("unbind_executor_completed", exec)
}
