package executorfsm

import (
	"time"

	"github.com/GeauxEric/flame/internal/model"
)

// unknownState is the fallback for an executor whose State field doesn't
// match any of the four known lifecycle states (a corrupted record, or a
// future state this binary doesn't know about yet). Every verb is
// rejected.
type unknownState struct{}

func (unknownState) BindSession(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("bind_session", exec)
}

func (unknownState) BindSessionCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("bind_session_completed", exec)
}

func (unknownState) LaunchTask(exec *model.Executor, sess *model.Session, task *model.Task, now time.Time) error {
	return illegal("launch_task", exec)
}

func (unknownState) CompleteTask(exec *model.Executor, sess *model.Session, task *model.Task, result TaskResult, now time.Time) error {
	return illegal("complete_task", exec)
}

func (unknownState) UnbindExecutor(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("unbind_executor", exec)
}

func (unknownState) UnbindExecutorCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("unbind_executor_completed", exec)
}
