package executorfsm

import (
	"time"

	"github.com/GeauxEric/flame/internal/model"
)

// idleState is an executor with no session binding. The scheduler is the
// only caller of BindSession; it picks a session with outstanding
// desired slots and an idle executor to pair them.
type idleState struct{}

func (idleState) BindSession(exec *model.Executor, sess *model.Session, now time.Time) error {
	exec.State = model.ExecutorBinding
	id := sess.ID
	exec.SessionID = &id
	sess.Allocated++
	return nil
}

func (idleState) BindSessionCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("bind_session_completed", exec)
}

func (idleState) LaunchTask(exec *model.Executor, sess *model.Session, task *model.Task, now time.Time) error {
	return illegal("launch_task", exec)
}

func (idleState) CompleteTask(exec *model.Executor, sess *model.Session, task *model.Task, result TaskResult, now time.Time) error {
	return illegal("complete_task", exec)
}

func (idleState) UnbindExecutor(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("unbind_executor", exec)
}

func (idleState) UnbindExecutorCompleted(exec *model.Executor, sess *model.Session, now time.Time) error {
	return illegal("unbind_executor_completed", exec)
}
