// Package executorfsm holds the pure transition rules for an executor's
// lifecycle (spec §4.D): IDLE -> BINDING -> BOUND -> UNBINDING -> IDLE.
// Each lifecycle state is its own small struct implementing State, a
// tagged variant rather than a heap-boxed interface hierarchy: there are
// exactly five states and ForExecutor is the only place that switches on
// model.ExecutorState.
//
// Methods mutate the model.Executor/model.Session/model.Task values
// passed to them in place and return an *apperrors.Error (InvalidState)
// when the verb is illegal in the current state. Callers (storage/fsm.go)
// own locking and persistence; this package never touches a mutex or an
// Engine.
package executorfsm

import (
	"time"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/model"
)

// TaskResult is the outcome an executor reports for a task it ran.
type TaskResult struct {
	Succeeded bool
	Output    []byte
}

// State is implemented by each of the five executor lifecycle states.
// A verb not legal in a given state returns apperrors.InvalidState.
type State interface {
	BindSession(exec *model.Executor, sess *model.Session, now time.Time) error
	BindSessionCompleted(exec *model.Executor, sess *model.Session, now time.Time) error
	LaunchTask(exec *model.Executor, sess *model.Session, task *model.Task, now time.Time) error
	CompleteTask(exec *model.Executor, sess *model.Session, task *model.Task, result TaskResult, now time.Time) error
	UnbindExecutor(exec *model.Executor, sess *model.Session, now time.Time) error
	UnbindExecutorCompleted(exec *model.Executor, sess *model.Session, now time.Time) error
}

// ForExecutor returns the State implementation for the given lifecycle
// state. An unrecognized state falls back to unknownState, which rejects
// every verb.
func ForExecutor(s model.ExecutorState) State {
	switch s {
	case model.ExecutorIdle:
		return idleState{}
	case model.ExecutorBinding:
		return bindingState{}
	case model.ExecutorBound:
		return boundState{}
	case model.ExecutorUnbinding:
		return unbindingState{}
	default:
		return unknownState{}
	}
}

func illegal(verb string, exec *model.Executor) error {
	return apperrors.NewInvalidState(verb + " is not valid while executor is " + string(exec.State))
}
