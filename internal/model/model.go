// Package model defines the domain types shared by storage, the executor
// state machine and the scheduler: sessions, tasks and executors.
package model

import "time"

// SessionID, TaskID and ExecutorID are opaque string identifiers assigned
// by Storage at creation time.
type SessionID string
type TaskID string
type ExecutorID string

// SessionState is the lifecycle state of a Session (spec §3).
type SessionState string

const (
	SessionOpen      SessionState = "OPEN"
	SessionClosed    SessionState = "CLOSED"
	SessionTerminated SessionState = "TERMINATED"
)

// TaskState is the lifecycle state of a Task (spec §3).
type TaskState string

const (
	TaskPending  TaskState = "PENDING"
	TaskRunning  TaskState = "RUNNING"
	TaskSucceed  TaskState = "SUCCEED"
	TaskFailed   TaskState = "FAILED"
	TaskAborting TaskState = "ABORTING"
	TaskAborted  TaskState = "ABORTED"
)

// IsTerminal reports whether a task in this state will never change state
// again. Aborting is deliberately excluded: it is the in-flight leg of
// Running->Aborting->Aborted, not a resting state.
func (s TaskState) IsTerminal() bool {
	return s == TaskSucceed || s == TaskFailed || s == TaskAborted
}

// ExecutorState mirrors the tagged-variant states of the executor FSM
// (spec §4.D): Idle, Binding, Bound, Unbinding.
type ExecutorState string

const (
	ExecutorIdle      ExecutorState = "IDLE"
	ExecutorBinding   ExecutorState = "BINDING"
	ExecutorBound     ExecutorState = "BOUND"
	ExecutorUnbinding ExecutorState = "UNBINDING"
	ExecutorUnknown   ExecutorState = "UNKNOWN"
)

// Session is a bounded unit of work: an application plus a desired slot
// count, and the tasks submitted under it.
type Session struct {
	ID             SessionID
	Application    string
	Slots          map[string]string
	State          SessionState
	CreationTime   time.Time
	CompletionTime *time.Time

	Desired   int32
	Allocated int32

	Tasks          map[TaskID]*Task
	TasksByState   map[TaskState][]TaskID
}

// Task is a single unit of work submitted to a Session.
type Task struct {
	ID             TaskID
	SessionID      SessionID
	Input          []byte
	Output         []byte
	State          TaskState
	CreationTime   time.Time
	CompletionTime *time.Time
}

// IsCompleted reports whether the task has reached a terminal state.
func (t *Task) IsCompleted() bool {
	return t.State.IsTerminal()
}

// Executor is a worker process bound to at most one Session at a time.
// Application names which configured Application it can run tasks for;
// the scheduler only binds it to sessions of the same application.
type Executor struct {
	ID           ExecutorID
	Application  string
	Slots        map[string]string
	State        ExecutorState
	SessionID    *SessionID
	TaskID       *TaskID
	CreationTime time.Time
}
