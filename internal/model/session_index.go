package model

import "time"

// NewSession builds an empty, open Session ready to accept tasks.
func NewSession(id SessionID, application string, slots map[string]string, desired int32, createdAt time.Time) *Session {
	return &Session{
		ID:           id,
		Application:  application,
		Slots:        slots,
		State:        SessionOpen,
		CreationTime: createdAt,
		Desired:      desired,
		Tasks:        make(map[TaskID]*Task),
		TasksByState: make(map[TaskState][]TaskID),
	}
}

// AddTask inserts t into the session's task map and its per-state index.
func (s *Session) AddTask(t *Task) {
	s.Tasks[t.ID] = t
	s.TasksByState[t.State] = append(s.TasksByState[t.State], t.ID)
}

// UpdateTaskState moves a task into the newState bucket, keeping
// TasksByState consistent. Returns false if the task is unknown.
func (s *Session) UpdateTaskState(id TaskID, newState TaskState) bool {
	t, ok := s.Tasks[id]
	if !ok {
		return false
	}
	// The caller may already have set t.State (the executor FSM mutates
	// the task in place), so drop the id from every bucket, not only the
	// one t.State names now.
	for state := range s.TasksByState {
		s.removeFromIndex(state, id)
	}
	t.State = newState
	s.TasksByState[newState] = append(s.TasksByState[newState], id)
	return true
}

func (s *Session) removeFromIndex(state TaskState, id TaskID) {
	bucket := s.TasksByState[state]
	for i, x := range bucket {
		if x == id {
			s.TasksByState[state] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// PopPendingTask removes and returns the oldest PENDING task id for this
// session, or false if none are pending. Storage.NextTask uses this to
// hand the next task to a bound executor that asks for work.
func (s *Session) PopPendingTask() (TaskID, bool) {
	bucket := s.TasksByState[TaskPending]
	if len(bucket) == 0 {
		return "", false
	}
	id := bucket[0]
	s.TasksByState[TaskPending] = bucket[1:]
	return id, true
}

// PendingCount returns the number of tasks still waiting to be dispatched.
func (s *Session) PendingCount() int {
	return len(s.TasksByState[TaskPending])
}

// GetTask returns the task with the given id, if present.
func (s *Session) GetTask(id TaskID) (*Task, bool) {
	t, ok := s.Tasks[id]
	return t, ok
}
