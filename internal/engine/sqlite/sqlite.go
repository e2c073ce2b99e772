// Package sqlite implements the durable Engine backend ("sqlite" in
// FlameContext.Storage), grounded on the teacher's jmoiron/sqlx +
// mattn/go-sqlite3 repository pattern.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/model"
)

// Engine is a sqlx.DB-backed implementation of engine.Engine.
type Engine struct {
	db *sqlx.DB

	sessionSeq  atomic.Int64
	taskSeq     atomic.Int64
	executorSeq atomic.Int64
}

// Open opens (creating if necessary) the sqlite database at path and
// initializes its schema.
func Open(path string) (*Engine, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, apperrors.NewStorage("open sqlite", err)
	}
	e := &Engine{db: db}
	if err := e.initSchema(); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStorage("init schema", err)
	}
	if err := e.loadSequences(); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStorage("load sequences", err)
	}
	return e, nil
}

func (e *Engine) initSchema() error {
	_, err := e.db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		application TEXT NOT NULL,
		slots TEXT DEFAULT '{}',
		state TEXT NOT NULL DEFAULT 'OPEN',
		creation_time TIMESTAMP NOT NULL,
		completion_time TIMESTAMP,
		desired INTEGER NOT NULL DEFAULT 0,
		allocated INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS tasks (
		ssn_id TEXT NOT NULL,
		id TEXT NOT NULL,
		input BLOB,
		output BLOB,
		state TEXT NOT NULL DEFAULT 'PENDING',
		creation_time TIMESTAMP NOT NULL,
		completion_time TIMESTAMP,
		PRIMARY KEY (ssn_id, id),
		FOREIGN KEY (ssn_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_ssn_id ON tasks(ssn_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_state ON tasks(ssn_id, state);

	CREATE TABLE IF NOT EXISTS executors (
		id TEXT PRIMARY KEY,
		application TEXT NOT NULL DEFAULT '',
		slots TEXT DEFAULT '{}',
		state TEXT NOT NULL DEFAULT 'IDLE',
		session_id TEXT DEFAULT '',
		task_id TEXT DEFAULT '',
		creation_time TIMESTAMP NOT NULL
	);
	`)
	if err != nil {
		return err
	}
	// best-effort migration for databases created before application was added
	_, _ = e.db.Exec(`ALTER TABLE executors ADD COLUMN application TEXT NOT NULL DEFAULT ''`)
	return nil
}

func (e *Engine) loadSequences() error {
	var maxSsn, maxTask, maxExec sql.NullInt64
	if err := e.db.Get(&maxSsn, `SELECT MAX(CAST(SUBSTR(id, 5) AS INTEGER)) FROM sessions WHERE id LIKE 'ssn-%'`); err != nil {
		return err
	}
	if err := e.db.Get(&maxTask, `SELECT MAX(CAST(SUBSTR(id, 6) AS INTEGER)) FROM tasks WHERE id LIKE 'task-%'`); err != nil {
		return err
	}
	if err := e.db.Get(&maxExec, `SELECT MAX(CAST(SUBSTR(id, 10) AS INTEGER)) FROM executors WHERE id LIKE 'executor-%'`); err != nil {
		return err
	}
	e.sessionSeq.Store(maxSsn.Int64)
	e.taskSeq.Store(maxTask.Int64)
	e.executorSeq.Store(maxExec.Int64)
	return nil
}

type sessionRow struct {
	ID             string         `db:"id"`
	Application    string         `db:"application"`
	Slots          string         `db:"slots"`
	State          string         `db:"state"`
	CreationTime   time.Time      `db:"creation_time"`
	CompletionTime sql.NullTime   `db:"completion_time"`
	Desired        int32          `db:"desired"`
	Allocated      int32          `db:"allocated"`
}

type taskRow struct {
	SsnID          string       `db:"ssn_id"`
	ID             string       `db:"id"`
	Input          []byte       `db:"input"`
	Output         []byte       `db:"output"`
	State          string       `db:"state"`
	CreationTime   time.Time    `db:"creation_time"`
	CompletionTime sql.NullTime `db:"completion_time"`
}

type executorRow struct {
	ID           string    `db:"id"`
	Application  string    `db:"application"`
	Slots        string    `db:"slots"`
	State        string    `db:"state"`
	SessionID    string    `db:"session_id"`
	TaskID       string    `db:"task_id"`
	CreationTime time.Time `db:"creation_time"`
}

func (e *Engine) SaveSession(ctx context.Context, s *model.Session) error {
	slots, err := json.Marshal(s.Slots)
	if err != nil {
		return apperrors.NewInternal("marshal slots", err)
	}
	row := sessionRow{
		ID:           string(s.ID),
		Application:  s.Application,
		Slots:        string(slots),
		State:        string(s.State),
		CreationTime: s.CreationTime,
		Desired:      s.Desired,
		Allocated:    s.Allocated,
	}
	if s.CompletionTime != nil {
		row.CompletionTime = sql.NullTime{Time: *s.CompletionTime, Valid: true}
	}
	_, err = e.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, application, slots, state, creation_time, completion_time, desired, allocated)
		VALUES (:id, :application, :slots, :state, :creation_time, :completion_time, :desired, :allocated)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			completion_time = excluded.completion_time,
			desired = excluded.desired,
			allocated = excluded.allocated
	`, row)
	if err != nil {
		return apperrors.NewStorage("save session", err)
	}
	return nil
}

func (e *Engine) DeleteSession(ctx context.Context, id model.SessionID) error {
	if _, err := e.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, string(id)); err != nil {
		return apperrors.NewStorage("delete session", err)
	}
	return nil
}

func (e *Engine) LoadSessions(ctx context.Context) ([]*model.Session, error) {
	var rows []sessionRow
	if err := e.db.SelectContext(ctx, &rows, `SELECT * FROM sessions`); err != nil {
		return nil, apperrors.NewStorage("load sessions", err)
	}

	sessions := make(map[model.SessionID]*model.Session, len(rows))
	out := make([]*model.Session, 0, len(rows))
	for _, r := range rows {
		var slots map[string]string
		_ = json.Unmarshal([]byte(r.Slots), &slots)
		s := &model.Session{
			ID:           model.SessionID(r.ID),
			Application:  r.Application,
			Slots:        slots,
			State:        model.SessionState(r.State),
			CreationTime: r.CreationTime,
			Desired:      r.Desired,
			Allocated:    r.Allocated,
			Tasks:        make(map[model.TaskID]*model.Task),
			TasksByState: make(map[model.TaskState][]model.TaskID),
		}
		if r.CompletionTime.Valid {
			t := r.CompletionTime.Time
			s.CompletionTime = &t
		}
		sessions[s.ID] = s
		out = append(out, s)
	}

	var taskRows []taskRow
	if err := e.db.SelectContext(ctx, &taskRows, `SELECT * FROM tasks`); err != nil {
		return nil, apperrors.NewStorage("load tasks", err)
	}
	for _, r := range taskRows {
		s, ok := sessions[model.SessionID(r.SsnID)]
		if !ok {
			continue
		}
		t := &model.Task{
			ID:           model.TaskID(r.ID),
			SessionID:    s.ID,
			Input:        r.Input,
			Output:       r.Output,
			State:        model.TaskState(r.State),
			CreationTime: r.CreationTime,
		}
		if r.CompletionTime.Valid {
			ct := r.CompletionTime.Time
			t.CompletionTime = &ct
		}
		s.AddTask(t)
	}

	return out, nil
}

func (e *Engine) SaveTask(ctx context.Context, t *model.Task) error {
	row := taskRow{
		SsnID:        string(t.SessionID),
		ID:           string(t.ID),
		Input:        t.Input,
		Output:       t.Output,
		State:        string(t.State),
		CreationTime: t.CreationTime,
	}
	if t.CompletionTime != nil {
		row.CompletionTime = sql.NullTime{Time: *t.CompletionTime, Valid: true}
	}
	_, err := e.db.NamedExecContext(ctx, `
		INSERT INTO tasks (ssn_id, id, input, output, state, creation_time, completion_time)
		VALUES (:ssn_id, :id, :input, :output, :state, :creation_time, :completion_time)
		ON CONFLICT(ssn_id, id) DO UPDATE SET
			output = excluded.output,
			state = excluded.state,
			completion_time = excluded.completion_time
	`, row)
	if err != nil {
		return apperrors.NewStorage("save task", err)
	}
	return nil
}

func (e *Engine) SaveExecutor(ctx context.Context, x *model.Executor) error {
	slots, err := json.Marshal(x.Slots)
	if err != nil {
		return apperrors.NewInternal("marshal slots", err)
	}
	row := executorRow{
		ID:           string(x.ID),
		Application:  x.Application,
		Slots:        string(slots),
		State:        string(x.State),
		CreationTime: x.CreationTime,
	}
	if x.SessionID != nil {
		row.SessionID = string(*x.SessionID)
	}
	if x.TaskID != nil {
		row.TaskID = string(*x.TaskID)
	}
	_, err = e.db.NamedExecContext(ctx, `
		INSERT INTO executors (id, application, slots, state, session_id, task_id, creation_time)
		VALUES (:id, :application, :slots, :state, :session_id, :task_id, :creation_time)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			session_id = excluded.session_id,
			task_id = excluded.task_id
	`, row)
	if err != nil {
		return apperrors.NewStorage("save executor", err)
	}
	return nil
}

func (e *Engine) DeleteExecutor(ctx context.Context, id model.ExecutorID) error {
	if _, err := e.db.ExecContext(ctx, `DELETE FROM executors WHERE id = ?`, string(id)); err != nil {
		return apperrors.NewStorage("delete executor", err)
	}
	return nil
}

func (e *Engine) LoadExecutors(ctx context.Context) ([]*model.Executor, error) {
	var rows []executorRow
	if err := e.db.SelectContext(ctx, &rows, `SELECT * FROM executors`); err != nil {
		return nil, apperrors.NewStorage("load executors", err)
	}
	out := make([]*model.Executor, 0, len(rows))
	for _, r := range rows {
		var slots map[string]string
		_ = json.Unmarshal([]byte(r.Slots), &slots)
		x := &model.Executor{
			ID:           model.ExecutorID(r.ID),
			Application:  r.Application,
			Slots:        slots,
			State:        model.ExecutorState(r.State),
			CreationTime: r.CreationTime,
		}
		if r.SessionID != "" {
			sid := model.SessionID(r.SessionID)
			x.SessionID = &sid
		}
		if r.TaskID != "" {
			tid := model.TaskID(r.TaskID)
			x.TaskID = &tid
		}
		out = append(out, x)
	}
	return out, nil
}

func (e *Engine) NextSessionID(_ context.Context) (model.SessionID, error) {
	n := e.sessionSeq.Add(1)
	return model.SessionID(fmt.Sprintf("ssn-%d", n)), nil
}

func (e *Engine) NextTaskID(_ context.Context, _ model.SessionID) (model.TaskID, error) {
	n := e.taskSeq.Add(1)
	return model.TaskID(fmt.Sprintf("task-%d", n)), nil
}

func (e *Engine) NextExecutorID(_ context.Context) (model.ExecutorID, error) {
	n := e.executorSeq.Add(1)
	return model.ExecutorID(fmt.Sprintf("executor-%d", n)), nil
}

// Close closes the underlying connection pool.
func (e *Engine) Close() error {
	return e.db.Close()
}
