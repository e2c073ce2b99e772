// Package engine defines the persistence abstraction Storage writes
// through to. Two backends implement it: an in-memory default (package
// memory) and a sqlite-backed one (package sqlite), selected by the
// FlameContext.Storage field (spec §4.A).
package engine

import (
	"context"

	"github.com/GeauxEric/flame/internal/model"
)

// Engine persists sessions, tasks and executors. Every method must be
// safe to call with Storage's lock NOT held; Storage never calls into an
// Engine while holding a lock on the in-memory maps, since engine I/O is
// a suspension point.
type Engine interface {
	// SaveSession inserts or updates a session row.
	SaveSession(ctx context.Context, s *model.Session) error
	// DeleteSession removes a session row and its tasks.
	DeleteSession(ctx context.Context, id model.SessionID) error
	// LoadSessions returns every persisted session, used at startup to
	// rebuild the in-memory index.
	LoadSessions(ctx context.Context) ([]*model.Session, error)

	// SaveTask inserts or updates a task row.
	SaveTask(ctx context.Context, t *model.Task) error

	// SaveExecutor inserts or updates an executor row.
	SaveExecutor(ctx context.Context, e *model.Executor) error
	// DeleteExecutor removes an executor row.
	DeleteExecutor(ctx context.Context, id model.ExecutorID) error
	// LoadExecutors returns every persisted executor.
	LoadExecutors(ctx context.Context) ([]*model.Executor, error)

	// NextSessionID, NextTaskID and NextExecutorID mint new identifiers.
	// Both backends use atomic counters; the sqlite backend seeds them
	// from the highest persisted id when it opens.
	NextSessionID(ctx context.Context) (model.SessionID, error)
	NextTaskID(ctx context.Context, ssn model.SessionID) (model.TaskID, error)
	NextExecutorID(ctx context.Context) (model.ExecutorID, error)

	// Close releases any resources (file handles, connection pools) held
	// by the engine.
	Close() error
}
