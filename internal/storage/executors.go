package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/model"
)

// RegisterExecutor self-registers a new executor in IDLE state for the
// named application. The caller (the gateway adapter) is responsible for
// checking application against the configured FlameContext before
// calling this; Storage itself does not depend on config.
func (s *Storage) RegisterExecutor(ctx context.Context, application string, slots map[string]string) (*model.Executor, error) {
	id, err := s.eng.NextExecutorID(ctx)
	if err != nil {
		return nil, apperrors.NewStorage("allocate executor id", err)
	}

	x := &model.Executor{
		ID:           id,
		Application:  application,
		Slots:        slots,
		State:        model.ExecutorIdle,
		CreationTime: s.clock(),
	}

	s.mu.Lock()
	s.executors[id] = x
	s.mu.Unlock()

	if err := s.eng.SaveExecutor(ctx, x); err != nil {
		s.log.WithError(err).Error("save executor failed", zap.String("executor_id", string(id)))
		return nil, apperrors.NewStorage("save executor", err)
	}
	return x, nil
}

// GetExecutor returns the executor with the given id.
func (s *Storage) GetExecutor(id model.ExecutorID) (*model.Executor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	x, ok := s.executors[id]
	if !ok {
		return nil, apperrors.NewNotFound(string(id))
	}
	return x, nil
}

// ListExecutors returns every known executor.
func (s *Storage) ListExecutors() []*model.Executor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Executor, 0, len(s.executors))
	for _, x := range s.executors {
		out = append(out, x)
	}
	return out
}
