// Package scheduler assigns idle executors to sessions with outstanding
// demand. It only binds: it does not launch tasks, and a bound executor
// pulls its pending tasks itself through Storage.NextTask. It mirrors the teacher's ticker-driven processing loop, generalized from
// one task queue to a session/executor matching problem (spec §4.F).
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/internal/storage"
)

var (
	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrNotRunning     = errors.New("scheduler is not running")
)

// Config controls the scheduler's loop.
type Config struct {
	TickInterval time.Duration
	PolicyName   string
}

// DefaultConfig returns the spec's documented defaults: a 100 ms tick
// and the "priority" policy.
func DefaultConfig() Config {
	return Config{TickInterval: 100 * time.Millisecond, PolicyName: "priority"}
}

// Scheduler periodically snapshots Storage, asks a Policy how to match
// idle executors to sessions, and applies the resulting decisions.
type Scheduler struct {
	store  *storage.Storage
	policy Allocator
	log    *logger.Logger
	config Config

	tickCount atomic.Int64
	bindCount atomic.Int64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Scheduler. An unknown PolicyName falls back to
// "priority".
func New(store *storage.Storage, config Config) *Scheduler {
	policy, ok := Lookup(config.PolicyName)
	if !ok {
		policy, _ = Lookup("priority")
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultConfig().TickInterval
	}
	return &Scheduler{
		store:  store,
		policy: policy,
		log:    logger.Default().With(zap.String("component", "scheduler")),
		config: config,
	}
}

// Start begins the scheduler's processing loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.log.Info("scheduler starting", zap.Duration("tick_interval", s.config.TickInterval))

	s.wg.Add(1)
	go s.processLoop(ctx)
	return nil
}

// Stop halts the processing loop and waits for it to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

// IsRunning reports whether the processing loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) processLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.tickCount.Add(1)

	snap := s.store.Snapshot()
	if len(snap.Sessions) == 0 || len(snap.Executors) == 0 {
		return
	}

	decisions := s.policy.Allocate(snap)
	for _, d := range decisions {
		if err := s.store.BindSession(ctx, d.Executor, d.Session); err != nil {
			s.log.WithError(err).Warn("bind failed",
				zap.String("executor_id", string(d.Executor)),
				zap.String("session_id", string(d.Session)))
			continue
		}
		s.bindCount.Add(1)
		s.log.Info("bound executor to session",
			zap.String("executor_id", string(d.Executor)),
			zap.String("session_id", string(d.Session)))
	}
}

// Stats is a point-in-time view of the scheduler's counters, exposed for
// diagnostics endpoints and tests.
type Stats struct {
	Ticks int64
	Binds int64
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks: s.tickCount.Load(),
		Binds: s.bindCount.Load(),
	}
}
