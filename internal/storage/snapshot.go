package storage

import "github.com/GeauxEric/flame/internal/model"

// Snapshot builds the scheduler's per-tick input: every open session
// with outstanding demand or pending work, and every idle executor. It
// copies just enough state that the allocator can run its ranking
// without holding s.mu.
func (s *Storage) Snapshot() model.SnapShot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap model.SnapShot
	for _, sess := range s.sessions {
		if sess.State != model.SessionOpen {
			continue
		}
		if sess.Allocated >= sess.Desired && sess.PendingCount() == 0 {
			continue
		}
		snap.Sessions = append(snap.Sessions, model.SessionSnapshot{
			ID:          sess.ID,
			Application: sess.Application,
			Desired:     sess.Desired,
			Allocated:   sess.Allocated,
			Pending:     sess.PendingCount(),
		})
	}
	for _, exec := range s.executors {
		if exec.State != model.ExecutorIdle {
			continue
		}
		snap.Executors = append(snap.Executors, model.ExecutorSnapshot{ID: exec.ID, Application: exec.Application})
	}
	return snap
}
