package scheduler

import "github.com/GeauxEric/flame/internal/model"

// Allocator ranks sessions against available idle executors and decides
// which pairs to bind this tick. Implementations must be pure: given the
// same SnapShot they return the same Decisions, with no I/O.
type Allocator interface {
	Name() string
	Allocate(snap model.SnapShot) model.Decisions
}

var registry = map[string]Allocator{}

func register(a Allocator) {
	registry[a.Name()] = a
}

// Lookup returns the named policy and whether it was found.
func Lookup(name string) (Allocator, bool) {
	a, ok := registry[name]
	return a, ok
}

func init() {
	register(priorityPolicy{})
	register(fairsharePolicy{})
}

// groupSessionsByApplication partitions a SnapShot's sessions by
// application name, so a policy never matches an executor to a session
// it can't actually run.
func groupSessionsByApplication(sessions []model.SessionSnapshot) map[string][]model.SessionSnapshot {
	out := make(map[string][]model.SessionSnapshot)
	for _, s := range sessions {
		out[s.Application] = append(out[s.Application], s)
	}
	return out
}

func groupExecutorsByApplication(execs []model.ExecutorSnapshot) map[string][]model.ExecutorSnapshot {
	out := make(map[string][]model.ExecutorSnapshot)
	for _, x := range execs {
		out[x.Application] = append(out[x.Application], x)
	}
	return out
}
