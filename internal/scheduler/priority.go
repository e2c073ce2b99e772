package scheduler

import (
	"sort"

	"github.com/GeauxEric/flame/internal/model"
)

// priorityPolicy is the default allocator: within each application,
// sessions are ranked by their shortfall (desired - allocated), largest
// first, and that application's idle executors are handed out in that
// order until either runs out. An executor only ever binds to a session
// of its own application (spec §4.F, via FlameContext.Application).
type priorityPolicy struct{}

func (priorityPolicy) Name() string { return "priority" }

func (priorityPolicy) Allocate(snap model.SnapShot) model.Decisions {
	execsByApp := groupExecutorsByApplication(snap.Executors)

	var decisions model.Decisions
	for app, sessions := range groupSessionsByApplication(snap.Sessions) {
		execs := execsByApp[app]
		if len(execs) == 0 {
			continue
		}

		sort.SliceStable(sessions, func(i, j int) bool {
			shortfallI := sessions[i].Desired - sessions[i].Allocated
			shortfallJ := sessions[j].Desired - sessions[j].Allocated
			return shortfallI > shortfallJ
		})

		idx := 0
		for _, sess := range sessions {
			shortfall := int(sess.Desired - sess.Allocated)
			if shortfall <= 0 {
				continue
			}
			for i := 0; i < shortfall && idx < len(execs); i++ {
				decisions = append(decisions, model.Decision{Session: sess.ID, Executor: execs[idx].ID})
				idx++
			}
			if idx >= len(execs) {
				break
			}
		}
	}
	return decisions
}
