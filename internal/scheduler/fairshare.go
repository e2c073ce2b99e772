package scheduler

import (
	"sort"

	"github.com/GeauxEric/flame/internal/model"
)

// fairsharePolicy ranks sessions, within each application, by how
// under-served they are relative to their own demand (allocated/desired
// ascending), so a session with few slots isn't starved behind one large
// session that keeps growing its desired count. Executors only bind
// within their own application, same as priorityPolicy.
type fairsharePolicy struct{}

func (fairsharePolicy) Name() string { return "fairshare" }

func (fairsharePolicy) Allocate(snap model.SnapShot) model.Decisions {
	execsByApp := groupExecutorsByApplication(snap.Executors)

	ratio := func(s model.SessionSnapshot) float64 {
		if s.Desired == 0 {
			return 1
		}
		return float64(s.Allocated) / float64(s.Desired)
	}

	var decisions model.Decisions
	for app, sessions := range groupSessionsByApplication(snap.Sessions) {
		execs := execsByApp[app]
		if len(execs) == 0 {
			continue
		}

		sort.SliceStable(sessions, func(i, j int) bool {
			return ratio(sessions[i]) < ratio(sessions[j])
		})

		idx := 0
		for _, sess := range sessions {
			shortfall := int(sess.Desired - sess.Allocated)
			if shortfall <= 0 {
				continue
			}
			if idx >= len(execs) {
				break
			}
			decisions = append(decisions, model.Decision{Session: sess.ID, Executor: execs[idx].ID})
			idx++
		}
	}
	return decisions
}
