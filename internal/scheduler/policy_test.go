package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeauxEric/flame/internal/model"
)

func TestLookup(t *testing.T) {
	p, ok := Lookup("priority")
	require.True(t, ok)
	assert.Equal(t, "priority", p.Name())

	p, ok = Lookup("fairshare")
	require.True(t, ok)
	assert.Equal(t, "fairshare", p.Name())

	_, ok = Lookup("nonexistent")
	assert.False(t, ok)
}

func TestPriorityPolicy_RanksByShortfall(t *testing.T) {
	snap := model.SnapShot{
		Sessions: []model.SessionSnapshot{
			{ID: "small", Application: "echo", Desired: 1, Allocated: 0},
			{ID: "big", Application: "echo", Desired: 3, Allocated: 0},
		},
		Executors: []model.ExecutorSnapshot{
			{ID: "exec-1", Application: "echo"},
		},
	}

	decisions := priorityPolicy{}.Allocate(snap)
	require.Len(t, decisions, 1)
	assert.Equal(t, model.SessionID("big"), decisions[0].Session)
}

func TestPriorityPolicy_NeverCrossesApplications(t *testing.T) {
	snap := model.SnapShot{
		Sessions: []model.SessionSnapshot{
			{ID: "ssn-a", Application: "render", Desired: 1, Allocated: 0},
		},
		Executors: []model.ExecutorSnapshot{
			{ID: "exec-a", Application: "echo"},
		},
	}

	decisions := priorityPolicy{}.Allocate(snap)
	assert.Empty(t, decisions)
}

func TestPriorityPolicy_FillsMultipleSessionsWithinApplication(t *testing.T) {
	snap := model.SnapShot{
		Sessions: []model.SessionSnapshot{
			{ID: "ssn-a", Application: "echo", Desired: 1, Allocated: 0},
			{ID: "ssn-b", Application: "echo", Desired: 1, Allocated: 0},
		},
		Executors: []model.ExecutorSnapshot{
			{ID: "exec-1", Application: "echo"},
			{ID: "exec-2", Application: "echo"},
		},
	}

	decisions := priorityPolicy{}.Allocate(snap)
	require.Len(t, decisions, 2)

	sessions := map[model.SessionID]bool{}
	for _, d := range decisions {
		sessions[d.Session] = true
	}
	assert.True(t, sessions["ssn-a"])
	assert.True(t, sessions["ssn-b"])
}

func TestFairsharePolicy_PrefersLeastServedSession(t *testing.T) {
	snap := model.SnapShot{
		Sessions: []model.SessionSnapshot{
			{ID: "served", Application: "echo", Desired: 4, Allocated: 3},
			{ID: "starved", Application: "echo", Desired: 4, Allocated: 0},
		},
		Executors: []model.ExecutorSnapshot{
			{ID: "exec-1", Application: "echo"},
		},
	}

	decisions := fairsharePolicy{}.Allocate(snap)
	require.Len(t, decisions, 1)
	assert.Equal(t, model.SessionID("starved"), decisions[0].Session)
}

func TestFairsharePolicy_NeverCrossesApplications(t *testing.T) {
	snap := model.SnapShot{
		Sessions: []model.SessionSnapshot{
			{ID: "ssn-a", Application: "render", Desired: 1, Allocated: 0},
		},
		Executors: []model.ExecutorSnapshot{
			{ID: "exec-a", Application: "echo"},
		},
	}

	decisions := fairsharePolicy{}.Allocate(snap)
	assert.Empty(t, decisions)
}

func TestGroupSessionsByApplication(t *testing.T) {
	sessions := []model.SessionSnapshot{
		{ID: "a", Application: "echo"},
		{ID: "b", Application: "render"},
		{ID: "c", Application: "echo"},
	}
	grouped := groupSessionsByApplication(sessions)
	assert.Len(t, grouped["echo"], 2)
	assert.Len(t, grouped["render"], 1)
}

func TestGroupExecutorsByApplication(t *testing.T) {
	execs := []model.ExecutorSnapshot{
		{ID: "x1", Application: "echo"},
		{ID: "x2", Application: "echo"},
	}
	grouped := groupExecutorsByApplication(execs)
	assert.Len(t, grouped["echo"], 2)
	assert.Empty(t, grouped["render"])
}
