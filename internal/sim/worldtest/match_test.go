package worldtest

import (
	"testing"

	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

func TestDeliverTaskThroughProtocol(t *testing.T) {
	h := NewHarness(t, smallConfig(20), loadCatalogs(t))
	mustTeleport(t, h, "agentB1", 2, 2)
	mustTeleport(t, h, "agentA1", 10, 10)
	if !h.W.DebugSetRole("agentA1", "worker") {
		t.Fatalf("set role")
	}
	if !h.W.DebugCreateDispenser(grid.Position{X: 10, Y: 11}, "b0") {
		t.Fatalf("create dispenser")
	}
	h.W.DebugAddZone(grid.ZoneGoal, grid.Position{X: 10, Y: 10}, 1)
	if err := h.W.DebugCreateTask("deliver", 15, 1, map[grid.Position]string{{X: 0, Y: 1}: "b0"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	h.StepNoop()

	p := h.Percept("agentA1")
	if p.Role != "worker" || len(p.Tasks) != 1 || p.Tasks[0].Reward != 10 {
		t.Fatalf("percept role=%s tasks=%+v", p.Role, p.Tasks)
	}

	for _, step := range []struct {
		action string
		param  string
	}{{"request", "s"}, {"attach", "s"}, {"submit", "deliver"}} {
		p = h.Step("agentA1", step.action, step.param)
		if p.LastAction != step.action || p.LastActionResult != protocol.ResultSuccess {
			t.Fatalf("%s: result=%s", step.action, p.LastActionResult)
		}
	}
	if p.Score != 10 || len(p.Tasks) != 0 || len(p.Attached) != 0 {
		t.Fatalf("after submit score=%d tasks=%d attached=%v", p.Score, len(p.Tasks), p.Attached)
	}
	if other := h.Percept("agentB1"); other.Score != 0 || other.LastAction != protocol.ActionNoAction {
		t.Fatalf("agentB1 percept score=%d action=%s", other.Score, other.LastAction)
	}
}

func TestSimEndRanksTeams(t *testing.T) {
	h := NewHarness(t, smallConfig(3), loadCatalogs(t))
	if start := h.sessions["agentA1"].Start; start.Percept.Steps != 3 || start.Percept.TeamSize != 1 {
		t.Fatalf("sim start %+v", start.Percept)
	}
	for i := 0; i < 3; i++ {
		if _, ok := h.SimEnd("agentA1"); ok {
			t.Fatalf("sim end before step %d", i)
		}
		h.StepNoop()
	}
	a, okA := h.SimEnd("agentA1")
	b, okB := h.SimEnd("agentB1")
	if !okA || !okB {
		t.Fatalf("sim end missing")
	}
	if a.Ranking != 1 || b.Ranking != 2 || a.Score != 0 {
		t.Fatalf("rankings A=%+v B=%+v", a, b)
	}
}
