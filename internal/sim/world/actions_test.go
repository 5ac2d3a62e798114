package world

import (
	"testing"

	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
	"github.com/agentcontest/massim-2022/internal/sim/tuning"
)

func TestMoveHonorsSpeed(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	place(t, w, "agentA2", 5, 5)
	setRole(t, w, "agentA2", "explorer")

	stepWith(w, do("agentA1", "move", "n", "n"), do("agentA2", "move", "e", "e", "s"))
	expectResult(t, w, "agentA1", protocol.ResultPartialSuccess)
	expectPos(t, w, "agentA1", 10, 9)
	expectResult(t, w, "agentA2", protocol.ResultSuccess)
	expectPos(t, w, "agentA2", 7, 6)
}

func TestMoveFailures(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	place(t, w, "agentA2", 5, 5)
	place(t, w, "agentB1", 15, 15)
	w.DebugCreateObstacle(grid.Position{X: 10, Y: 9})

	stepWith(w, do("agentA1", "move", "n"), do("agentA2", "move", "x"), do("agentB1", "move"))
	expectResult(t, w, "agentA1", protocol.ResultFailedPath)
	expectPos(t, w, "agentA1", 10, 10)
	expectResult(t, w, "agentA2", protocol.ResultFailedParameter)
	expectResult(t, w, "agentB1", protocol.ResultFailedParameter)
}

func TestMoveWrapsAroundTheTorus(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 0, 10)
	stepWith(w, do("agentA1", "move", "w"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	expectPos(t, w, "agentA1", 29, 10)
}

func TestMissingStaleAndDuplicateActions(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)

	stale := ActionEnvelope{Agent: "agentA1", Act: protocol.ActionMsg{Step: 5, Action: "move", Params: []string{"n"}}}
	first := ActionEnvelope{Agent: "agentA2", Act: protocol.ActionMsg{Step: 0, Action: "skip"}}
	second := ActionEnvelope{Agent: "agentA2", Act: protocol.ActionMsg{Step: 0, Action: "move", Params: []string{"n"}}}
	w.StepOnce(nil, nil, []ActionEnvelope{stale, first, second})

	a1, _ := w.Entity("agentA1")
	if a1.LastAction() != protocol.ActionNoAction || a1.LastResult() != protocol.ResultSuccess {
		t.Fatalf("stale action should become no_action: %s/%s", a1.LastAction(), a1.LastResult())
	}
	expectPos(t, w, "agentA1", 10, 10)
	a2, _ := w.Entity("agentA2")
	if a2.LastAction() != protocol.ActionSkip {
		t.Fatalf("first action should win, got %s", a2.LastAction())
	}
	b2, _ := w.Entity("agentB2")
	if b2.LastAction() != protocol.ActionNoAction {
		t.Fatalf("missing action should become no_action, got %s", b2.LastAction())
	}
}

func TestRoleStatusAndRandomFailures(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	place(t, w, "agentA2", 5, 5)
	w.byName["agentA2"].DecreaseEnergy(1000)

	stepWith(w, do("agentA1", "attach", "s"), do("agentA2", "skip"), do("agentB1", "dance"))
	expectResult(t, w, "agentA1", protocol.ResultFailedRole)
	expectResult(t, w, "agentA2", protocol.ResultFailedStatus)
	expectResult(t, w, "agentB1", protocol.ResultFailedRole)

	w = newTestWorld(t, func(r *tuning.Tuning) { r.RandomFail = 100 })
	stepWith(w, do("agentA1", "skip"))
	expectResult(t, w, "agentA1", protocol.ResultFailedRandom)
	expectResult(t, w, "agentB2", protocol.ResultFailedRandom)
}

func TestUnknownActionForPermittedName(t *testing.T) {
	w := newTestWorld(t, nil)
	e := w.byName["agentA1"]
	r := e.Role()
	r.Actions = []string{"dance"}
	e.setRole(r)

	stepWith(w, do("agentA1", "dance"))
	expectResult(t, w, "agentA1", protocol.ResultUnknownAction)
}

func TestRequestAttachRotateDetach(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	setRole(t, w, "agentA1", "worker")
	if !w.DebugCreateDispenser(grid.Position{X: 10, Y: 11}, "b0") {
		t.Fatalf("create dispenser")
	}

	stepWith(w, do("agentA1", "request", "s"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	b, ok := w.grid.BlockAt(grid.Position{X: 10, Y: 11})
	if !ok || b.Type != "b0" {
		t.Fatalf("requested block missing")
	}

	stepWith(w, do("agentA1", "request", "s"))
	expectResult(t, w, "agentA1", protocol.ResultFailedBlocked)
	stepWith(w, do("agentA1", "request", "n"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)

	stepWith(w, do("agentA1", "attach", "s"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	if w.byName["agentA1"].Carried() != 1 {
		t.Fatalf("carried=%d want 1", w.byName["agentA1"].Carried())
	}
	p, _ := w.Percept("agentA1")
	if len(p.Attached) != 1 || p.Attached[0] != [2]int{0, 1} {
		t.Fatalf("percept attached=%v", p.Attached)
	}

	stepWith(w, do("agentA1", "rotate", "cw"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	if o, _ := w.grid.Object(b.ID); o.Pos != (grid.Position{X: 9, Y: 10}) {
		t.Fatalf("block at %v after cw rotation, want (9,10)", o.Pos)
	}

	w.DebugCreateObstacle(grid.Position{X: 10, Y: 9})
	stepWith(w, do("agentA1", "rotate", "cw"))
	expectResult(t, w, "agentA1", protocol.ResultFailed)
	stepWith(w, do("agentA1", "rotate", "left"))
	expectResult(t, w, "agentA1", protocol.ResultFailedParameter)

	stepWith(w, do("agentA1", "detach", "w"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	if w.byName["agentA1"].Carried() != 0 {
		t.Fatalf("block still attached")
	}
	stepWith(w, do("agentA1", "detach", "w"))
	expectResult(t, w, "agentA1", protocol.ResultFailed)
}

func TestRotateAcrossTheSeam(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 15, 0)
	b := block(t, w, 15, 29, "b0")
	attach(t, w, 15, 0, 15, 29)

	stepWith(w, do("agentA1", "rotate", "cw"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	if o, _ := w.grid.Object(b.ID); o.Pos != (grid.Position{X: 16, Y: 0}) {
		t.Fatalf("block at %v after cw rotation, want (16,0)", o.Pos)
	}
	p, _ := w.Percept("agentA1")
	if len(p.Attached) != 1 || p.Attached[0] != [2]int{1, 0} {
		t.Fatalf("percept attached=%v", p.Attached)
	}

	stepWith(w, do("agentA1", "rotate", "ccw"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	if o, _ := w.grid.Object(b.ID); o.Pos != (grid.Position{X: 15, Y: 29}) {
		t.Fatalf("block at %v after ccw rotation, want (15,29)", o.Pos)
	}

	w.DebugCreateObstacle(grid.Position{X: 14, Y: 0})
	stepWith(w, do("agentA1", "rotate", "ccw"))
	expectResult(t, w, "agentA1", protocol.ResultFailed)
	if o, _ := w.grid.Object(b.ID); o.Pos != (grid.Position{X: 15, Y: 29}) {
		t.Fatalf("failed rotation moved the block to %v", o.Pos)
	}
	expectPos(t, w, "agentA1", 15, 0)
}

func TestAttachRejectsOpponents(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	place(t, w, "agentB1", 10, 12)
	setRole(t, w, "agentA1", "worker")
	setRole(t, w, "agentB1", "worker")
	block(t, w, 10, 11, "b0")
	attach(t, w, 10, 11, 10, 12)

	stepWith(w, do("agentA1", "attach", "s"))
	expectResult(t, w, "agentA1", protocol.ResultFailed)

	place(t, w, "agentB2", 11, 10)
	stepWith(w, do("agentA1", "attach", "e"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)
}

func TestSubmitTask(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	setRole(t, w, "agentA1", "worker")
	block(t, w, 10, 11, "b0")
	block(t, w, 10, 12, "b1")
	attach(t, w, 10, 10, 10, 11)
	attach(t, w, 10, 11, 10, 12)
	reqs := map[grid.Position]string{{X: 0, Y: 1}: "b0", {X: 0, Y: 2}: "b1"}
	if err := w.DebugCreateTask("t1", 50, 1, reqs); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := w.DebugCreateTask("wrong", 50, 1, map[grid.Position]string{{X: 0, Y: 1}: "b1"}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	stepWith(w, do("agentA1", "submit", "t1"))
	expectResult(t, w, "agentA1", protocol.ResultFailed)

	w.DebugAddZone(grid.ZoneGoal, grid.Position{X: 10, Y: 10}, 1)
	stepWith(w, do("agentA1", "submit", "nope"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)
	stepWith(w, do("agentA1", "submit", "wrong"))
	expectResult(t, w, "agentA1", protocol.ResultFailed)

	stepWith(w, do("agentA1", "submit", "t1"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	team, _ := w.Team("A")
	if team.Score != 40 {
		t.Fatalf("score=%d want 40", team.Score)
	}
	if len(w.grid.Blocks()) != 0 {
		t.Fatalf("submitted blocks should be destroyed")
	}
	task, _ := w.Task("t1")
	if task.Completed != 1 || task.Open(w.step) {
		t.Fatalf("task should be completed: %+v", task)
	}
	p, _ := w.Percept("agentA1")
	if p.Score != 40 {
		t.Fatalf("percept score=%d", p.Score)
	}
	for _, ti := range p.Tasks {
		if ti.Name == "t1" {
			t.Fatalf("completed task still listed")
		}
	}

	stepWith(w, do("agentA1", "submit", "t1"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)
}

func TestSubmitExpiredTask(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	setRole(t, w, "agentA1", "worker")
	block(t, w, 10, 11, "b0")
	attach(t, w, 10, 10, 10, 11)
	w.DebugAddZone(grid.ZoneGoal, grid.Position{X: 10, Y: 10}, 1)
	if err := w.DebugCreateTask("t1", 0, 1, map[grid.Position]string{{X: 0, Y: 1}: "b0"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	stepWith(w)
	stepWith(w, do("agentA1", "submit", "t1"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)
}

func TestConnectHandshake(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	place(t, w, "agentA2", 10, 13)
	setRole(t, w, "agentA1", "worker")
	setRole(t, w, "agentA2", "worker")
	b1 := block(t, w, 10, 11, "b0")
	b2 := block(t, w, 10, 12, "b1")
	attach(t, w, 10, 10, 10, 11)
	attach(t, w, 10, 13, 10, 12)

	stepWith(w, do("agentA1", "connect", "agentA2", "0", "1"), do("agentA2", "skip"))
	expectResult(t, w, "agentA1", protocol.ResultFailedPartner)
	expectResult(t, w, "agentA2", protocol.ResultSuccess)

	stepWith(w, do("agentA1", "connect", "agentA2", "0", "1"), do("agentA2", "connect", "agentA1", "0", "x"))
	expectResult(t, w, "agentA1", protocol.ResultFailedPartner)
	expectResult(t, w, "agentA2", protocol.ResultFailedParameter)

	stepWith(w, do("agentA1", "connect", "agentA2", "0", "1"), do("agentA2", "connect", "agentA1", "0", "-1"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	expectResult(t, w, "agentA2", protocol.ResultSuccess)
	if !w.grid.IsAttached(b1.ID, b2.ID) {
		t.Fatalf("blocks not connected")
	}

	stepWith(w, do("agentA1", "connect", "agentA2", "0", "1"), do("agentA2", "connect", "agentA1", "0", "-1"))
	expectResult(t, w, "agentA1", protocol.ResultFailed)

	stepWith(w, do("agentA1", "disconnect", "0", "1", "0", "2"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	if w.grid.IsAttached(b1.ID, b2.ID) {
		t.Fatalf("blocks still connected")
	}
	stepWith(w, do("agentA1", "disconnect", "0", "1", "0", "2"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)
}

func TestClear(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	place(t, w, "agentA2", 5, 5)
	place(t, w, "agentB1", 13, 10)
	setRole(t, w, "agentA1", "digger")
	w.DebugCreateObstacle(grid.Position{X: 12, Y: 10})

	stepWith(w, do("agentA1", "clear", "2", "0"), do("agentA2", "clear", "2", "0"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	expectResult(t, w, "agentA2", protocol.ResultFailedLocation)
	if _, ok := w.grid.ObstacleAt(grid.Position{X: 12, Y: 10}); ok {
		t.Fatalf("obstacle not cleared")
	}
	// cost 2, then one step of recharge
	if got := w.byName["agentA1"].Energy(); got != 99 {
		t.Fatalf("energy=%d want 99", got)
	}

	stepWith(w, do("agentA1", "clear", "3", "0"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	if got := w.byName["agentB1"].Energy(); got != 100-4+1 {
		t.Fatalf("target energy=%d want 97", got)
	}
	p, _ := w.Percept("agentB1")
	ev, ok := hasEvent(p, "hit")
	if !ok || ev["damage"] != 4 || ev["origin"] != [2]int{-3, 0} {
		t.Fatalf("hit event %v", p.Events)
	}

	stepWith(w, do("agentA1", "clear", "0", "3"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)

	w.DebugSetEnergy("agentA1", 1)
	stepWith(w, do("agentA1", "clear", "2", "0"))
	expectResult(t, w, "agentA1", protocol.ResultFailedResources)
	stepWith(w, do("agentA1", "clear", "a", "0"))
	expectResult(t, w, "agentA1", protocol.ResultFailedParameter)
}

func TestClearCostFollowsRules(t *testing.T) {
	w := newTestWorld(t, func(r *tuning.Tuning) { r.ClearEnergyCost = 7 })
	place(t, w, "agentA1", 10, 10)
	setRole(t, w, "agentA1", "digger")
	w.DebugCreateObstacle(grid.Position{X: 11, Y: 10})

	stepWith(w, do("agentA1", "clear", "1", "0"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	// cost 7, then one step of recharge
	if got := w.byName["agentA1"].Energy(); got != 100-7+1 {
		t.Fatalf("energy=%d want 94", got)
	}

	w.DebugSetEnergy("agentA1", 6)
	w.DebugCreateObstacle(grid.Position{X: 11, Y: 10})
	stepWith(w, do("agentA1", "clear", "1", "0"))
	expectResult(t, w, "agentA1", protocol.ResultFailedResources)
}

func TestSurvey(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	place(t, w, "agentB1", 12, 10)
	w.DebugCreateDispenser(grid.Position{X: 14, Y: 10}, "b1")

	stepWith(w, do("agentA1", "survey", "dispenser"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	p, _ := w.Percept("agentA1")
	if ev, ok := hasEvent(p, "surveyed"); !ok || ev["distance"] != 4 {
		t.Fatalf("surveyed event %v", p.Events)
	}

	stepWith(w, do("agentA1", "survey", "goal"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)
	stepWith(w, do("agentA1", "survey", "treasure"))
	expectResult(t, w, "agentA1", protocol.ResultFailedParameter)

	stepWith(w, do("agentA1", "survey", "12", "10"), do("agentB1", "move", "e"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	p, _ = w.Percept("agentA1")
	if ev, ok := hasEvent(p, "surveyed"); !ok || ev["name"] != "agentB1" || ev["role"] != "default" {
		t.Fatalf("agent survey event %v", p.Events)
	}

	stepWith(w, do("agentA1", "survey", "20", "20"))
	expectResult(t, w, "agentA1", protocol.ResultFailedTarget)
	place(t, w, "agentB2", 20, 10)
	stepWith(w, do("agentA1", "survey", "20", "10"))
	expectResult(t, w, "agentA1", protocol.ResultFailedLocation)
}

func TestAdopt(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	stepWith(w, do("agentA1", "adopt", "worker"))
	expectResult(t, w, "agentA1", protocol.ResultFailedLocation)

	w.DebugAddZone(grid.ZoneRole, grid.Position{X: 11, Y: 10}, 2)
	stepWith(w, do("agentA1", "adopt", "pilot"))
	expectResult(t, w, "agentA1", protocol.ResultFailedParameter)
	stepWith(w, do("agentA1", "adopt", "worker"))
	expectResult(t, w, "agentA1", protocol.ResultSuccess)
	if got := w.byName["agentA1"].RoleName(); got != "worker" {
		t.Fatalf("role=%s", got)
	}
	p, _ := w.Percept("agentA1")
	if p.Role != "worker" || len(p.Terrain["role"]) == 0 {
		t.Fatalf("percept role=%s terrain=%v", p.Role, p.Terrain)
	}
}
