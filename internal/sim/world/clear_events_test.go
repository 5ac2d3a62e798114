package world

import (
	"testing"

	"github.com/agentcontest/massim-2022/internal/sim/grid"
	"github.com/agentcontest/massim-2022/internal/sim/tuning"
)

func TestClearEventMarksThenWipesArea(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	setRole(t, w, "agentA1", "worker")
	b := block(t, w, 10, 11, "b0")
	attach(t, w, 10, 10, 10, 11)
	w.clearEvents = append(w.clearEvents, ClearEvent{Pos: grid.Position{X: 10, Y: 10}, Step: 3, Radius: 1})

	stepWith(w)
	if len(w.grid.Markers()) == 0 {
		t.Fatalf("pending clear event should mark its area")
	}
	snap := w.Snapshot()
	if len(snap.Clear) != 1 {
		t.Fatalf("snapshot clear events=%d want 1", len(snap.Clear))
	}

	stepWith(w)
	stepWith(w)
	if len(w.clearEvents) != 0 {
		t.Fatalf("clear event still pending")
	}
	if _, ok := w.grid.Object(b.ID); ok {
		t.Fatalf("attached block should be destroyed by a clear event")
	}
	a1 := w.byName["agentA1"]
	if !a1.Deactivated() || a1.Energy() != 0 {
		t.Fatalf("agent in the area should be deactivated, energy=%d", a1.Energy())
	}
	if a1.Carried() != 0 {
		t.Fatalf("deactivated agent still carries things")
	}
	found := false
	for _, ev := range w.LatestSnapshot().Events {
		if ev["type"] == "clear event" {
			found = true
		}
	}
	if !found {
		t.Fatalf("clear event not logged: %v", w.LatestSnapshot().Events)
	}
}

func TestDeactivatedAgentRepairs(t *testing.T) {
	w := newTestWorld(t, func(r *tuning.Tuning) { r.DeactivatedDuration = 2 })
	e := w.byName["agentA1"]
	e.DecreaseEnergy(1000)
	for i := 0; i < 3; i++ {
		if !e.Deactivated() {
			t.Fatalf("repaired too early at step %d", w.step)
		}
		stepWith(w, do("agentA1", "skip"))
		if i == 0 {
			expectResult(t, w, "agentA1", "failed_status")
		}
	}
	if e.Deactivated() || e.Energy() != w.cfg.Rules.RefreshEnergy {
		t.Fatalf("deactivated=%v energy=%d", e.Deactivated(), e.Energy())
	}
}
