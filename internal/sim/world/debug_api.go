package world

import (
	"fmt"

	"github.com/agentcontest/massim-2022/internal/sim/grid"
	"github.com/agentcontest/massim-2022/internal/sim/norms"
)

// ---- Debug/Test Helpers ----
//
// These helpers exist to allow black-box tests in sibling packages (e.g. internal/sim/worldtest)
// to set up deterministic preconditions without reaching into world internals.
//
// They are NOT safe to call concurrently with Run(). Prefer using them only in tests that drive
// the world via StepOnce(), from a single goroutine.

// DebugTeleport moves a detached entity to a free cell.
func (w *World) DebugTeleport(name string, pos grid.Position) bool {
	e := w.byName[name]
	if e == nil {
		return false
	}
	return w.grid.MoveWithoutAttachments(e.ID(), pos)
}

func (w *World) DebugCreateBlock(pos grid.Position, typ string) bool {
	_, ok := w.createBlock(pos, typ)
	return ok
}

func (w *World) DebugCreateObstacle(pos grid.Position) bool {
	return w.createObstacle(pos)
}

func (w *World) DebugCreateDispenser(pos grid.Position, typ string) bool {
	return w.createDispenser(pos, typ)
}

// DebugAttach links the unique attachables at two adjacent cells.
func (w *World) DebugAttach(a, b grid.Position) error {
	oa, ok1 := w.grid.UniqueAttachable(a)
	ob, ok2 := w.grid.UniqueAttachable(b)
	if !ok1 || !ok2 {
		return fmt.Errorf("attach %v %v: %w", a, b, grid.ErrUnknownObject)
	}
	if !w.grid.Attach(oa.ID, ob.ID) {
		return fmt.Errorf("attach %v %v: %w", a, b, grid.ErrNotAttachable)
	}
	return nil
}

func (w *World) DebugAddZone(t grid.ZoneType, center grid.Position, radius int) {
	w.grid.AddZone(t, center, radius)
}

// DebugClearZones removes every zone of type t.
func (w *World) DebugClearZones(t grid.ZoneType) {
	for _, z := range w.grid.Zones(t) {
		w.grid.RemoveZone(t, z.Center)
	}
}

// DebugClearCell destroys every block and obstacle at pos.
func (w *World) DebugClearCell(pos grid.Position) {
	for _, o := range w.grid.ThingsAt(pos) {
		if o.Kind == grid.KindBlock || o.Kind == grid.KindObstacle {
			w.grid.Destroy(o.ID)
		}
	}
}

func (w *World) DebugSetRole(name, role string) bool {
	e := w.byName[name]
	r, ok := w.catalogs.Roles.ByName[role]
	if e == nil || !ok {
		return false
	}
	e.setRole(r)
	return true
}

func (w *World) DebugSetEnergy(name string, energy int) bool {
	e := w.byName[name]
	if e == nil {
		return false
	}
	e.energy = energy
	return true
}

// DebugCreateTask adds a task whose requirements are given relative to the submitter.
func (w *World) DebugCreateTask(name string, deadline, iterations int, reqs map[grid.Position]string) error {
	if w.addTask(NewTask(name, deadline, iterations, reqs)) == nil {
		return fmt.Errorf("task %s rejected", name)
	}
	return nil
}

func (w *World) DebugAddNorm(announcedAt, start, until, punishment int, rule norms.Rule) *norms.Norm {
	return w.officer.Add(announcedAt, start, until, punishment, rule)
}

// DebugRebuildPercepts refreshes the percepts of the current step after debug edits.
func (w *World) DebugRebuildPercepts() {
	w.percepts = w.buildPercepts(w.step)
}

func (w *World) DebugStateDigest() string {
	return w.stateDigest(w.step)
}
