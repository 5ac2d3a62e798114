package world

import (
	"sort"

	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

// prepareStep runs the world's own turn before agents act at step: norms are
// enforced, tasks refilled, entities recharged, clear events advanced, a norm
// may be drawn and the percepts are built.
func (w *World) prepareStep(step int) {
	w.step = step
	w.stepNo.Store(int64(step))

	w.violations = w.officer.RegulateNorms(step, w.normAgents())
	for _, v := range w.violations {
		w.auditEvent(step, v.Agent, "NORM_VIOLATION", w.byName[v.Agent].Pos(), v.Norm, nil)
	}

	w.topUpTasks(step)

	for _, e := range w.sortedEntities() {
		e.preStep()
	}

	w.grid.DeleteMarkers()
	w.advanceClearEvents(step)

	if n := w.officer.CreateNorms(step, normState{w}); n != nil {
		w.logEvent(map[string]any{"type": "norm created", "norm": n.Name, "start": n.Start, "until": n.Until})
	}

	w.percepts = w.buildPercepts(step)
	w.stepEvents = map[string][]protocol.Event{}
}

func (w *World) buildPercepts(step int) map[string]protocol.StepPercept {
	tasks := make([]protocol.TaskInfo, 0, len(w.tasks))
	for _, t := range w.openTasks(step) {
		tasks = append(tasks, t.Info())
	}
	approved := w.officer.Approved(step)
	normInfos := make([]protocol.NormInfo, 0, len(approved))
	for _, n := range approved {
		normInfos = append(normInfos, normInfo(n))
	}

	out := make(map[string]protocol.StepPercept, len(w.entities))
	for _, e := range w.entities {
		p := w.perceive(e)
		p.Tasks = tasks
		p.Norms = normInfos
		p.Violations = w.officer.Violations(step, e.name)
		p.Events = w.stepEvents[e.name]
		out[e.name] = p
	}
	return out
}

// perceive builds the part of a percept that depends on what e can see.
func (w *World) perceive(e *Entity) protocol.StepPercept {
	geo := w.grid.Geometry()
	origin := e.Pos()
	things := []protocol.Thing{}
	attached := [][2]int{}
	terrain := map[string][][2]int{}

	for _, cell := range geo.SpanArea(origin, e.Vision()) {
		rel := geo.RelativeTo(cell, origin)
		for _, o := range w.grid.ThingsAt(cell) {
			things = append(things, thingOf(o, rel, w.byObj[o.ID]))
			if o.ID != e.ID() && o.Attachable() && w.attachedToEntity(o.ID) {
				attached = append(attached, rel.ToArray())
			}
		}
		if w.grid.IsInZone(grid.ZoneGoal, cell) {
			terrain[string(grid.ZoneGoal)] = append(terrain[string(grid.ZoneGoal)], rel.ToArray())
		}
		if w.grid.IsInZone(grid.ZoneRole, cell) {
			terrain[string(grid.ZoneRole)] = append(terrain[string(grid.ZoneRole)], rel.ToArray())
		}
	}
	sort.Slice(things, func(i, j int) bool {
		a, b := things[i], things[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Details < b.Details
	})
	sortCells(attached)
	for k := range terrain {
		sortCells(terrain[k])
	}

	var score int64
	if t := w.teamByID[e.team]; t != nil {
		score = t.Score
	}
	return protocol.StepPercept{
		Score:            score,
		Things:           things,
		Terrain:          terrain,
		LastAction:       e.lastAction,
		LastActionParams: e.LastParams(),
		LastActionResult: e.lastResult,
		Attached:         attached,
		Energy:           e.energy,
		Deactivated:      e.Deactivated(),
		Role:             e.role.Name,
	}
}

func thingOf(o *grid.Object, rel grid.Position, ent *Entity) protocol.Thing {
	t := protocol.Thing{X: rel.X, Y: rel.Y}
	switch o.Kind {
	case grid.KindEntity:
		t.Type = protocol.ThingEntity
		if ent != nil {
			t.Details = ent.team
		}
	case grid.KindBlock:
		t.Type, t.Details = protocol.ThingBlock, o.Type
	case grid.KindObstacle:
		t.Type = protocol.ThingObstacle
	case grid.KindDispenser:
		t.Type, t.Details = protocol.ThingDispenser, o.Type
	case grid.KindMarker:
		t.Type, t.Details = protocol.ThingMarker, o.Type
	}
	return t
}

func sortCells(c [][2]int) {
	sort.Slice(c, func(i, j int) bool {
		if c[i][1] != c[j][1] {
			return c[i][1] < c[j][1]
		}
		return c[i][0] < c[j][0]
	})
}

// Percepts returns the percepts of the current step.
func (w *World) Percepts() map[string]protocol.StepPercept {
	out := make(map[string]protocol.StepPercept, len(w.percepts))
	for k, v := range w.percepts {
		out[k] = v
	}
	return out
}

func (w *World) Percept(agent string) (protocol.StepPercept, bool) {
	p, ok := w.percepts[agent]
	return p, ok
}
