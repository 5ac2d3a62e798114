package world

import (
	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

// ClearEvent wipes an area at Step after a warning period.
type ClearEvent struct {
	Pos    grid.Position
	Step   int
	Radius int
}

// advanceClearEvents possibly schedules a new event, fires the events due at
// step and marks the areas of the pending ones.
func (w *World) advanceClearEvents(step int) {
	ev := w.cfg.Rules.Events
	if w.rng.Percent(ev.Chance) {
		e := ClearEvent{
			Pos:    w.grid.RandomPosition(),
			Step:   step + ev.Warning,
			Radius: w.rng.BetweenClosed(ev.Radius[0], ev.Radius[1]),
		}
		w.clearEvents = append(w.clearEvents, e)
		w.logger.Printf("step %d: clear event at %v r=%d due %d", step, e.Pos, e.Radius, e.Step)
	}

	pending := w.clearEvents[:0]
	for _, e := range w.clearEvents {
		if e.Step == step {
			w.processClearEvent(step, e)
			continue
		}
		if e.Step < step {
			continue
		}
		pending = append(pending, e)
		w.markClearEvent(step, e)
	}
	w.clearEvents = pending
}

func (w *World) markClearEvent(step int, e ClearEvent) {
	typ := grid.MarkerClear
	if e.Step-step <= 2 {
		typ = grid.MarkerClearSoon
	}
	geo := w.grid.Geometry()
	inner := map[grid.Position]struct{}{}
	for _, p := range geo.SpanArea(e.Pos, e.Radius) {
		inner[p] = struct{}{}
		w.grid.CreateMarker(p, typ)
	}
	for _, p := range geo.SpanArea(e.Pos, e.Radius+w.cfg.Rules.Events.Perimeter) {
		if _, ok := inner[p]; ok {
			continue
		}
		w.grid.CreateMarker(p, grid.MarkerPerimeter)
	}
}

// processClearEvent destroys everything attachable in the area, hurts the
// entities in it and scatters new obstacles around it.
func (w *World) processClearEvent(step int, e ClearEvent) {
	ev := w.cfg.Rules.Events
	removed := w.clearArea(step, e.Pos, e.Radius, 1000, true)
	n := w.rng.BetweenClosed(ev.Create[0], ev.Create[1]) + removed
	created := 0
	for i := 0; i < n; i++ {
		p, ok := w.grid.FindRandomFreePositionNear(e.Pos, ev.Perimeter+e.Radius)
		if !ok {
			continue
		}
		if _, isDispenser := w.grid.DispenserAt(p); isDispenser {
			continue
		}
		if _, err := w.grid.Create(grid.KindObstacle, p, ""); err == nil {
			created++
		}
	}
	w.logEvent(map[string]any{
		"type":    "clear event",
		"pos":     e.Pos.ToArray(),
		"r":       e.Radius,
		"removed": removed,
		"created": created,
	})
	w.auditEvent(step, "", "CLEAR_EVENT", e.Pos, "", map[string]any{"r": e.Radius, "removed": removed, "created": created})
}

// clearArea damages entities and removes blocks and obstacles around center.
// Unless destroyAttachments is set, things attached to another object survive.
func (w *World) clearArea(step int, center grid.Position, radius, damage int, destroyAttachments bool) int {
	removed := 0
	for _, p := range w.grid.Geometry().SpanArea(center, radius) {
		for _, o := range w.grid.ThingsAt(p) {
			switch o.Kind {
			case grid.KindEntity:
				if damage > 0 {
					if ent := w.byObj[o.ID]; ent != nil {
						ent.DecreaseEnergy(damage)
					}
				}
			case grid.KindBlock, grid.KindObstacle:
				if !destroyAttachments && w.attachedToEntity(o.ID) {
					continue
				}
				w.grid.Destroy(o.ID)
				removed++
			}
		}
	}
	if removed > 0 {
		w.auditEvent(step, "", "CLEAR_AREA", center, "", map[string]any{"r": radius, "removed": removed})
	}
	return removed
}

// attachedToEntity reports whether the body of id contains an entity other than id.
func (w *World) attachedToEntity(id grid.ObjectID) bool {
	for _, other := range w.grid.ClosureWithoutSelf(id) {
		if o, ok := w.grid.Object(other); ok && o.Kind == grid.KindEntity {
			return true
		}
	}
	return false
}
