package world

import (
	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

func (w *World) handleMove(e *Entity, p []string) string {
	if len(p) == 0 {
		return protocol.ResultFailedParameter
	}
	dirs := make([]grid.Direction, 0, len(p))
	for _, s := range p {
		d, ok := grid.ParseDirection(s)
		if !ok {
			return protocol.ResultFailedParameter
		}
		dirs = append(dirs, d)
	}
	speed := e.Speed()
	taken := 0
	for _, d := range dirs {
		if taken >= speed || !w.grid.MoveWithAttached(e.ID(), d, 1) {
			break
		}
		taken++
	}
	switch {
	case taken == 0:
		return protocol.ResultFailedPath
	case taken < len(dirs):
		return protocol.ResultPartialSuccess
	default:
		return protocol.ResultSuccess
	}
}

// neighbourTarget resolves the single attachable next to e in the direction
// named by p.
func (w *World) neighbourTarget(e *Entity, p []string) (*grid.Object, string) {
	d, ok := directionParam(p)
	if !ok {
		return nil, protocol.ResultFailedParameter
	}
	target, ok := w.grid.UniqueAttachable(w.grid.Geometry().Moved(e.Pos(), d, 1))
	if !ok {
		return nil, protocol.ResultFailedTarget
	}
	if other := w.byObj[target.ID]; other != nil && other.team != e.team {
		return nil, protocol.ResultFailedTarget
	}
	return target, ""
}

func (w *World) handleAttach(e *Entity, p []string) string {
	target, fail := w.neighbourTarget(e, p)
	if fail != "" {
		return fail
	}
	if w.attachedToOpponent(target.ID, e) {
		return protocol.ResultFailed
	}
	if !w.grid.Attach(e.ID(), target.ID) {
		return protocol.ResultFailed
	}
	return protocol.ResultSuccess
}

func (w *World) handleDetach(e *Entity, p []string) string {
	target, fail := w.neighbourTarget(e, p)
	if fail != "" {
		return fail
	}
	if !w.grid.DetachNeighbors(e.ID(), target.ID) {
		return protocol.ResultFailed
	}
	return protocol.ResultSuccess
}

// attachedToOpponent reports whether the body of id holds an entity of
// another team than e.
func (w *World) attachedToOpponent(id grid.ObjectID, e *Entity) bool {
	for _, member := range w.grid.Closure(id) {
		if other := w.byObj[member]; other != nil && other.team != e.team {
			return true
		}
	}
	return false
}

func (w *World) handleRotate(e *Entity, p []string) string {
	if len(p) != 1 || (p[0] != "cw" && p[0] != "ccw") {
		return protocol.ResultFailedParameter
	}
	if !w.grid.RotateWithAttached(e.ID(), p[0] == "cw") {
		return protocol.ResultFailed
	}
	return protocol.ResultSuccess
}

// handleConnect joins a block of e's body with a block of the partner's body.
// Block positions are relative to their owners.
func (w *World) handleConnect(step int, e *Entity, at grid.Position, partner *Entity, partnerAt grid.Position) string {
	geo := w.grid.Geometry()
	b1, ok1 := w.grid.UniqueAttachable(geo.Translate(e.Pos(), at.X, at.Y))
	b2, ok2 := w.grid.UniqueAttachable(geo.Translate(partner.Pos(), partnerAt.X, partnerAt.Y))
	if !ok1 || !ok2 || b1.Kind != grid.KindBlock || b2.Kind != grid.KindBlock {
		return protocol.ResultFailedTarget
	}
	mine := grid.NewIDSet(w.grid.Closure(e.ID())...)
	if mine.Has(partner.ID()) {
		return protocol.ResultFailed
	}
	theirs := grid.NewIDSet(w.grid.Closure(partner.ID())...)
	if !mine.Has(b1.ID) || mine.Has(b2.ID) || !theirs.Has(b2.ID) || theirs.Has(b1.ID) {
		return protocol.ResultFailedTarget
	}
	if !w.grid.Attach(b1.ID, b2.ID) {
		return protocol.ResultFailed
	}
	w.auditEvent(step, e.name, "CONNECT", e.Pos(), "", map[string]any{"partner": partner.name})
	return protocol.ResultSuccess
}

func (w *World) handleDisconnect(e *Entity, p []string) string {
	v, ok := intParams(p, 4)
	if !ok {
		return protocol.ResultFailedParameter
	}
	geo := w.grid.Geometry()
	a1, ok1 := w.grid.UniqueAttachable(geo.Translate(e.Pos(), v[0], v[1]))
	a2, ok2 := w.grid.UniqueAttachable(geo.Translate(e.Pos(), v[2], v[3]))
	if !ok1 || !ok2 {
		return protocol.ResultFailedTarget
	}
	body := grid.NewIDSet(w.grid.Closure(e.ID())...)
	if !body.Has(a1.ID) || !body.Has(a2.ID) {
		return protocol.ResultFailedTarget
	}
	if !w.grid.DetachNeighbors(a1.ID, a2.ID) {
		return protocol.ResultFailedTarget
	}
	return protocol.ResultSuccess
}

func (w *World) handleRequest(e *Entity, p []string) string {
	d, ok := directionParam(p)
	if !ok {
		return protocol.ResultFailedParameter
	}
	target := w.grid.Geometry().Moved(e.Pos(), d, 1)
	dispenser, ok := w.grid.DispenserAt(target)
	if !ok {
		return protocol.ResultFailedTarget
	}
	if !w.grid.IsUnblocked(target, nil) {
		return protocol.ResultFailedBlocked
	}
	if _, ok := w.createBlock(target, dispenser.Type); !ok {
		return protocol.ResultFailedBlocked
	}
	return protocol.ResultSuccess
}

func (w *World) handleSubmit(step int, e *Entity, p []string) string {
	if len(p) != 1 {
		return protocol.ResultFailedParameter
	}
	task, ok := w.tasks[p[0]]
	if !ok || !task.Open(step) {
		return protocol.ResultFailedTarget
	}
	if !w.grid.IsInZone(grid.ZoneGoal, e.Pos()) {
		return protocol.ResultFailed
	}
	geo := w.grid.Geometry()
	body := grid.NewIDSet(w.grid.Closure(e.ID())...)
	matched := make([]grid.ObjectID, 0, len(task.Requirements))
	for rel, typ := range task.Requirements {
		b, ok := w.grid.UniqueAttachable(geo.Translate(e.Pos(), rel.X, rel.Y))
		if !ok || b.Kind != grid.KindBlock || b.Type != typ || !body.Has(b.ID) {
			return protocol.ResultFailed
		}
		matched = append(matched, b.ID)
	}
	for _, id := range matched {
		w.grid.Destroy(id)
	}
	reward := task.Reward()
	w.teamByID[e.team].addScore(reward)
	task.completeOnce()
	if from, to, moved := w.grid.MoveGoalZone(e.Pos()); moved {
		w.logEvent(map[string]any{"type": "goal zone moved", "from": from.Center.ToArray(), "to": to.Center.ToArray()})
	}
	w.logEvent(map[string]any{"type": "task completed", "task": task.Name, "team": e.team, "agent": e.name, "reward": reward})
	w.auditEvent(step, e.name, "SUBMIT", e.Pos(), "", map[string]any{"task": task.Name, "reward": reward})
	return protocol.ResultSuccess
}

func (w *World) handleClear(step int, e *Entity, p []string) string {
	v, ok := intParams(p, 2)
	if !ok {
		return protocol.ResultFailedParameter
	}
	geo := w.grid.Geometry()
	target := geo.Translate(e.Pos(), v[0], v[1])
	distance := geo.Distance(e.Pos(), target)
	if distance > e.role.ClearMaxDistance {
		return protocol.ResultFailedLocation
	}
	cost := e.rules.clearCost
	if e.energy < cost {
		return protocol.ResultFailedResources
	}
	if !w.rng.Chance(e.role.ClearChance) {
		return protocol.ResultFailedRandom
	}
	e.DecreaseEnergy(cost)
	removed := w.clearArea(step, target, 0, 0, false)

	hit := false
	if table := w.cfg.Rules.ClearDamage; e.role.ClearMaxDistance > 1 && len(table) > 0 {
		damage := table[min(distance, len(table)-1)]
		for _, o := range w.grid.EntitiesAt(target) {
			victim := w.byObj[o.ID]
			if victim == nil {
				continue
			}
			victim.DecreaseEnergy(damage)
			w.addStepEvent(victim.name, protocol.Event{
				"type":   "hit",
				"origin": geo.RelativeTo(e.Pos(), target).ToArray(),
				"damage": damage,
			})
			hit = true
		}
	}
	if removed == 0 && !hit {
		return protocol.ResultFailedTarget
	}
	return protocol.ResultSuccess
}

func (w *World) handleSurvey(e *Entity, p []string, previous map[grid.Position]*Entity) string {
	geo := w.grid.Geometry()
	switch len(p) {
	case 1:
		best, found := 0, false
		switch p[0] {
		case "dispenser":
			for _, d := range w.grid.Dispensers() {
				if dist := geo.Distance(e.Pos(), d.Pos); !found || dist < best {
					best, found = dist, true
				}
			}
		case string(grid.ZoneGoal), string(grid.ZoneRole):
			if z, ok := w.grid.ClosestZone(grid.ZoneType(p[0]), e.Pos()); ok {
				best, found = geo.Distance(e.Pos(), z.Center), true
			}
		default:
			return protocol.ResultFailedParameter
		}
		if !found {
			return protocol.ResultFailedTarget
		}
		w.addStepEvent(e.name, protocol.Event{"type": "surveyed", "target": p[0], "distance": best})
		return protocol.ResultSuccess
	case 2:
		v, ok := intParams(p, 2)
		if !ok {
			return protocol.ResultFailedParameter
		}
		target, ok := previous[geo.Wrap(grid.Position{X: v[0], Y: v[1]})]
		if !ok {
			return protocol.ResultFailedTarget
		}
		distance := geo.Distance(e.Pos(), target.Pos())
		if distance > e.Vision() {
			return protocol.ResultFailedLocation
		}
		w.addStepEvent(e.name, protocol.Event{
			"type":   "surveyed",
			"target": "agent",
			"name":   target.name,
			"role":   target.role.Name,
			"energy": target.energy,
		})
		return protocol.ResultSuccess
	default:
		return protocol.ResultFailedParameter
	}
}

func (w *World) handleAdopt(step int, e *Entity, p []string) string {
	if len(p) != 1 {
		return protocol.ResultFailedParameter
	}
	role, ok := w.catalogs.Roles.ByName[p[0]]
	if !ok {
		return protocol.ResultFailedParameter
	}
	if !w.grid.IsInZone(grid.ZoneRole, e.Pos()) {
		return protocol.ResultFailedLocation
	}
	e.setRole(role)
	w.auditEvent(step, e.name, "ADOPT", e.Pos(), "", map[string]any{"role": role.Name})
	return protocol.ResultSuccess
}
