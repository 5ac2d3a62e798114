package world

import (
	"sort"

	"github.com/agentcontest/massim-2022/internal/observerproto"
	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

const hiddenAction = "HIDDEN"

func (w *World) buildStatic(initialObstacles int) observerproto.StaticWorld {
	rules := w.cfg.Rules
	teams := make([]observerproto.TeamInfo, 0, len(w.teams))
	for _, t := range w.teams {
		teams = append(teams, observerproto.TeamInfo{Name: t.Name, Agents: t.Size})
	}
	roles := make([]string, 0, len(w.catalogs.Roles.Roles))
	for _, r := range w.catalogs.Roles.Roles {
		roles = append(roles, r.Name)
	}
	return observerproto.StaticWorld{
		Sim:        w.cfg.ID,
		Grid:       observerproto.GridSize{Width: rules.Grid.Width, Height: rules.Grid.Height},
		Teams:      teams,
		BlockTypes: w.BlockTypes(),
		Roles:      roles,
		MaxEnergy:  rules.MaxEnergy,
		Steps:      rules.Steps,
		Seed:       w.cfg.Seed,
		Obstacles:  initialObstacles,
	}
}

func (w *World) StaticWorld() observerproto.StaticWorld { return w.static }

// neighbourCells lists the absolute cells of the objects attached to id.
func (w *World) neighbourCells(id grid.ObjectID) [][2]int {
	var out [][2]int
	for _, n := range w.grid.Attached(id) {
		if o, ok := w.grid.Object(n); ok {
			out = append(out, o.Pos.ToArray())
		}
	}
	sortCells(out)
	return out
}

// Snapshot is the spectator view of the current step.
func (w *World) Snapshot() observerproto.Snapshot {
	s := observerproto.Snapshot{
		Type:            observerproto.TypeSnapshot,
		ProtocolVersion: observerproto.Version,
		Sim:             w.cfg.ID,
		Step:            w.step,
		Entities:        []observerproto.EntityState{},
		Blocks:          []observerproto.BlockState{},
		Obstacles:       []observerproto.ObstacleState{},
		Dispensers:      []observerproto.DispenserState{},
		Tasks:           []observerproto.TaskState{},
		Clear:           []observerproto.ClearState{},
		Scores:          map[string]int64{},
		Norms:           []observerproto.NormState{},
		Violations:      []observerproto.Violation{},
		Events:          append([]observerproto.LogEvent(nil), w.logEvents...),
	}
	for _, e := range w.sortedEntities() {
		p := e.Pos()
		s.Entities = append(s.Entities, observerproto.EntityState{
			ID:           uint64(e.ID()),
			Name:         e.name,
			Team:         e.team,
			Role:         e.role.Name,
			X:            p.X,
			Y:            p.Y,
			Energy:       e.energy,
			Vision:       e.Vision(),
			Action:       e.lastAction,
			ActionParams: e.LastParams(),
			ActionResult: e.lastResult,
			Deactivated:  e.Deactivated(),
			Attached:     w.neighbourCells(e.ID()),
		})
	}
	for _, b := range w.grid.Blocks() {
		s.Blocks = append(s.Blocks, observerproto.BlockState{X: b.Pos.X, Y: b.Pos.Y, Type: b.Type, Attached: w.neighbourCells(b.ID)})
	}
	for _, o := range w.grid.Obstacles() {
		s.Obstacles = append(s.Obstacles, observerproto.ObstacleState{X: o.Pos.X, Y: o.Pos.Y, Attached: w.neighbourCells(o.ID)})
	}
	for _, d := range w.grid.Dispensers() {
		s.Dispensers = append(s.Dispensers, observerproto.DispenserState{ID: uint64(d.ID), X: d.Pos.X, Y: d.Pos.Y, Type: d.Type})
	}
	for _, t := range w.openTasks(w.step) {
		ts := observerproto.TaskState{
			Name:       t.Name,
			Deadline:   t.Deadline,
			Reward:     t.Reward(),
			Iterations: t.Iterations,
			Completed:  t.Completed,
		}
		for _, r := range t.SortedRequirements() {
			ts.Requirements = append(ts.Requirements, observerproto.Requirement{X: r.X, Y: r.Y, Type: r.Type})
		}
		s.Tasks = append(s.Tasks, ts)
	}
	s.GoalZones = zoneStates(w.grid.Zones(grid.ZoneGoal))
	s.RoleZones = zoneStates(w.grid.Zones(grid.ZoneRole))
	for _, c := range w.clearEvents {
		s.Clear = append(s.Clear, observerproto.ClearState{X: c.Pos.X, Y: c.Pos.Y, Radius: c.Radius, Step: c.Step})
	}
	for _, t := range w.teams {
		s.Scores[t.Name] = t.Score
	}
	for _, n := range w.officer.Approved(w.step) {
		info := n.Info()
		ns := observerproto.NormState{
			Name:       n.Name,
			Announced:  n.AnnouncedAt,
			Start:      n.Start,
			Until:      n.Until,
			Level:      string(info.Level),
			Punishment: n.Punishment,
			Active:     n.Active(w.step),
		}
		for _, r := range info.Requirements {
			ns.Requirements = append(ns.Requirements, observerproto.NormSubject{Type: string(r.Type), Name: r.Name, Quantity: r.Quantity})
		}
		s.Norms = append(s.Norms, ns)
	}
	for _, v := range w.violations {
		s.Violations = append(s.Violations, observerproto.Violation{Norm: v.Norm, Agent: v.Agent})
	}
	return s
}

func zoneStates(zones []grid.Zone) []observerproto.ZoneState {
	out := make([]observerproto.ZoneState, 0, len(zones))
	for _, z := range zones {
		out = append(out, observerproto.ZoneState{X: z.Center.X, Y: z.Center.Y, R: z.Radius})
	}
	return out
}

// StatusSnapshot summarizes the match without revealing which actions agents chose.
func (w *World) StatusSnapshot() observerproto.Status {
	st := observerproto.Status{
		Sim:      w.cfg.ID,
		Step:     w.step,
		Steps:    w.cfg.Rules.Steps,
		Finished: w.finished,
		Entities: make([]observerproto.EntityStatus, 0, len(w.entities)),
	}
	for _, e := range w.sortedEntities() {
		act := e.lastAction
		if protocol.IsKnownAction(act) {
			act = hiddenAction
		}
		st.Entities = append(st.Entities, observerproto.EntityStatus{
			Name:         e.name,
			Team:         e.team,
			Action:       act,
			ActionResult: e.lastResult,
		})
	}
	return st
}

// Result ranks the teams by score; equal scores are ordered by name.
func (w *World) Result() observerproto.Result {
	res := observerproto.Result{
		Type:            observerproto.TypeResult,
		ProtocolVersion: observerproto.Version,
		Sim:             w.cfg.ID,
		Steps:           w.cfg.Rules.Steps,
	}
	for _, r := range rankTeams(w.teams) {
		res.Teams = append(res.Teams, observerproto.TeamResult{Name: r.Name, Score: r.Score, Rank: r.Rank})
	}
	return res
}

// simEnd builds the final message for one agent.
func (w *World) simEnd(e *Entity) protocol.SimEndMsg {
	msg := protocol.SimEndMsg{Type: protocol.TypeSimEnd, ProtocolVersion: protocol.Version}
	for _, r := range rankTeams(w.teams) {
		if r.Name == e.team {
			msg.Score, msg.Ranking = r.Score, r.Rank
		}
	}
	return msg
}

// ExportSnapshot captures the full state for the snapshot files.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	rules := w.cfg.Rules
	s := snapshot.SnapshotV1{
		Header:     snapshot.Header{Version: 1, WorldID: w.cfg.ID, Tick: uint64(w.step)},
		Seed:       w.cfg.Seed,
		Steps:      rules.Steps,
		Width:      rules.Grid.Width,
		Height:     rules.Grid.Height,
		BlockTypes: w.BlockTypes(),
		Counters:   snapshot.CountersV1{NextTask: uint64(w.nextTask)},
	}
	for _, e := range w.sortedEntities() {
		p := e.Pos()
		s.Entities = append(s.Entities, snapshot.EntityV1{
			ID:               uint64(e.ID()),
			Name:             e.name,
			Team:             e.team,
			Role:             e.role.Name,
			X:                p.X,
			Y:                p.Y,
			Energy:           e.energy,
			DeactivatedSteps: e.deactivatedSteps,
			LastAction:       e.lastAction,
			LastParams:       e.LastParams(),
			LastResult:       e.lastResult,
		})
	}
	s.Blocks = thingsV1(w.grid.Blocks())
	s.Obstacles = thingsV1(w.grid.Obstacles())
	s.Dispensers = thingsV1(w.grid.Dispensers())
	s.Attachments = w.edgesV1()
	for _, name := range w.taskOrder {
		t := w.tasks[name]
		tv := snapshot.TaskV1{Name: t.Name, Deadline: t.Deadline, Iterations: t.Iterations, Completed: t.Completed}
		for _, r := range t.SortedRequirements() {
			tv.Requirements = append(tv.Requirements, snapshot.RequirementV1{X: r.X, Y: r.Y, Type: r.Type})
		}
		s.Tasks = append(s.Tasks, tv)
	}
	for _, z := range w.grid.Zones(grid.ZoneGoal) {
		s.GoalZones = append(s.GoalZones, snapshot.ZoneV1{X: z.Center.X, Y: z.Center.Y, R: z.Radius})
	}
	for _, z := range w.grid.Zones(grid.ZoneRole) {
		s.RoleZones = append(s.RoleZones, snapshot.ZoneV1{X: z.Center.X, Y: z.Center.Y, R: z.Radius})
	}
	for _, c := range w.clearEvents {
		s.ClearEvents = append(s.ClearEvents, snapshot.ClearEventV1{X: c.Pos.X, Y: c.Pos.Y, Radius: c.Radius, Step: c.Step})
	}
	for _, n := range w.officer.Norms() {
		s.Norms = append(s.Norms, snapshot.NormV1{
			Name:       n.Name,
			Kind:       n.Rule.Kind(),
			Announced:  n.AnnouncedAt,
			Start:      n.Start,
			Until:      n.Until,
			Punishment: n.Punishment,
			Summary:    n.String(),
		})
	}
	for _, t := range w.teams {
		s.Teams = append(s.Teams, snapshot.TeamV1{Name: t.Name, Score: t.Score, Size: t.Size})
	}
	return s
}

func thingsV1(objs []*grid.Object) []snapshot.ThingV1 {
	out := make([]snapshot.ThingV1, 0, len(objs))
	for _, o := range objs {
		out = append(out, snapshot.ThingV1{ID: uint64(o.ID), X: o.Pos.X, Y: o.Pos.Y, Type: o.Type})
	}
	return out
}

// edgesV1 lists every attachment once, ordered.
func (w *World) edgesV1() []snapshot.EdgeV1 {
	var out []snapshot.EdgeV1
	for _, o := range w.attachables() {
		for _, n := range w.grid.Attached(o.ID) {
			if o.ID < n {
				out = append(out, snapshot.EdgeV1{A: uint64(o.ID), B: uint64(n)})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// attachables lists entities, blocks and obstacles ordered by id.
func (w *World) attachables() []*grid.Object {
	out := append(append(w.grid.Entities(), w.grid.Blocks()...), w.grid.Obstacles()...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// publish stores the read-only views served to other goroutines.
func (w *World) publish() {
	w.status.Store(w.StatusSnapshot())
	w.latest.Store(w.Snapshot())
}

// FinalResult is safe to call from any goroutine. It reports false until Done
// is closed.
func (w *World) FinalResult() (observerproto.Result, bool) {
	v, ok := w.result.Load().(observerproto.Result)
	return v, ok
}

// Status is safe to call from any goroutine.
func (w *World) Status() observerproto.Status {
	if v, ok := w.status.Load().(observerproto.Status); ok {
		return v
	}
	return observerproto.Status{}
}

// LatestSnapshot is safe to call from any goroutine.
func (w *World) LatestSnapshot() observerproto.Snapshot {
	if v, ok := w.latest.Load().(observerproto.Snapshot); ok {
		return v
	}
	return observerproto.Snapshot{}
}
