package world

import (
	"io"
	"log"
	"testing"

	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
	"github.com/agentcontest/massim-2022/internal/sim/tuning"
)

// quietRules is a small empty world: no terrain, zones, dispensers, tasks,
// clear events, norms or random failures.
func quietRules() tuning.Tuning {
	r := tuning.Defaults()
	r.Steps = 100
	r.RandomFail = 0
	r.Grid.Width, r.Grid.Height = 30, 30
	r.Grid.Instructions = nil
	r.Grid.Goals.Number = 0
	r.Grid.Goals.MoveProbability = 0
	r.Grid.RoleZones.Number = 0
	r.BlockTypes = [2]int{2, 2}
	r.Dispensers = [2]int{0, 0}
	r.Tasks.Concurrent = 0
	r.Events.Chance = 0
	r.Regulation.Chance = 0
	r.Teams = []tuning.Team{{Name: "A", Agents: 2}, {Name: "B", Agents: 2}}
	return r
}

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func newTestWorld(t *testing.T, mutate func(r *tuning.Tuning)) *World {
	t.Helper()
	rules := quietRules()
	if mutate != nil {
		mutate(&rules)
	}
	w, err := New(WorldConfig{
		ID:     "test",
		Seed:   42,
		Rules:  rules,
		Logger: log.New(io.Discard, "", 0),
	}, loadCatalogs(t))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	parkAll(t, w)
	return w
}

// parkAll moves every entity to the two bottom rows so tests own the rest of the grid.
func parkAll(t *testing.T, w *World) {
	t.Helper()
	geo := w.grid.Geometry()
	for _, e := range w.sortedEntities() {
		parked := false
		for i := 0; i < 2*geo.Width && !parked; i++ {
			p := grid.Position{X: i % geo.Width, Y: geo.Height - 1 - i/geo.Width}
			if !w.grid.IsUnblocked(p, grid.NewIDSet(e.ID())) {
				continue
			}
			parked = e.Pos() == p || w.DebugTeleport(e.name, p)
		}
		if !parked {
			t.Fatalf("no parking space for %s", e.name)
		}
	}
}

func place(t *testing.T, w *World, name string, x, y int) *Entity {
	t.Helper()
	if !w.DebugTeleport(name, grid.Position{X: x, Y: y}) {
		t.Fatalf("teleport %s to (%d,%d) failed", name, x, y)
	}
	return w.byName[name]
}

func setRole(t *testing.T, w *World, name, role string) {
	t.Helper()
	if !w.DebugSetRole(name, role) {
		t.Fatalf("set role %s on %s failed", role, name)
	}
}

func block(t *testing.T, w *World, x, y int, typ string) *grid.Object {
	t.Helper()
	if !w.DebugCreateBlock(grid.Position{X: x, Y: y}, typ) {
		t.Fatalf("create block at (%d,%d) failed", x, y)
	}
	b, _ := w.grid.BlockAt(grid.Position{X: x, Y: y})
	return b
}

func attach(t *testing.T, w *World, x1, y1, x2, y2 int) {
	t.Helper()
	if err := w.DebugAttach(grid.Position{X: x1, Y: y1}, grid.Position{X: x2, Y: y2}); err != nil {
		t.Fatalf("attach: %v", err)
	}
}

type intent struct {
	agent  string
	action string
	params []string
}

func do(agent, action string, params ...string) intent {
	return intent{agent: agent, action: action, params: params}
}

// stepWith resolves the current step with the given intents.
func stepWith(w *World, intents ...intent) {
	envs := make([]ActionEnvelope, 0, len(intents))
	for _, in := range intents {
		envs = append(envs, ActionEnvelope{
			Agent: in.agent,
			Act: protocol.ActionMsg{
				Type:            protocol.TypeAction,
				ProtocolVersion: protocol.Version,
				Step:            w.step,
				Action:          in.action,
				Params:          in.params,
			},
		})
	}
	w.StepOnce(nil, nil, envs)
}

func expectResult(t *testing.T, w *World, name, want string) {
	t.Helper()
	if got := w.byName[name].LastResult(); got != want {
		t.Fatalf("%s: result=%s want %s", name, got, want)
	}
}

func expectPos(t *testing.T, w *World, name string, x, y int) {
	t.Helper()
	if got := w.byName[name].Pos(); got != (grid.Position{X: x, Y: y}) {
		t.Fatalf("%s at %v, want (%d,%d)", name, got, x, y)
	}
}

func hasEvent(p protocol.StepPercept, typ string) (protocol.Event, bool) {
	for _, ev := range p.Events {
		if ev["type"] == typ {
			return ev, true
		}
	}
	return nil, false
}
