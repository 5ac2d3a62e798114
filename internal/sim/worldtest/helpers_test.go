package worldtest

import (
	"io"
	"log"
	"testing"

	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
	"github.com/agentcontest/massim-2022/internal/sim/tuning"
	world "github.com/agentcontest/massim-2022/internal/sim/world"
)

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

// smallConfig is an open 20x20 grid with one agent per team and nothing random.
func smallConfig(steps int) world.WorldConfig {
	r := tuning.Defaults()
	r.Steps = steps
	r.RandomFail = 0
	r.Grid.Width, r.Grid.Height = 20, 20
	r.Grid.Instructions = nil
	r.Grid.Goals.Number = 0
	r.Grid.RoleZones.Number = 0
	r.BlockTypes = [2]int{1, 1}
	r.Dispensers = [2]int{0, 0}
	r.Tasks.Concurrent = 0
	r.Events.Chance = 0
	r.Regulation.Chance = 0
	r.Teams = []tuning.Team{{Name: "A", Agents: 1}, {Name: "B", Agents: 1}}
	return world.WorldConfig{
		ID:     "test",
		Seed:   42,
		Rules:  r,
		Logger: log.New(io.Discard, "", 0),
	}
}

func mustTeleport(t *testing.T, h *Harness, name string, x, y int) {
	t.Helper()
	if !h.W.DebugTeleport(name, grid.Position{X: x, Y: y}) {
		t.Fatalf("teleport %s to (%d,%d) failed", name, x, y)
	}
}
