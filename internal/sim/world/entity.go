package world

import (
	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

// energyRules are the match-wide energy settings every entity shares.
type energyRules struct {
	max                 int
	refresh             int
	stepRecharge        int
	deactivatedDuration int
	clearCost           int
}

// Entity is the avatar of one agent.
type Entity struct {
	obj   *grid.Object
	g     *grid.Grid
	rules *energyRules

	name string
	team string
	role catalogs.Role

	energy           int
	deactivatedSteps int

	lastAction string
	lastParams []string
	lastResult string
}

func newEntity(obj *grid.Object, g *grid.Grid, rules *energyRules, name, team string, role catalogs.Role) *Entity {
	return &Entity{
		obj:        obj,
		g:          g,
		rules:      rules,
		name:       name,
		team:       team,
		role:       role,
		energy:     rules.max,
		lastParams: []string{},
	}
}

func (e *Entity) ID() grid.ObjectID    { return e.obj.ID }
func (e *Entity) Pos() grid.Position   { return e.obj.Pos }
func (e *Entity) Name() string         { return e.name }
func (e *Entity) Team() string         { return e.team }
func (e *Entity) Role() catalogs.Role  { return e.role }
func (e *Entity) RoleName() string     { return e.role.Name }
func (e *Entity) Energy() int          { return e.energy }
func (e *Entity) Vision() int          { return e.role.Vision }
func (e *Entity) Deactivated() bool    { return e.deactivatedSteps > 0 }
func (e *Entity) LastAction() string   { return e.lastAction }
func (e *Entity) LastResult() string   { return e.lastResult }
func (e *Entity) LastParams() []string { return append([]string(nil), e.lastParams...) }
func (e *Entity) CanPerform(a string) bool {
	return a == protocol.ActionNoAction || e.role.CanPerform(a)
}

// Carried is the number of things in the entity's body besides itself.
func (e *Entity) Carried() int { return len(e.g.ClosureWithoutSelf(e.obj.ID)) }

// Speed is the number of cells the entity may move this step given its load.
func (e *Entity) Speed() int { return e.role.MaxSpeed(e.Carried()) }

// preStep repairs a deactivated entity when its countdown ends, or recharges it.
func (e *Entity) preStep() {
	if e.deactivatedSteps > 0 {
		e.deactivatedSteps--
		if e.deactivatedSteps == 0 {
			e.energy = min(e.rules.refresh, e.rules.max)
		}
		return
	}
	e.energy = min(e.energy+e.rules.stepRecharge, e.rules.max)
}

// DecreaseEnergy clamps at zero; reaching zero deactivates the entity.
func (e *Entity) DecreaseEnergy(n int) {
	e.energy = max(e.energy-n, 0)
	if e.energy == 0 {
		e.deactivate()
	}
}

// deactivate detaches everything; the countdown includes the repairing preStep.
func (e *Entity) deactivate() {
	e.deactivatedSteps = e.rules.deactivatedDuration + 1
	e.g.DetachAll(e.obj.ID)
}

func (e *Entity) setNewAction(action string, params []string) {
	e.lastAction = action
	e.lastParams = append([]string{}, params...)
	e.lastResult = protocol.ResultUnprocessed
}

func (e *Entity) setResult(r string) { e.lastResult = r }

func (e *Entity) setRole(r catalogs.Role) { e.role = r }
