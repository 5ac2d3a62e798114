package world

import (
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"github.com/agentcontest/massim-2022/internal/observerproto"
	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
	"github.com/agentcontest/massim-2022/internal/sim/norms"
	"github.com/agentcontest/massim-2022/internal/sim/rng"
)

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	OK    bool
	Code  string
	Start protocol.SimStartMsg
}

type ActionEnvelope struct {
	Agent string
	Act   protocol.ActionMsg
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	logger   *log.Logger

	rng     *rng.Rand
	grid    *grid.Grid
	officer *norms.Officer
	energy  energyRules

	// step is the step whose percepts are out and whose actions are awaited.
	step     int
	started  bool
	finished bool
	stepNo   atomic.Int64

	entities []*Entity
	byName   map[string]*Entity
	byObj    map[grid.ObjectID]*Entity
	teams    []*Team
	teamByID map[string]*Team

	blockTypes  []string
	tasks       map[string]*Task
	taskOrder   []string
	nextTask    int
	clearEvents []ClearEvent

	stepEvents map[string][]protocol.Event
	logEvents  []observerproto.LogEvent
	percepts   map[string]protocol.StepPercept
	violations []norms.Record

	clients   map[string]*clientState
	observers map[string]*observerClient

	inbox         chan ActionEnvelope
	join          chan JoinRequest
	leave         chan string
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	admin         chan adminSnapshotReq
	stop          chan struct{}
	done          chan struct{}

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger
	stepSink    StepSink

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	static  observerproto.StaticWorld
	metrics atomic.Value
	status  atomic.Value
	latest  atomic.Value
	result  atomic.Value
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// StepSink receives a summary of every resolved step (telemetry, index DB).
type StepSink interface {
	ObserveStep(s StepSummary)
}

type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Actions []RecordedAction `json:"actions,omitempty"`
	Digest  string           `json:"digest"`
}

type RecordedAction struct {
	Agent  string   `json:"agent"`
	Action string   `json:"action"`
	Params []string `json:"params,omitempty"`
	Result string   `json:"result"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "SUBMIT"
	Pos     [2]int         `json:"pos"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type clientState struct {
	Out chan []byte
}

// New builds the world and prepares the percepts of step 0.
func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	if cats == nil || len(cats.Roles.Roles) == 0 {
		return nil, fmt.Errorf("world %s: no roles", cfg.ID)
	}
	rules := cfg.Rules
	r := rng.New(cfg.Seed)

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		logger:   cfg.Logger,
		rng:      r,
		energy: energyRules{
			max:                 rules.MaxEnergy,
			refresh:             rules.RefreshEnergy,
			stepRecharge:        rules.StepRecharge,
			deactivatedDuration: rules.DeactivatedDuration,
			clearCost:           rules.ClearEnergyCost,
		},
		byName:        map[string]*Entity{},
		byObj:         map[grid.ObjectID]*Entity{},
		teamByID:      map[string]*Team{},
		tasks:         map[string]*Task{},
		stepEvents:    map[string][]protocol.Event{},
		percepts:      map[string]protocol.StepPercept{},
		clients:       map[string]*clientState{},
		observers:     map[string]*observerClient{},
		inbox:         make(chan ActionEnvelope, 1024),
		join:          make(chan JoinRequest, 64),
		leave:         make(chan string, 64),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		admin:         make(chan adminSnapshotReq, 16),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	w.grid = grid.New(grid.Config{
		Width:               rules.Grid.Width,
		Height:              rules.Grid.Height,
		AttachLimit:         rules.AttachLimit,
		GoalMoveProbability: rules.Grid.Goals.MoveProbability,
	}, r, w.logger)

	officer, err := norms.NewOfficer(norms.Config{
		Simultaneous: rules.Regulation.Simultaneous,
		Chance:       rules.Regulation.Chance,
	}, cats.Norms.Templates, r, w.logger)
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	w.officer = officer

	obstacles, err := w.generate()
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	if len(cfg.Setup) > 0 {
		w.runSetup(cfg.Setup)
	}
	w.static = w.buildStatic(obstacles)
	w.started = !cfg.WaitForAgents

	w.prepareStep(0)
	w.publish()
	w.storeMetrics(0)
	return w, nil
}

// generate builds terrain, zones, block types, entities and dispensers.
func (w *World) generate() (int, error) {
	rules := w.cfg.Rules
	instructions := make([]grid.Instruction, 0, len(rules.Grid.Instructions))
	for _, in := range rules.Grid.Instructions {
		instructions = append(instructions, grid.Instruction{
			Type:         in.Type,
			Width:        in.Width,
			ChanceAlive:  in.ChanceAlive,
			Iterations:   in.Iterations,
			CreateLimit:  in.CreateLimit,
			DestroyLimit: in.DestroyLimit,
		})
	}
	obstacles, err := w.grid.BuildTerrain(instructions)
	if err != nil {
		return 0, err
	}

	goals := rules.Grid.Goals
	w.grid.PopulateZones(grid.ZoneGoal, goals.Number, goals.Size[0], goals.Size[1])
	rz := rules.Grid.RoleZones
	w.grid.PopulateZones(grid.ZoneRole, rz.Number, rz.Size[0], rz.Size[1])

	n := w.rng.BetweenClosed(rules.BlockTypes[0], rules.BlockTypes[1])
	for i := 0; i < n; i++ {
		w.blockTypes = append(w.blockTypes, fmt.Sprintf("b%d", i))
	}

	if err := w.placeEntities(); err != nil {
		return 0, err
	}

	for _, typ := range w.blockTypes {
		count := w.rng.BetweenClosed(rules.Dispensers[0], rules.Dispensers[1])
		for i := 0; i < count; i++ {
			p, ok := w.grid.FindRandomFreePosition()
			if !ok {
				break
			}
			w.createDispenser(p, typ)
		}
	}
	return obstacles, nil
}

// placeEntities puts the i-th agent of every team on the same cell, in
// clusters of random size spread over the grid.
func (w *World) placeEntities() error {
	rules := w.cfg.Rules
	maxAgents := 0
	for _, tc := range rules.Teams {
		t := &Team{Name: tc.Name, Size: tc.Agents}
		w.teams = append(w.teams, t)
		w.teamByID[t.Name] = t
		maxAgents = max(maxAgents, tc.Agents)
	}

	remaining := make([]int, maxAgents)
	for i := range remaining {
		remaining[i] = i
	}
	def := w.catalogs.Roles.Roles[0]
	for len(remaining) > 0 {
		size := min(w.rng.BetweenClosed(rules.ClusterBounds[0], rules.ClusterBounds[1]), len(remaining))
		cluster, ok := w.grid.FindRandomFreeClusterPosition(size)
		if !ok {
			return fmt.Errorf("no room for a cluster of %d agents", size)
		}
		for _, p := range cluster {
			k := w.rng.Intn(len(remaining))
			idx := remaining[k]
			remaining = append(remaining[:k], remaining[k+1:]...)
			for _, tc := range rules.Teams {
				if idx >= tc.Agents {
					continue
				}
				if _, err := w.createEntity(p, agentName(tc.Name, idx), tc.Name, def); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func agentName(team string, idx int) string { return fmt.Sprintf("agent%s%d", team, idx+1) }

func (w *World) createEntity(p grid.Position, name, team string, role catalogs.Role) (*Entity, error) {
	if _, dup := w.byName[name]; dup {
		return nil, fmt.Errorf("duplicate agent %s", name)
	}
	obj, err := w.grid.Create(grid.KindEntity, p, name)
	if err != nil {
		return nil, err
	}
	e := newEntity(obj, w.grid, &w.energy, name, team, role)
	w.entities = append(w.entities, e)
	w.byName[name] = e
	w.byObj[obj.ID] = e
	return e, nil
}

func (w *World) isBlockType(typ string) bool {
	for _, t := range w.blockTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// createBlock and createObstacle keep a cell to at most one attachable.
func (w *World) createBlock(p grid.Position, typ string) (*grid.Object, bool) {
	if !w.isBlockType(typ) || !w.grid.IsUnblocked(p, nil) {
		return nil, false
	}
	o, err := w.grid.Create(grid.KindBlock, p, typ)
	return o, err == nil
}

func (w *World) createObstacle(p grid.Position) bool {
	if !w.grid.IsUnblocked(p, nil) {
		return false
	}
	_, err := w.grid.Create(grid.KindObstacle, p, "")
	return err == nil
}

func (w *World) createDispenser(p grid.Position, typ string) bool {
	if !w.isBlockType(typ) || !w.grid.IsUnblocked(p, nil) {
		return false
	}
	if _, err := w.grid.Create(grid.KindDispenser, p, typ); err != nil {
		return false
	}
	return true
}

// sortedEntities returns entities in name order.
func (w *World) sortedEntities() []*Entity {
	out := append([]*Entity(nil), w.entities...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (w *World) Entity(name string) (*Entity, bool) {
	e, ok := w.byName[name]
	return e, ok
}

func (w *World) Team(name string) (*Team, bool) {
	t, ok := w.teamByID[name]
	return t, ok
}

func (w *World) Task(name string) (*Task, bool) {
	t, ok := w.tasks[name]
	return t, ok
}

func (w *World) Grid() *grid.Grid        { return w.grid }
func (w *World) Officer() *norms.Officer { return w.officer }
func (w *World) BlockTypes() []string    { return append([]string(nil), w.blockTypes...) }

func (w *World) addStepEvent(agent string, ev protocol.Event) {
	w.stepEvents[agent] = append(w.stepEvents[agent], ev)
}

func (w *World) logEvent(ev observerproto.LogEvent) {
	w.logEvents = append(w.logEvents, ev)
}
