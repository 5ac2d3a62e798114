package world

import (
	"encoding/json"
	"time"

	"github.com/agentcontest/massim-2022/internal/protocol"
)

// StepSummary is handed to the step sink after every resolved step.
type StepSummary struct {
	Sim         string
	Step        int
	Digest      string
	Actions     []RecordedAction
	Scores      map[string]int64
	Energies    []float64
	Deactivated int
	OpenTasks   int
	ActiveNorms int
	Violations  int
	Events      int
	StepMS      float64
}

// stepInternal resolves the current step. Joins and leaves are applied first;
// then one action per agent is taken from actions (the first one for the
// current step wins, stale ones are ignored).
func (w *World) stepInternal(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (int, string) {
	stepStart := time.Now()

	for _, name := range leaves {
		w.handleLeave(name)
	}
	for _, req := range joins {
		resp := w.joinAgent(req)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	step := w.step
	if w.finished {
		return step, w.stateDigest(step)
	}
	if !w.started {
		if len(w.clients) < len(w.entities) {
			return step, w.stateDigest(step)
		}
		w.started = true
		w.logger.Printf("all %d agents connected, starting", len(w.entities))
		w.sendRequests()
		return step, w.stateDigest(step)
	}

	intents := make(map[string]action, len(w.entities))
	for _, env := range actions {
		if _, ok := w.byName[env.Agent]; !ok || env.Act.Step != step {
			continue
		}
		if _, dup := intents[env.Agent]; dup {
			continue
		}
		intents[env.Agent] = action{Name: env.Act.Action, Params: env.Act.Params}
	}
	recorded := w.handleActions(step, intents)

	digest := w.stateDigest(step)
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{Tick: uint64(step), Actions: recorded, Digest: digest})
	}

	if step+1 >= w.cfg.Rules.Steps {
		w.finish()
	} else {
		w.prepareStep(step + 1)
		w.sendRequests()
	}

	// Snapshot every N steps and always at the end.
	if w.snapshotSink != nil {
		every := w.cfg.Rules.SnapshotEveryTicks
		if w.finished || (every > 0 && step != 0 && step%every == 0) {
			select {
			case w.snapshotSink <- w.ExportSnapshot():
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	if w.stepSink != nil {
		w.stepSink.ObserveStep(w.summarize(step, digest, recorded, stepMS))
	}

	w.stepObservers()
	w.publish()
	w.logEvents = nil
	w.storeMetrics(stepMS)
	return step, digest
}

// joinAgent binds a connection to the entity of the same name.
func (w *World) joinAgent(req JoinRequest) JoinResponse {
	e, ok := w.byName[req.Name]
	switch {
	case !ok:
		return JoinResponse{Code: protocol.ErrUnknownAgent}
	case w.finished:
		return JoinResponse{Code: protocol.ErrSimNotRunning}
	case w.clients[req.Name] != nil:
		return JoinResponse{Code: protocol.ErrAgentTaken}
	}
	w.clients[req.Name] = &clientState{Out: req.Out}
	w.logger.Printf("agent %s connected", req.Name)
	if w.started {
		w.sendRequest(e.name, req.Out)
	}
	return JoinResponse{OK: true, Start: w.simStart(e)}
}

func (w *World) simStart(e *Entity) protocol.SimStartMsg {
	roles := make([]protocol.RoleInfo, 0, len(w.catalogs.Roles.Roles))
	for _, r := range w.catalogs.Roles.Roles {
		roles = append(roles, protocol.RoleInfo{
			Name:             r.Name,
			Vision:           r.Vision,
			Actions:          append([]string(nil), r.Actions...),
			Speed:            append([]int(nil), r.Speed...),
			ClearChance:      r.ClearChance,
			ClearMaxDistance: r.ClearMaxDistance,
		})
	}
	team := w.teamByID[e.team]
	return protocol.SimStartMsg{
		Type:            protocol.TypeSimStart,
		ProtocolVersion: protocol.Version,
		Sim:             w.cfg.ID,
		Percept: protocol.InitialPercept{
			Name:     e.name,
			Team:     e.team,
			TeamSize: team.Size,
			Steps:    w.cfg.Rules.Steps,
			Roles:    roles,
			Catalogs: protocol.Digests{
				Roles:         w.catalogs.Roles.Digest,
				NormTemplates: w.catalogs.Norms.Digest,
			},
		},
	}
}

func (w *World) sendRequests() {
	for name, cl := range w.clients {
		w.sendRequest(name, cl.Out)
	}
}

func (w *World) sendRequest(name string, out chan []byte) {
	b, err := json.Marshal(protocol.RequestActionMsg{
		Type:            protocol.TypeRequestAction,
		ProtocolVersion: protocol.Version,
		Step:            w.step,
		Percept:         w.percepts[name],
	})
	if err != nil {
		w.logger.Printf("percept %s: %v", name, err)
		return
	}
	sendLatest(out, b)
}

// finish ends the match: every client gets its SIM_END and Done is closed.
func (w *World) finish() {
	w.finished = true
	for name, cl := range w.clients {
		b, err := json.Marshal(w.simEnd(w.byName[name]))
		if err != nil {
			continue
		}
		sendLatest(cl.Out, b)
	}
	for _, r := range rankTeams(w.teams) {
		w.logger.Printf("team %s: rank %d score %d", r.Name, r.Rank, r.Score)
	}
	w.result.Store(w.Result())
	close(w.done)
}

func (w *World) summarize(step int, digest string, recorded []RecordedAction, stepMS float64) StepSummary {
	s := StepSummary{
		Sim:         w.cfg.ID,
		Step:        step,
		Digest:      digest,
		Actions:     recorded,
		Scores:      map[string]int64{},
		Energies:    make([]float64, 0, len(w.entities)),
		OpenTasks:   len(w.openTasks(w.step)),
		ActiveNorms: len(w.officer.Active(w.step)),
		Violations:  len(w.violations),
		Events:      len(w.logEvents),
		StepMS:      stepMS,
	}
	for _, t := range w.teams {
		s.Scores[t.Name] = t.Score
	}
	for _, e := range w.sortedEntities() {
		s.Energies = append(s.Energies, float64(e.energy))
		if e.Deactivated() {
			s.Deactivated++
		}
	}
	return s
}
