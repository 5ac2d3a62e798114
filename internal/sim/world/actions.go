package world

import (
	"strconv"

	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

// action is one agent's intent for the step being resolved.
type action struct {
	Name   string
	Params []string
}

// handleActions resolves one intent per entity in a seeded random order.
// Entities without an intent do nothing.
func (w *World) handleActions(step int, actions map[string]action) []RecordedAction {
	order := w.sortedEntities()
	w.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, e := range order {
		act, ok := actions[e.name]
		if !ok {
			act = action{Name: protocol.ActionNoAction}
			actions[e.name] = act
		}
		e.setNewAction(act.Name, act.Params)
		switch {
		case e.Deactivated():
			e.setResult(protocol.ResultFailedStatus)
		case w.rng.Percent(w.cfg.Rules.RandomFail):
			e.setResult(protocol.ResultFailedRandom)
		}
	}

	// survey x y targets the entities where they stood before anyone moved
	previous := make(map[grid.Position]*Entity, len(order))
	for _, e := range w.sortedEntities() {
		if _, taken := previous[e.Pos()]; !taken {
			previous[e.Pos()] = e
		}
	}

	for _, e := range order {
		if e.lastResult != protocol.ResultUnprocessed {
			continue
		}
		if !e.CanPerform(e.lastAction) {
			e.setResult(protocol.ResultFailedRole)
			continue
		}
		w.dispatch(step, e, actions, previous)
	}

	out := make([]RecordedAction, 0, len(order))
	for _, e := range w.sortedEntities() {
		out = append(out, RecordedAction{
			Agent:  e.name,
			Action: e.lastAction,
			Params: e.LastParams(),
			Result: e.lastResult,
		})
	}
	return out
}

func (w *World) dispatch(step int, e *Entity, actions map[string]action, previous map[grid.Position]*Entity) {
	p := e.lastParams
	var result string
	switch e.lastAction {
	case protocol.ActionNoAction, protocol.ActionSkip:
		result = protocol.ResultSuccess
	case protocol.ActionMove:
		result = w.handleMove(e, p)
	case protocol.ActionAttach:
		result = w.handleAttach(e, p)
	case protocol.ActionDetach:
		result = w.handleDetach(e, p)
	case protocol.ActionRotate:
		result = w.handleRotate(e, p)
	case protocol.ActionConnect:
		// the handshake sets both results itself
		w.handleConnectHandshake(step, e, actions)
		return
	case protocol.ActionDisconnect:
		result = w.handleDisconnect(e, p)
	case protocol.ActionRequest:
		result = w.handleRequest(e, p)
	case protocol.ActionSubmit:
		result = w.handleSubmit(step, e, p)
	case protocol.ActionClear:
		result = w.handleClear(step, e, p)
	case protocol.ActionSurvey:
		result = w.handleSurvey(e, p, previous)
	case protocol.ActionAdopt:
		result = w.handleAdopt(step, e, p)
	default:
		result = protocol.ResultUnknownAction
	}
	e.setResult(result)
}

// handleConnectHandshake checks that the partner asked to connect with e in
// the same step and gives both of them the outcome.
func (w *World) handleConnectHandshake(step int, e *Entity, actions map[string]action) {
	p := e.lastParams
	if len(p) != 3 {
		e.setResult(protocol.ResultFailedParameter)
		return
	}
	partner, ok := w.byName[p[0]]
	x, errX := strconv.Atoi(p[1])
	y, errY := strconv.Atoi(p[2])
	if !ok || partner == e || errX != nil || errY != nil {
		e.setResult(protocol.ResultFailedParameter)
		return
	}
	pa, ok := actions[partner.name]
	if !ok || pa.Name != protocol.ActionConnect ||
		partner.lastResult != protocol.ResultUnprocessed ||
		!partner.CanPerform(protocol.ActionConnect) ||
		len(pa.Params) != 3 || pa.Params[0] != e.name {
		e.setResult(protocol.ResultFailedPartner)
		return
	}
	px, errX := strconv.Atoi(pa.Params[1])
	py, errY := strconv.Atoi(pa.Params[2])
	if errX != nil || errY != nil {
		e.setResult(protocol.ResultFailedPartner)
		partner.setResult(protocol.ResultFailedParameter)
		return
	}
	result := w.handleConnect(step, e, grid.Position{X: x, Y: y}, partner, grid.Position{X: px, Y: py})
	e.setResult(result)
	partner.setResult(result)
}

func intParams(p []string, n int) ([]int, bool) {
	if len(p) != n {
		return nil, false
	}
	out := make([]int, n)
	for i, s := range p {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func directionParam(p []string) (grid.Direction, bool) {
	if len(p) != 1 {
		return "", false
	}
	return grid.ParseDirection(p[0])
}
