package worldtest

import (
	"encoding/json"
	"testing"

	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	world "github.com/agentcontest/massim-2022/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - every agent joins through StepOnce() before the first step
// - Step()/StepAll() send ACTION for the step each agent was asked about
// - per-agent Out channels carry REQUEST_ACTION and SIM_END JSON
// - ExportSnapshot/Debug* helpers provide deterministic preconditions
//
// It intentionally avoids touching world internals so tests can live outside the world package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	sessions map[string]*session
}

type session struct {
	Name    string
	Out     chan []byte
	Start   protocol.SimStartMsg
	request protocol.RequestActionMsg
	end     *protocol.SimEndMsg
}

// NewHarness builds the world and connects all of its agents. The world holds
// step 0 until the last agent has joined.
func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	cfg.WaitForAgents = true
	w, err := world.New(cfg, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	h := &Harness{T: t, Cats: cats, W: w, sessions: map[string]*session{}}
	h.joinAll()
	return h
}

func (h *Harness) joinAll() {
	h.T.Helper()
	names := h.W.AgentNames()
	joins := make([]world.JoinRequest, 0, len(names))
	resps := make(map[string]chan world.JoinResponse, len(names))
	for _, name := range names {
		s := &session{Name: name, Out: make(chan []byte, 16)}
		h.sessions[name] = s
		resps[name] = make(chan world.JoinResponse, 1)
		joins = append(joins, world.JoinRequest{Name: name, Out: s.Out, Resp: resps[name]})
	}
	_, _ = h.W.StepOnce(joins, nil, nil)
	for name, ch := range resps {
		jr := <-ch
		if !jr.OK {
			h.T.Fatalf("join %s: %s", name, jr.Code)
		}
		h.sessions[name].Start = jr.Start
	}
	h.drainAll()
}

// Request is the last REQUEST_ACTION received by the agent.
func (h *Harness) Request(agent string) protocol.RequestActionMsg {
	h.T.Helper()
	return h.session(agent).request
}

func (h *Harness) Percept(agent string) protocol.StepPercept {
	return h.Request(agent).Percept
}

// SimEnd returns the final message of the agent, if the match is over.
func (h *Harness) SimEnd(agent string) (protocol.SimEndMsg, bool) {
	h.T.Helper()
	s := h.session(agent)
	if s.end == nil {
		return protocol.SimEndMsg{}, false
	}
	return *s.end, true
}

// Step sends one action for agent and lets every other agent idle.
func (h *Harness) Step(agent, action string, params ...string) protocol.StepPercept {
	h.T.Helper()
	h.StepAll(map[string][]string{agent: append([]string{action}, params...)})
	return h.Percept(agent)
}

// StepAll sends an action per agent, written as {name, params...}.
func (h *Harness) StepAll(actions map[string][]string) {
	h.T.Helper()
	envs := make([]world.ActionEnvelope, 0, len(actions))
	for _, name := range h.W.AgentNames() {
		a, ok := actions[name]
		if !ok || len(a) == 0 {
			continue
		}
		envs = append(envs, world.ActionEnvelope{
			Agent: name,
			Act: protocol.ActionMsg{
				Type:            protocol.TypeAction,
				ProtocolVersion: protocol.Version,
				Step:            h.Request(name).Step,
				Action:          a[0],
				Params:          a[1:],
			},
		})
	}
	h.StepMulti(envs)
}

func (h *Harness) StepMulti(actions []world.ActionEnvelope) (step int, digest string) {
	h.T.Helper()
	step, digest = h.W.StepOnce(nil, nil, actions)
	h.drainAll()
	return step, digest
}

func (h *Harness) StepNoop() (step int, digest string) {
	return h.StepMulti(nil)
}

func (h *Harness) Snapshot() snapshot.SnapshotV1 {
	return h.W.ExportSnapshot()
}

func (h *Harness) session(agent string) *session {
	h.T.Helper()
	s := h.sessions[agent]
	if s == nil {
		h.T.Fatalf("unknown agent: %q", agent)
	}
	return s
}

func (h *Harness) drainAll() {
	h.T.Helper()
	for _, s := range h.sessions {
		h.drainOne(s)
	}
}

func (h *Harness) drainOne(s *session) {
	h.T.Helper()
	for {
		select {
		case b := <-s.Out:
			h.decode(s, b)
			continue
		default:
		}
		return
	}
}

func (h *Harness) decode(s *session, b []byte) {
	h.T.Helper()
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		h.T.Fatalf("unmarshal message for %s: %v", s.Name, err)
	}
	switch head.Type {
	case protocol.TypeRequestAction:
		var req protocol.RequestActionMsg
		if err := json.Unmarshal(b, &req); err != nil {
			h.T.Fatalf("unmarshal REQUEST_ACTION: %v", err)
		}
		s.request = req
	case protocol.TypeSimEnd:
		var end protocol.SimEndMsg
		if err := json.Unmarshal(b, &end); err != nil {
			h.T.Fatalf("unmarshal SIM_END: %v", err)
		}
		s.end = &end
	default:
		h.T.Fatalf("unexpected %s message for %s", head.Type, s.Name)
	}
}
