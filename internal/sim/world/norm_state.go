package world

import (
	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/norms"
)

// normState exposes the world to the officer when it bills a new norm.
type normState struct{ w *World }

func (s normState) Teams() []string {
	out := make([]string, 0, len(s.w.teams))
	for _, t := range s.w.teams {
		out = append(out, t.Name)
	}
	return out
}

func (s normState) Roles() []string {
	out := make([]string, 0, len(s.w.catalogs.Roles.Roles))
	for _, r := range s.w.catalogs.Roles.Roles {
		out = append(out, r.Name)
	}
	return out
}

func (s normState) Agents() []norms.Agent { return s.w.normAgents() }

// normAgents lists the entities in name order.
func (w *World) normAgents() []norms.Agent {
	sorted := w.sortedEntities()
	out := make([]norms.Agent, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, e)
	}
	return out
}

func normInfo(n *norms.Norm) protocol.NormInfo {
	info := n.Info()
	out := protocol.NormInfo{
		Name:       info.Name,
		Start:      info.Start,
		Until:      info.Until,
		Level:      string(info.Level),
		Punishment: info.Punishment,
	}
	for _, s := range info.Requirements {
		out.Requirements = append(out.Requirements, protocol.NormSubject{
			Type:     string(s.Type),
			Name:     s.Name,
			Quantity: s.Quantity,
			Details:  s.Details,
		})
	}
	return out
}
