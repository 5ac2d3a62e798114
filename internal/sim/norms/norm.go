// Package norms draws temporary behavioural rules from weighted templates and
// punishes the agents that violate them.
package norms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/rng"
)

type Level string

const (
	LevelIndividual Level = "individual"
	LevelTeam       Level = "team"
)

type SubjectType string

const (
	SubjectRole  SubjectType = "role"
	SubjectBlock SubjectType = "block"
)

// Subject is one requirement of a norm as shown to agents and spectators.
type Subject struct {
	Type     SubjectType `json:"type"`
	Name     string      `json:"name"`
	Quantity int         `json:"quantity"`
	Details  string      `json:"details,omitempty"`
}

// Info is the public summary of a norm.
type Info struct {
	Name         string    `json:"name"`
	Start        int       `json:"start"`
	Until        int       `json:"until"`
	Level        Level     `json:"level"`
	Requirements []Subject `json:"requirements"`
	Punishment   int       `json:"punishment"`
}

// Agent is what a norm needs to know about an entity.
type Agent interface {
	Name() string
	Team() string
	RoleName() string
	// Carried is the size of the composite body without the agent itself.
	Carried() int
	Deactivated() bool
	DecreaseEnergy(n int)
}

// State is what a norm needs to know about the world when it is created.
type State interface {
	Teams() []string
	Roles() []string
	Agents() []Agent
}

// Rule is the variant part of a norm.
type Rule interface {
	Kind() string
	Level() Level
	bill(s State, r *rng.Rand, opt catalogs.NormOptional) error
	Enforce(agents []Agent) []Agent
	Requirements() []Subject
}

var factories = map[string]func() Rule{
	KindRoleIndividual: func() Rule { return &RoleIndividual{} },
	KindRoleTeam:       func() Rule { return &RoleTeam{} },
	KindCarry:          func() Rule { return &Carry{} },
	KindAdopt:          func() Rule { return &Adopt{} },
}

// Known reports whether a template name maps to a norm kind.
func Known(kind string) bool {
	_, ok := factories[kind]
	return ok
}

// Norm is a rule with its announcement and activity window.
type Norm struct {
	Name        string
	AnnouncedAt int
	Start       int
	Until       int
	Punishment  int
	Rule        Rule
}

func (n *Norm) Announced(step int) bool { return n.AnnouncedAt <= step && step < n.Start }
func (n *Norm) Active(step int) bool    { return n.Start <= step && step <= n.Until }

// Punish costs the agent energy unless it is already deactivated.
func (n *Norm) Punish(a Agent) {
	if a.Deactivated() {
		return
	}
	a.DecreaseEnergy(n.Punishment)
}

func (n *Norm) Info() Info {
	return Info{
		Name:         n.Name,
		Start:        n.Start,
		Until:        n.Until,
		Level:        n.Rule.Level(),
		Requirements: n.Rule.Requirements(),
		Punishment:   n.Punishment,
	}
}

func (n *Norm) String() string {
	reqs := make([]string, 0, 2)
	for _, s := range n.Rule.Requirements() {
		reqs = append(reqs, fmt.Sprintf("%s:%s:%d", s.Type, s.Name, s.Quantity))
	}
	return fmt.Sprintf("norm(name=%s,kind=%s,announced=%d,start=%d,until=%d,level=%s,req=[%s],pun=%d)",
		n.Name, n.Rule.Kind(), n.AnnouncedAt, n.Start, n.Until, n.Rule.Level(), strings.Join(reqs, ","), n.Punishment)
}

// byTeam groups agents by team, teams in name order, members in input order.
func byTeam(agents []Agent) ([]string, map[string][]Agent) {
	groups := map[string][]Agent{}
	for _, a := range agents {
		groups[a.Team()] = append(groups[a.Team()], a)
	}
	teams := make([]string, 0, len(groups))
	for t := range groups {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams, groups
}

// roleQuotaViolators returns, per team, every holder of role when the team
// has more holders than quota.
func roleQuotaViolators(agents []Agent, role string, quota int) []Agent {
	var out []Agent
	teams, groups := byTeam(agents)
	for _, t := range teams {
		var holders []Agent
		for _, a := range groups[t] {
			if a.RoleName() == role {
				holders = append(holders, a)
			}
		}
		if len(holders) > quota {
			out = append(out, holders...)
		}
	}
	return out
}
