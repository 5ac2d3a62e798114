package norms

import (
	"errors"
	"math"
	"sort"

	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/rng"
)

const (
	KindRoleIndividual = "RoleIndividual"
	KindRoleTeam       = "RoleTeam"
	KindCarry          = "Carry"
	KindAdopt          = "Adopt"
)

var errNoRoles = errors.New("no roles to prohibit")

// RoleIndividual forbids every agent from holding one role.
type RoleIndividual struct {
	Role string
}

func NewRoleIndividual(role string) *RoleIndividual { return &RoleIndividual{Role: role} }

func (n *RoleIndividual) Kind() string { return KindRoleIndividual }
func (n *RoleIndividual) Level() Level { return LevelIndividual }

func (n *RoleIndividual) bill(s State, r *rng.Rand, _ catalogs.NormOptional) error {
	role, err := pickRole(s, r)
	if err != nil {
		return err
	}
	n.Role = role
	return nil
}

func (n *RoleIndividual) Enforce(agents []Agent) []Agent {
	var out []Agent
	for _, a := range agents {
		if a.RoleName() == n.Role {
			out = append(out, a)
		}
	}
	return out
}

func (n *RoleIndividual) Requirements() []Subject {
	return []Subject{{Type: SubjectRole, Name: n.Role, Quantity: 1}}
}

// RoleTeam limits how many agents of a team may hold one role.
type RoleTeam struct {
	Role  string
	Quota int
}

func NewRoleTeam(role string, quota int) *RoleTeam { return &RoleTeam{Role: role, Quota: quota} }

func (n *RoleTeam) Kind() string { return KindRoleTeam }
func (n *RoleTeam) Level() Level { return LevelTeam }

func (n *RoleTeam) bill(s State, r *rng.Rand, opt catalogs.NormOptional) error {
	role, err := pickRole(s, r)
	if err != nil {
		return err
	}
	n.Role = role
	lo, hi := 1, 1
	if len(opt.Quantity) == 2 && opt.Quantity[0] >= 0 && opt.Quantity[0] <= opt.Quantity[1] {
		lo, hi = opt.Quantity[0], opt.Quantity[1]
	}
	n.Quota = r.BetweenClosed(lo, hi)
	return nil
}

func (n *RoleTeam) Enforce(agents []Agent) []Agent {
	return roleQuotaViolators(agents, n.Role, n.Quota)
}

func (n *RoleTeam) Requirements() []Subject {
	return []Subject{{Type: SubjectRole, Name: n.Role, Quantity: n.Quota}}
}

// Carry limits how many things an agent may have attached.
type Carry struct {
	Max int
}

func NewCarry(limit int) *Carry { return &Carry{Max: limit} }

func (n *Carry) Kind() string { return KindCarry }
func (n *Carry) Level() Level { return LevelIndividual }

func (n *Carry) bill(_ State, r *rng.Rand, opt catalogs.NormOptional) error {
	lo, hi := 0, 4
	if len(opt.Quantity) == 2 {
		qlo, qhi := opt.Quantity[0], opt.Quantity[1]
		if qlo < 0 {
			qlo = 0
		}
		if qlo <= qhi {
			lo, hi = qlo, qhi
		}
	}
	n.Max = r.BetweenClosed(lo, hi)
	return nil
}

func (n *Carry) Enforce(agents []Agent) []Agent {
	var out []Agent
	for _, a := range agents {
		if a.Carried() > n.Max {
			out = append(out, a)
		}
	}
	return out
}

func (n *Carry) Requirements() []Subject {
	return []Subject{{Type: SubjectBlock, Name: "any", Quantity: n.Max}}
}

// Adopt caps a popular role per team at a share of its current peak usage.
type Adopt struct {
	Role string
	Max  int
}

func NewAdopt(role string, limit int) *Adopt { return &Adopt{Role: role, Max: limit} }

func (n *Adopt) Kind() string { return KindAdopt }
func (n *Adopt) Level() Level { return LevelTeam }

func (n *Adopt) bill(s State, r *rng.Rand, opt catalogs.NormOptional) error {
	pct := 1.0
	if opt.Playing != nil {
		pct = float64(*opt.Playing) / 100
	}

	counts := map[string]map[string]int{}
	total := 0
	for _, a := range s.Agents() {
		if counts[a.RoleName()] == nil {
			counts[a.RoleName()] = map[string]int{}
		}
		counts[a.RoleName()][a.Team()]++
		total++
	}
	if total == 0 {
		role, err := pickRole(s, r)
		if err != nil {
			return err
		}
		n.Role, n.Max = role, 0
		return nil
	}

	roles := make([]string, 0, len(counts))
	for role := range counts {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	// Weighted by how many agents hold each role.
	p := r.Float64() * float64(total)
	n.Role = roles[len(roles)-1]
	acc := 0
	for _, role := range roles {
		for _, c := range counts[role] {
			acc += c
		}
		if float64(acc) > p {
			n.Role = role
			break
		}
	}

	peak := 0
	for _, c := range counts[n.Role] {
		if c > peak {
			peak = c
		}
	}
	n.Max = int(math.Ceil(float64(peak) * pct))
	return nil
}

func (n *Adopt) Enforce(agents []Agent) []Agent {
	return roleQuotaViolators(agents, n.Role, n.Max)
}

func (n *Adopt) Requirements() []Subject {
	return []Subject{{Type: SubjectRole, Name: n.Role, Quantity: n.Max}}
}

func pickRole(s State, r *rng.Rand) (string, error) {
	roles := s.Roles()
	i := r.Pick(len(roles))
	if i < 0 {
		return "", errNoRoles
	}
	return roles[i], nil
}
