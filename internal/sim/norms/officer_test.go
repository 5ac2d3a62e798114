package norms

import (
	"errors"
	"testing"

	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/rng"
)

type fakeAgent struct {
	name        string
	team        string
	role        string
	carried     int
	energy      int
	deactivated bool
}

func (a *fakeAgent) Name() string      { return a.name }
func (a *fakeAgent) Team() string      { return a.team }
func (a *fakeAgent) RoleName() string  { return a.role }
func (a *fakeAgent) Carried() int      { return a.carried }
func (a *fakeAgent) Deactivated() bool { return a.deactivated }
func (a *fakeAgent) DecreaseEnergy(n int) {
	a.energy -= n
	if a.energy <= 0 {
		a.energy = 0
		a.deactivated = true
	}
}

type fakeState struct {
	teams  []string
	roles  []string
	agents []*fakeAgent
}

func (s *fakeState) Teams() []string { return s.teams }
func (s *fakeState) Roles() []string { return s.roles }
func (s *fakeState) Agents() []Agent {
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	return out
}

func newState() *fakeState {
	s := &fakeState{teams: []string{"A", "B"}, roles: []string{"default", "worker", "explorer"}}
	for _, n := range []string{"A1", "A2", "A3"} {
		s.agents = append(s.agents, &fakeAgent{name: n, team: "A", role: "default", energy: 100})
	}
	for _, n := range []string{"B1", "B2"} {
		s.agents = append(s.agents, &fakeAgent{name: n, team: "B", role: "default", energy: 100})
	}
	return s
}

func template(name string, opt catalogs.NormOptional) catalogs.NormTemplate {
	return catalogs.NormTemplate{
		Name:         name,
		Chance:       15,
		Duration:     [2]int{100, 200},
		Announcement: [2]int{10, 20},
		Punishment:   [2]int{10, 20},
		Optional:     opt,
	}
}

func newOfficer(t *testing.T, tpl catalogs.NormTemplate) *Officer {
	t.Helper()
	o, err := NewOfficer(Config{Simultaneous: 1, Chance: 100}, []catalogs.NormTemplate{tpl}, rng.New(17), nil)
	if err != nil {
		t.Fatalf("officer: %v", err)
	}
	return o
}

func agents(list ...*fakeAgent) []Agent {
	out := make([]Agent, 0, len(list))
	for _, a := range list {
		out = append(out, a)
	}
	return out
}

func TestCarryNormPunishesHeavyCarriers(t *testing.T) {
	o := newOfficer(t, template(KindCarry, catalogs.NormOptional{Quantity: []int{1, 1}}))
	s := newState()
	n := o.CreateNorms(1, s)
	if n == nil {
		t.Fatalf("expected a norm")
	}
	if n.Name != "n1" || n.AnnouncedAt != 1 || n.Start < 11 || n.Start > 21 || n.Until-n.Start < 100 {
		t.Fatalf("unexpected window: %s", n)
	}

	a1 := s.agents[0]
	a1.carried = 1
	o.RegulateNorms(25, agents(a1))
	if a1.energy != 100 {
		t.Fatalf("carrying one thing is allowed, energy %d", a1.energy)
	}

	a1.carried = 2
	recs := o.RegulateNorms(25, agents(a1))
	if a1.energy >= 100 {
		t.Fatalf("expected punishment")
	}
	if len(recs) != 1 || recs[0] != (Record{Norm: "n1", Agent: "A1"}) {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if got := o.Archive(25); len(got) != 1 {
		t.Fatalf("archive: %+v", got)
	}
	if v := o.Violations(25, "A1"); len(v) != 1 || v[0] != "n1" {
		t.Fatalf("violations: %v", v)
	}

	for i := 0; i <= 30; i++ {
		o.RegulateNorms(26, agents(a1))
	}
	if !a1.deactivated || a1.energy != 0 {
		t.Fatalf("expected deactivation, energy=%d", a1.energy)
	}
}

func TestDeactivatedViolatorIsRecordedButNotPunished(t *testing.T) {
	o := newOfficer(t, template(KindCarry, catalogs.NormOptional{Quantity: []int{0, 0}}))
	o.CreateNorms(1, newState())
	a := &fakeAgent{name: "A1", team: "A", role: "default", carried: 1, energy: 0, deactivated: true}
	recs := o.RegulateNorms(30, agents(a))
	if len(recs) != 1 || a.energy != 0 {
		t.Fatalf("records=%v energy=%d", recs, a.energy)
	}
}

func TestRoleIndividualNorm(t *testing.T) {
	o := newOfficer(t, template(KindRoleIndividual, catalogs.NormOptional{}))
	s := newState()
	n := o.CreateNorms(1, s)
	if n == nil {
		t.Fatalf("expected a norm")
	}
	role := n.Info().Requirements[0].Name
	other := "default"
	if role == other {
		other = "worker"
	}

	a1 := s.agents[0]
	a1.role = other
	o.RegulateNorms(25, agents(a1))
	if a1.energy != 100 {
		t.Fatalf("agent with an allowed role punished")
	}
	a1.role = role
	o.RegulateNorms(25, agents(a1))
	if a1.energy >= 100 {
		t.Fatalf("agent with the prohibited role not punished")
	}
	if n.Info().Level != LevelIndividual {
		t.Fatalf("level: %s", n.Info().Level)
	}
}

func TestRoleTeamNormCountsPerTeam(t *testing.T) {
	o := newOfficer(t, template(KindRoleTeam, catalogs.NormOptional{}))
	s := newState()
	n := o.CreateNorms(1, s)
	if n == nil {
		t.Fatalf("expected a norm")
	}
	req := n.Info().Requirements[0]
	if req.Quantity != 1 || n.Info().Level != LevelTeam {
		t.Fatalf("default quota must be 1 at team level: %+v", n.Info())
	}
	other := "default"
	if req.Name == other {
		other = "worker"
	}
	a1, a2, a3, b1 := s.agents[0], s.agents[1], s.agents[2], s.agents[3]
	a1.role, a2.role, a3.role, b1.role = req.Name, other, other, req.Name
	all := agents(a1, a2, a3, b1)

	o.RegulateNorms(25, all)
	for _, a := range []*fakeAgent{a1, a2, a3, b1} {
		if a.energy != 100 {
			t.Fatalf("%s punished below quota", a.name)
		}
	}

	a2.role = req.Name
	o.RegulateNorms(25, all)
	if a1.energy >= 100 || a2.energy >= 100 {
		t.Fatalf("team A holders should be punished")
	}
	if a3.energy != 100 || b1.energy != 100 {
		t.Fatalf("a3/b1 should not be punished")
	}
}

func TestAdoptNormCapsShareOfPeakUsage(t *testing.T) {
	playing := 50
	o := newOfficer(t, template(KindAdopt, catalogs.NormOptional{Playing: &playing}))
	s := newState()
	for _, a := range s.agents {
		a.role = "worker"
	}
	n := o.CreateNorms(1, s)
	if n == nil {
		t.Fatalf("expected a norm")
	}
	req := n.Info().Requirements[0]
	// Team A has 3 workers: ceil(3 * 0.5) = 2.
	if req.Name != "worker" || req.Quantity != 2 {
		t.Fatalf("unexpected requirement: %+v", req)
	}
	o.RegulateNorms(30, s.Agents())
	for _, a := range s.agents {
		punished := a.energy < 100
		if a.team == "A" && !punished {
			t.Fatalf("%s should be punished", a.name)
		}
		if a.team == "B" && punished {
			t.Fatalf("%s should not be punished", a.name)
		}
	}
}

func TestCreateNormsRespectsSimultaneousCap(t *testing.T) {
	o := newOfficer(t, template(KindCarry, catalogs.NormOptional{}))
	s := newState()
	if o.CreateNorms(1, s) == nil {
		t.Fatalf("expected first norm")
	}
	if o.CreateNorms(2, s) != nil {
		t.Fatalf("cap of one approved norm exceeded")
	}
	if len(o.Announced(2)) != 1 || len(o.Active(2)) != 0 || len(o.Approved(2)) != 1 {
		t.Fatalf("norm should be announced only at step 2")
	}
}

func TestCreateNormsZeroChance(t *testing.T) {
	o, err := NewOfficer(Config{Simultaneous: 3, Chance: 0}, []catalogs.NormTemplate{template(KindCarry, catalogs.NormOptional{})}, rng.New(1), nil)
	if err != nil {
		t.Fatalf("officer: %v", err)
	}
	for step := 0; step < 50; step++ {
		if o.CreateNorms(step, newState()) != nil {
			t.Fatalf("no norm expected with zero chance")
		}
	}
}

func TestNewOfficerRejectsUnknownTemplate(t *testing.T) {
	if _, err := NewOfficer(Config{}, []catalogs.NormTemplate{{Name: "Block"}}, rng.New(1), nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewOfficerRejectsNegativePunishment(t *testing.T) {
	tpl := template(KindCarry, catalogs.NormOptional{})
	tpl.Punishment = [2]int{-40, -40}
	if _, err := NewOfficer(Config{}, []catalogs.NormTemplate{tpl}, rng.New(1), nil); err == nil {
		t.Fatalf("expected error for a negative punishment")
	}
}

func TestCarryInfo(t *testing.T) {
	o := newOfficer(t, template(KindCarry, catalogs.NormOptional{}))
	n := o.Add(10, 10, 20, 10, NewCarry(1))
	info := n.Info()
	if info.Name != "n1" || info.Start != 10 || info.Until != 20 || info.Punishment != 10 || info.Level != LevelIndividual {
		t.Fatalf("info: %+v", info)
	}
	if len(info.Requirements) != 1 || info.Requirements[0] != (Subject{Type: SubjectBlock, Name: "any", Quantity: 1}) {
		t.Fatalf("requirements: %+v", info.Requirements)
	}
}

func TestRoleNormsBillFromKnownRoles(t *testing.T) {
	s := newState()
	r := rng.New(5)
	known := map[string]bool{}
	for _, role := range s.roles {
		known[role] = true
	}
	for i := 0; i < 50; i++ {
		ind := &RoleIndividual{}
		if err := ind.bill(s, r, catalogs.NormOptional{}); err != nil || !known[ind.Role] {
			t.Fatalf("RoleIndividual billed %q, err=%v", ind.Role, err)
		}
		team := &RoleTeam{}
		if err := team.bill(s, r, catalogs.NormOptional{}); err != nil || !known[team.Role] {
			t.Fatalf("RoleTeam billed %q, err=%v", team.Role, err)
		}
	}

	s.roles = nil
	if err := (&RoleIndividual{}).bill(s, r, catalogs.NormOptional{}); !errors.Is(err, errNoRoles) {
		t.Fatalf("RoleIndividual without roles: %v", err)
	}
	if err := (&RoleTeam{}).bill(s, r, catalogs.NormOptional{}); !errors.Is(err, errNoRoles) {
		t.Fatalf("RoleTeam without roles: %v", err)
	}
}
