package norms

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/rng"
)

// Config holds the regulation settings of a match.
type Config struct {
	// Simultaneous caps the number of announced or active norms.
	Simultaneous int
	// Chance is the percent chance per step that a new norm is drawn.
	Chance float64
}

// Record is one violation of one norm by one agent.
type Record struct {
	Norm  string `json:"norm"`
	Agent string `json:"who"`
}

type weighted struct {
	tpl catalogs.NormTemplate
	cum float64
}

// Officer creates norms from templates and enforces the active ones.
type Officer struct {
	cfg       Config
	rng       *rng.Rand
	logger    *log.Logger
	templates []weighted
	total     float64

	nextID  int
	norms   []*Norm
	archive map[int][]Record
}

func NewOfficer(cfg Config, templates []catalogs.NormTemplate, r *rng.Rand, logger *log.Logger) (*Officer, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	o := &Officer{
		cfg:     cfg,
		rng:     r,
		logger:  logger,
		nextID:  1,
		archive: map[int][]Record{},
	}
	for _, t := range templates {
		if !Known(t.Name) {
			return nil, fmt.Errorf("unknown norm template %q", t.Name)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("norm template: %w", err)
		}
		o.total += t.Chance
		o.templates = append(o.templates, weighted{tpl: t, cum: o.total})
	}
	return o, nil
}

// Norms returns every norm ever created, oldest first.
func (o *Officer) Norms() []*Norm { return append([]*Norm(nil), o.norms...) }

func (o *Officer) filter(keep func(*Norm) bool) []*Norm {
	var out []*Norm
	for _, n := range o.norms {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func (o *Officer) Active(step int) []*Norm {
	return o.filter(func(n *Norm) bool { return n.Active(step) })
}

func (o *Officer) Announced(step int) []*Norm {
	return o.filter(func(n *Norm) bool { return n.Announced(step) })
}

// Approved are the norms that are announced or active at step.
func (o *Officer) Approved(step int) []*Norm {
	return o.filter(func(n *Norm) bool { return n.Announced(step) || n.Active(step) })
}

// Archive returns a copy of the violations recorded at step.
func (o *Officer) Archive(step int) []Record {
	return append([]Record(nil), o.archive[step]...)
}

// Violations lists the norms the agent violated at step, sorted.
func (o *Officer) Violations(step int, agent string) []string {
	set := map[string]struct{}{}
	for _, r := range o.archive[step] {
		if r.Agent == agent {
			set[r.Norm] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CreateNorms may draw one new norm. It returns the norm if one was created.
func (o *Officer) CreateNorms(step int, s State) *Norm {
	if len(o.Approved(step)) >= o.cfg.Simultaneous {
		return nil
	}
	if o.rng.Float64()*100 >= o.cfg.Chance {
		return nil
	}
	if len(o.templates) == 0 {
		return nil
	}
	p := o.rng.Float64() * o.total
	for _, w := range o.templates {
		if w.cum < p {
			continue
		}
		n, err := o.create(step, w.tpl, s)
		if err != nil {
			o.logger.Printf("norm %s not created: %v", w.tpl.Name, err)
			return nil
		}
		return n
	}
	return nil
}

func (o *Officer) create(step int, t catalogs.NormTemplate, s State) (*Norm, error) {
	rule := factories[t.Name]()
	duration := o.rng.BetweenClosed(t.Duration[0], t.Duration[1])
	announce := o.rng.BetweenClosed(t.Announcement[0], t.Announcement[1])
	punishment := o.rng.BetweenClosed(t.Punishment[0], t.Punishment[1])
	if err := rule.bill(s, o.rng, t.Optional); err != nil {
		return nil, err
	}
	n := &Norm{
		Name:        fmt.Sprintf("n%d", o.nextID),
		AnnouncedAt: step,
		Start:       step + announce,
		Until:       step + announce + duration,
		Punishment:  punishment,
		Rule:        rule,
	}
	o.nextID++
	o.norms = append(o.norms, n)
	o.logger.Printf("created %s", n)
	return n, nil
}

// Add registers a norm built outside the template draw and names it.
func (o *Officer) Add(announcedAt, start, until, punishment int, rule Rule) *Norm {
	n := &Norm{
		Name:        fmt.Sprintf("n%d", o.nextID),
		AnnouncedAt: announcedAt,
		Start:       start,
		Until:       until,
		Punishment:  punishment,
		Rule:        rule,
	}
	o.nextID++
	o.norms = append(o.norms, n)
	return n
}

// RegulateNorms enforces every active norm, punishes the violators and
// archives the violations under step.
func (o *Officer) RegulateNorms(step int, agents []Agent) []Record {
	var records []Record
	for _, n := range o.Active(step) {
		for _, a := range n.Rule.Enforce(agents) {
			n.Punish(a)
			records = append(records, Record{Norm: n.Name, Agent: a.Name()})
			o.logger.Printf("%s violated %s", a.Name(), n.Name)
		}
	}
	if len(records) > 0 {
		o.archive[step] = records
	}
	return records
}
