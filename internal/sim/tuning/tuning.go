package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Steps              int `yaml:"steps"`
	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	RandomFail          int    `yaml:"random_fail"`
	AttachLimit         int    `yaml:"attach_limit"`
	ClusterBounds       [2]int `yaml:"cluster_bounds"`
	MaxEnergy           int    `yaml:"max_energy"`
	RefreshEnergy       int    `yaml:"refresh_energy"`
	StepRecharge        int    `yaml:"step_recharge"`
	DeactivatedDuration int    `yaml:"deactivated_duration"`
	ClearEnergyCost     int    `yaml:"clear_energy_cost"`
	ClearDamage         []int  `yaml:"clear_damage"`
	BlockTypes          [2]int `yaml:"block_types"`
	Dispensers          [2]int `yaml:"dispensers"`

	Grid       Grid       `yaml:"grid"`
	Tasks      Tasks      `yaml:"tasks"`
	Events     Events     `yaml:"events"`
	Regulation Regulation `yaml:"regulation"`
	Teams      []Team     `yaml:"teams"`

	// Setup names an optional command file applied after world generation.
	Setup string `yaml:"setup"`
}

type Grid struct {
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	Instructions []Instruction `yaml:"instructions"`
	Goals        Goals         `yaml:"goals"`
	RoleZones    Zones         `yaml:"role_zones"`
}

type Instruction struct {
	Type         string  `yaml:"type"`
	Width        int     `yaml:"width"`
	ChanceAlive  float64 `yaml:"chance_alive"`
	Iterations   int     `yaml:"iterations"`
	CreateLimit  int     `yaml:"create_limit"`
	DestroyLimit int     `yaml:"destroy_limit"`
}

type Zones struct {
	Number int    `yaml:"number"`
	Size   [2]int `yaml:"size"`
}

type Goals struct {
	Zones           `yaml:",inline"`
	MoveProbability float64 `yaml:"move_probability"`
}

type Tasks struct {
	Size       [2]int `yaml:"size"`
	Duration   [2]int `yaml:"duration"`
	Iterations [2]int `yaml:"iterations"`
	Concurrent int    `yaml:"concurrent"`
}

type Events struct {
	// Chance is the percent chance per step of a new clear event.
	Chance    int    `yaml:"chance"`
	Radius    [2]int `yaml:"radius"`
	Warning   int    `yaml:"warning"`
	Create    [2]int `yaml:"create"`
	Perimeter int    `yaml:"perimeter"`
}

type Regulation struct {
	Simultaneous int `yaml:"simultaneous"`
	// Chance is the percent chance per step of drawing a new norm.
	Chance float64 `yaml:"chance"`
}

type Team struct {
	Name   string `yaml:"name"`
	Agents int    `yaml:"agents"`
}

// Defaults returns the rule set used when no tuning file overrides it.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		Steps:               750,
		TickRateHz:          2,
		SnapshotEveryTicks:  50,
		RandomFail:          1,
		AttachLimit:         10,
		ClusterBounds:       [2]int{1, 3},
		MaxEnergy:           100,
		RefreshEnergy:       50,
		StepRecharge:        1,
		DeactivatedDuration: 10,
		ClearEnergyCost:     2,
		ClearDamage:         []int{32, 16, 8, 4, 2, 1},
		BlockTypes:          [2]int{3, 3},
		Dispensers:          [2]int{2, 3},
		Grid: Grid{
			Width:  70,
			Height: 70,
			Instructions: []Instruction{
				{Type: "cave", ChanceAlive: 0.45, Iterations: 4, CreateLimit: 5, DestroyLimit: 4},
			},
			Goals:     Goals{Zones: Zones{Number: 3, Size: [2]int{1, 2}}, MoveProbability: 0.1},
			RoleZones: Zones{Number: 5, Size: [2]int{3, 5}},
		},
		Tasks: Tasks{
			Size:       [2]int{1, 3},
			Duration:   [2]int{100, 200},
			Iterations: [2]int{5, 10},
			Concurrent: 2,
		},
		Events: Events{
			Chance:    15,
			Radius:    [2]int{3, 5},
			Warning:   5,
			Create:    [2]int{-3, 1},
			Perimeter: 2,
		},
		Regulation: Regulation{Simultaneous: 1, Chance: 15},
		Teams: []Team{
			{Name: "A", Agents: 10},
			{Name: "B", Agents: 10},
		},
	}
}

// Load reads a tuning file on top of Defaults. Keys missing from the file
// keep their default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func checkRange(name string, r [2]int, floor int) error {
	if r[0] < floor || r[1] < r[0] {
		return fmt.Errorf("%s: bad range %v", name, r)
	}
	return nil
}

// Validate reports the first setting that cannot build a world.
func (t Tuning) Validate() error {
	if t.Steps <= 0 {
		return errors.New("steps must be positive")
	}
	if t.Grid.Width <= 0 || t.Grid.Height <= 0 {
		return fmt.Errorf("grid: bad size %dx%d", t.Grid.Width, t.Grid.Height)
	}
	if t.MaxEnergy <= 0 {
		return errors.New("max_energy must be positive")
	}
	if t.AttachLimit < 1 {
		return errors.New("attach_limit must be at least 1")
	}
	if t.RandomFail < 0 || t.RandomFail > 100 {
		return fmt.Errorf("random_fail: %d is not a percent", t.RandomFail)
	}
	if len(t.ClearDamage) == 0 {
		return errors.New("clear_damage must not be empty")
	}
	checks := []struct {
		name  string
		r     [2]int
		floor int
	}{
		{"cluster_bounds", t.ClusterBounds, 1},
		{"block_types", t.BlockTypes, 1},
		{"dispensers", t.Dispensers, 0},
		{"tasks.size", t.Tasks.Size, 1},
		{"tasks.duration", t.Tasks.Duration, 1},
		{"tasks.iterations", t.Tasks.Iterations, 1},
		{"events.radius", t.Events.Radius, 0},
		{"grid.goals.size", t.Grid.Goals.Size, 0},
		{"grid.role_zones.size", t.Grid.RoleZones.Size, 0},
	}
	for _, c := range checks {
		if err := checkRange(c.name, c.r, c.floor); err != nil {
			return err
		}
	}
	if t.Events.Create[1] < t.Events.Create[0] {
		return fmt.Errorf("events.create: bad range %v", t.Events.Create)
	}
	if len(t.Teams) == 0 {
		return errors.New("at least one team is required")
	}
	seen := map[string]bool{}
	for _, tm := range t.Teams {
		if tm.Name == "" || tm.Agents <= 0 {
			return fmt.Errorf("team %q: needs a name and agents", tm.Name)
		}
		if seen[tm.Name] {
			return fmt.Errorf("team %q: duplicate", tm.Name)
		}
		seen[tm.Name] = true
	}
	return nil
}
