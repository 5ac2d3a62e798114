package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Roles RoleCatalog
	Norms NormCatalog
}

type RoleCatalog struct {
	// Roles keeps file order; Roles[0] is the default role.
	Roles  []Role
	ByName map[string]Role
	Digest string
}

// Role is a fully resolved role definition.
type Role struct {
	Name             string   `json:"name"`
	Vision           int      `json:"vision"`
	Actions          []string `json:"actions"`
	Speed            []int    `json:"speed"`
	ClearChance      float64  `json:"clearChance"`
	ClearMaxDistance int      `json:"clearMaxDistance"`
}

func (r Role) CanPerform(action string) bool {
	i := sort.SearchStrings(r.Actions, action)
	return i < len(r.Actions) && r.Actions[i] == action
}

// MaxSpeed is the speed while carrying n attachments; the last entry applies to larger loads.
func (r Role) MaxSpeed(n int) int {
	if len(r.Speed) == 0 {
		return 0
	}
	if n >= len(r.Speed) {
		n = len(r.Speed) - 1
	}
	if n < 0 {
		n = 0
	}
	return r.Speed[n]
}

// RoleDef is the on-disk form. Every role after the first inherits omitted
// fields from the first one; its actions are added to the inherited set.
type RoleDef struct {
	Name    string    `json:"name"`
	Vision  *int      `json:"vision,omitempty"`
	Actions []string  `json:"actions,omitempty"`
	Speed   []int     `json:"speed,omitempty"`
	Clear   *ClearDef `json:"clear,omitempty"`
}

type ClearDef struct {
	Chance      *float64 `json:"chance,omitempty"`
	MaxDistance *int     `json:"maxDistance,omitempty"`
}

type NormCatalog struct {
	Templates []NormTemplate `json:"templates"`
	Digest    string         `json:"-"`
}

// NormTemplate describes how a norm of one kind is drawn. Chance is a relative
// weight; the ranges are closed [min, max] intervals.
type NormTemplate struct {
	Name         string       `json:"name"`
	Chance       float64      `json:"chance"`
	Duration     [2]int       `json:"duration"`
	Announcement [2]int       `json:"announcement"`
	Punishment   [2]int       `json:"punishment"`
	Optional     NormOptional `json:"optional"`
}

type NormOptional struct {
	Quantity []int `json:"quantity,omitempty"`
	Playing  *int  `json:"playing,omitempty"`
}

// Validate rejects templates whose draws could produce a negative
// punishment, an empty window or a reversed range.
func (t NormTemplate) Validate() error {
	if t.Name == "" {
		return errors.New("empty name")
	}
	if t.Chance < 0 {
		return fmt.Errorf("%s: negative chance", t.Name)
	}
	ranges := []struct {
		name string
		r    [2]int
		min  int
	}{
		{"duration", t.Duration, 1},
		{"announcement", t.Announcement, 0},
		{"punishment", t.Punishment, 0},
	}
	for _, c := range ranges {
		if c.r[0] < c.min || c.r[0] > c.r[1] {
			return fmt.Errorf("%s: %s must be [min, max] with %d <= min <= max, got %v", t.Name, c.name, c.min, c.r)
		}
	}
	if q := t.Optional.Quantity; q != nil {
		if len(q) != 2 || q[0] < 0 || q[0] > q[1] {
			return fmt.Errorf("%s: optional.quantity must be [min, max] with 0 <= min <= max, got %v", t.Name, q)
		}
	}
	if p := t.Optional.Playing; p != nil && (*p < 0 || *p > 100) {
		return fmt.Errorf("%s: optional.playing must be a percent, got %d", t.Name, *p)
	}
	return nil
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadRoles(filepath.Join(configDir, "roles.json"), &c.Roles); err != nil {
		return nil, err
	}
	if err := loadNorms(filepath.Join(configDir, "norm_templates.json"), &c.Norms); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadRoles(path string, out *RoleCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RoleDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("roles.json: %w", err)
	}
	roles, err := ResolveRoles(defs)
	if err != nil {
		return fmt.Errorf("roles.json: %w", err)
	}
	out.Roles = roles
	out.ByName = make(map[string]Role, len(roles))
	for _, r := range roles {
		out.ByName[r.Name] = r
	}
	return nil
}

// ResolveRoles turns role definitions into complete roles. The first
// definition must be complete.
func ResolveRoles(defs []RoleDef) ([]Role, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("no roles defined")
	}
	d := defs[0]
	if d.Name == "" || d.Vision == nil || len(d.Speed) == 0 || d.Clear == nil || d.Clear.Chance == nil || d.Clear.MaxDistance == nil {
		return nil, fmt.Errorf("default role %q must define vision, speed and clear", d.Name)
	}
	base := Role{
		Name:             d.Name,
		Vision:           *d.Vision,
		Actions:          uniqueSorted(d.Actions),
		Speed:            append([]int(nil), d.Speed...),
		ClearChance:      *d.Clear.Chance,
		ClearMaxDistance: *d.Clear.MaxDistance,
	}
	out := []Role{base}
	seen := map[string]bool{base.Name: true}
	for _, d := range defs[1:] {
		if d.Name == "" {
			return nil, fmt.Errorf("empty role name")
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate role %q", d.Name)
		}
		seen[d.Name] = true
		r := base
		r.Name = d.Name
		r.Actions = uniqueSorted(append(append([]string(nil), base.Actions...), d.Actions...))
		if d.Vision != nil {
			r.Vision = *d.Vision
		}
		if len(d.Speed) > 0 {
			r.Speed = append([]int(nil), d.Speed...)
		}
		if d.Clear != nil {
			if d.Clear.Chance != nil {
				r.ClearChance = *d.Clear.Chance
			}
			if d.Clear.MaxDistance != nil {
				r.ClearMaxDistance = *d.Clear.MaxDistance
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func loadNorms(path string, out *NormCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// A match without norms is valid.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("norm_templates.json: %w", err)
	}
	for _, t := range out.Templates {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("norm_templates.json: %w", err)
		}
	}
	return nil
}

func uniqueSorted(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
