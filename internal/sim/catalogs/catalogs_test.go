package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigs(t *testing.T) {
	cats, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cats.Roles.Roles) == 0 || cats.Roles.Roles[0].Name != "default" {
		t.Fatalf("default role must come first: %+v", cats.Roles.Roles)
	}
	if cats.Roles.Digest == "" || cats.Norms.Digest == "" {
		t.Fatalf("missing digests")
	}
	explorer, ok := cats.Roles.ByName["explorer"]
	if !ok {
		t.Fatalf("missing explorer role")
	}
	def := cats.Roles.Roles[0]
	if explorer.ClearChance != def.ClearChance || explorer.ClearMaxDistance != def.ClearMaxDistance {
		t.Fatalf("explorer should inherit clear settings: %+v", explorer)
	}
	if !explorer.CanPerform("move") || !explorer.CanPerform("survey") {
		t.Fatalf("explorer should inherit default actions: %v", explorer.Actions)
	}
	worker := cats.Roles.ByName["worker"]
	if !worker.CanPerform("attach") || def.CanPerform("attach") {
		t.Fatalf("worker actions must extend the default set only for the worker")
	}
	if len(cats.Norms.Templates) == 0 {
		t.Fatalf("expected norm templates")
	}
}

func TestRoleMaxSpeedClampsToLastEntry(t *testing.T) {
	r := Role{Speed: []int{3, 1, 0}}
	cases := map[int]int{0: 3, 1: 1, 2: 0, 7: 0}
	for n, want := range cases {
		if got := r.MaxSpeed(n); got != want {
			t.Fatalf("MaxSpeed(%d)=%d want %d", n, got, want)
		}
	}
}

func TestResolveRolesRejectsIncompleteDefault(t *testing.T) {
	if _, err := ResolveRoles([]RoleDef{{Name: "default"}}); err == nil {
		t.Fatalf("expected error for incomplete default role")
	}
	if _, err := ResolveRoles(nil); err == nil {
		t.Fatalf("expected error for no roles")
	}
}

func TestLoadAllowsMissingNormTemplates(t *testing.T) {
	dir := t.TempDir()
	raw, err := os.ReadFile("../../../configs/roles.json")
	if err != nil {
		t.Fatalf("read roles: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "roles.json"), raw, 0o644); err != nil {
		t.Fatalf("write roles: %v", err)
	}
	cats, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cats.Norms.Templates) != 0 {
		t.Fatalf("expected no templates")
	}
}

func TestNormTemplateValidate(t *testing.T) {
	good := NormTemplate{
		Name:         "Carry",
		Chance:       10,
		Duration:     [2]int{100, 200},
		Announcement: [2]int{0, 20},
		Punishment:   [2]int{10, 20},
		Optional:     NormOptional{Quantity: []int{0, 2}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}

	playing := 101
	bad := map[string]func(*NormTemplate){
		"negative punishment":   func(n *NormTemplate) { n.Punishment = [2]int{-40, -40} },
		"reversed punishment":   func(n *NormTemplate) { n.Punishment = [2]int{20, 10} },
		"reversed duration":     func(n *NormTemplate) { n.Duration = [2]int{200, 100} },
		"zero duration":         func(n *NormTemplate) { n.Duration = [2]int{0, 0} },
		"reversed announcement": func(n *NormTemplate) { n.Announcement = [2]int{20, 10} },
		"negative announcement": func(n *NormTemplate) { n.Announcement = [2]int{-1, 10} },
		"reversed quantity":     func(n *NormTemplate) { n.Optional.Quantity = []int{3, 1} },
		"short quantity":        func(n *NormTemplate) { n.Optional.Quantity = []int{1} },
		"playing over 100":      func(n *NormTemplate) { n.Optional.Playing = &playing },
		"negative chance":       func(n *NormTemplate) { n.Chance = -1 },
		"empty name":            func(n *NormTemplate) { n.Name = "" },
	}
	for name, mutate := range bad {
		tpl := good
		tpl.Optional.Quantity = append([]int(nil), good.Optional.Quantity...)
		mutate(&tpl)
		if err := tpl.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadRejectsNegativePunishment(t *testing.T) {
	dir := t.TempDir()
	raw, err := os.ReadFile("../../../configs/roles.json")
	if err != nil {
		t.Fatalf("read roles: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "roles.json"), raw, 0o644); err != nil {
		t.Fatalf("write roles: %v", err)
	}
	tpl := `{"templates": [{"name": "Carry", "chance": 10, "duration": [100, 200], "announcement": [10, 20], "punishment": [-40, -40]}]}`
	if err := os.WriteFile(filepath.Join(dir, "norm_templates.json"), []byte(tpl), 0o644); err != nil {
		t.Fatalf("write templates: %v", err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "punishment") {
		t.Fatalf("expected punishment error, got %v", err)
	}
}
