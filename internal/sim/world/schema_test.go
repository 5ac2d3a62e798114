package world

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentcontest/massim-2022/internal/protocol"
)

func validateAgainst(t *testing.T, schema string, v any) {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", schema))
	if err != nil {
		t.Fatalf("compile %s: %v", schema, err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("%s: %v", schema, err)
	}
}

func TestWorldMessagesMatchSchemas(t *testing.T) {
	w := newTestWorld(t, nil)
	place(t, w, "agentA1", 10, 10)
	block(t, w, 10, 11, "b0")
	attach(t, w, 10, 10, 10, 11)
	stepWith(w, do("agentA1", "move", "e"), do("agentB1", "clear", "0", "1"))

	for _, name := range []string{"agentA1", "agentB1"} {
		p, ok := w.Percept(name)
		if !ok {
			t.Fatalf("no percept for %s", name)
		}
		validateAgainst(t, "request_action.schema.json", protocol.RequestActionMsg{
			Type:            protocol.TypeRequestAction,
			ProtocolVersion: protocol.Version,
			Step:            w.CurrentStep(),
			Percept:         p,
		})
	}
	validateAgainst(t, "snapshot.schema.json", w.Snapshot())
	validateAgainst(t, "status.schema.json", w.Status())
	validateAgainst(t, "result.schema.json", w.Result())
}
