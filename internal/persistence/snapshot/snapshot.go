package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 is the complete state of a simulation after a step.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed       int64    `json:"seed"`
	Steps      int      `json:"steps"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	BlockTypes []string `json:"block_types"`

	Entities    []EntityV1     `json:"entities"`
	Blocks      []ThingV1      `json:"blocks"`
	Obstacles   []ThingV1      `json:"obstacles"`
	Dispensers  []ThingV1      `json:"dispensers"`
	Attachments []EdgeV1       `json:"attachments"`
	Tasks       []TaskV1       `json:"tasks"`
	GoalZones   []ZoneV1       `json:"goal_zones"`
	RoleZones   []ZoneV1       `json:"role_zones"`
	ClearEvents []ClearEventV1 `json:"clear_events"`
	Norms       []NormV1       `json:"norms"`
	Teams       []TeamV1       `json:"teams"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextTask uint64 `json:"next_task"`
}

type EntityV1 struct {
	ID               uint64   `json:"id"`
	Name             string   `json:"name"`
	Team             string   `json:"team"`
	Role             string   `json:"role"`
	X                int      `json:"x"`
	Y                int      `json:"y"`
	Energy           int      `json:"energy"`
	DeactivatedSteps int      `json:"deactivated_steps,omitempty"`
	LastAction       string   `json:"last_action"`
	LastParams       []string `json:"last_params,omitempty"`
	LastResult       string   `json:"last_result"`
}

// ThingV1 is a block, obstacle or dispenser.
type ThingV1 struct {
	ID   uint64 `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type,omitempty"`
}

// EdgeV1 is one attachment, A < B.
type EdgeV1 struct {
	A uint64 `json:"a"`
	B uint64 `json:"b"`
}

type TaskV1 struct {
	Name         string          `json:"name"`
	Deadline     int             `json:"deadline"`
	Iterations   int             `json:"iterations"`
	Completed    int             `json:"completed"`
	Requirements []RequirementV1 `json:"requirements"`
}

type RequirementV1 struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

type ZoneV1 struct {
	X int `json:"x"`
	Y int `json:"y"`
	R int `json:"r"`
}

type ClearEventV1 struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Radius int `json:"radius"`
	Step   int `json:"step"`
}

type NormV1 struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Announced  int    `json:"announced"`
	Start      int    `json:"start"`
	Until      int    `json:"until"`
	Punishment int    `json:"punishment"`
	Summary    string `json:"summary"`
}

type TeamV1 struct {
	Name  string `json:"name"`
	Score int64  `json:"score"`
	Size  int    `json:"size"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is repeated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("snapshot header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line of a snapshot file.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}
