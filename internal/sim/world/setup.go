package world

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

// LoadSetup reads a setup command file. Blank lines and # comments are
// dropped; a line starting with "stop" ends the file.
func LoadSetup(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "stop") {
			break
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("setup %s: %w", path, err)
	}
	return lines, nil
}

// runSetup applies setup commands after world generation. Malformed commands
// are logged and skipped.
func (w *World) runSetup(lines []string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "stop") {
			return
		}
		if err := w.setupCommand(strings.Fields(line)); err != nil {
			w.logger.Printf("setup %q: %v", line, err)
		}
	}
}

func (w *World) setupCommand(cmd []string) error {
	switch cmd[0] {
	case "move":
		if len(cmd) != 4 {
			return errSetupArgs
		}
		v, ok := intParams(cmd[1:3], 2)
		if !ok {
			return errSetupArgs
		}
		e, ok := w.byName[cmd[3]]
		if !ok {
			return fmt.Errorf("agent %s: %w", cmd[3], grid.ErrUnknownObject)
		}
		if !w.grid.MoveWithoutAttachments(e.ID(), grid.Position{X: v[0], Y: v[1]}) {
			return grid.ErrCellOccupied
		}
	case "add":
		if len(cmd) != 5 {
			return errSetupArgs
		}
		v, ok := intParams(cmd[1:3], 2)
		if !ok {
			return errSetupArgs
		}
		p := grid.Position{X: v[0], Y: v[1]}
		switch cmd[3] {
		case "block":
			if _, ok := w.createBlock(p, cmd[4]); !ok {
				return fmt.Errorf("cannot add block %s", cmd[4])
			}
		case "dispenser":
			if !w.createDispenser(p, cmd[4]) {
				return fmt.Errorf("cannot add dispenser %s", cmd[4])
			}
		default:
			return fmt.Errorf("cannot add %s", cmd[3])
		}
	case "create":
		if len(cmd) != 5 || cmd[1] != "task" {
			return errSetupArgs
		}
		duration, err := strconv.Atoi(cmd[3])
		if err != nil {
			return errSetupArgs
		}
		reqs, err := parseRequirements(cmd[4])
		if err != nil {
			return err
		}
		if w.addTask(NewTask(cmd[2], w.step+duration, 1, reqs)) == nil {
			return fmt.Errorf("task %s rejected", cmd[2])
		}
	case "attach":
		v, ok := intParams(cmd[1:], 4)
		if !ok {
			return errSetupArgs
		}
		a1, ok1 := w.grid.UniqueAttachable(grid.Position{X: v[0], Y: v[1]})
		a2, ok2 := w.grid.UniqueAttachable(grid.Position{X: v[2], Y: v[3]})
		if !ok1 || !ok2 {
			return grid.ErrUnknownObject
		}
		if !w.grid.Attach(a1.ID, a2.ID) {
			return grid.ErrNotAttachable
		}
	case "terrain":
		if len(cmd) != 4 {
			return errSetupArgs
		}
		v, ok := intParams(cmd[1:3], 2)
		if !ok {
			return errSetupArgs
		}
		p := grid.Position{X: v[0], Y: v[1]}
		switch strings.ToLower(cmd[3]) {
		case "obstacle":
			if !w.createObstacle(p) {
				return grid.ErrCellOccupied
			}
		case "goal":
			w.grid.AddZone(grid.ZoneGoal, p, 1)
		case "role":
			w.grid.AddZone(grid.ZoneRole, p, 1)
		default:
			return fmt.Errorf("unknown terrain %s", cmd[3])
		}
	default:
		return fmt.Errorf("unknown command %s", cmd[0])
	}
	return nil
}

var errSetupArgs = errors.New("bad arguments")

// parseRequirements reads "x,y,type;x,y,type".
func parseRequirements(s string) (map[grid.Position]string, error) {
	out := map[grid.Position]string{}
	for _, part := range strings.Split(s, ";") {
		f := strings.Split(part, ",")
		if len(f) != 3 {
			return nil, fmt.Errorf("requirement %q", part)
		}
		v, ok := intParams(f[:2], 2)
		if !ok {
			return nil, fmt.Errorf("requirement %q", part)
		}
		out[grid.Position{X: v[0], Y: v[1]}] = f[2]
	}
	return out, nil
}
