package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	persistlog "github.com/agentcontest/massim-2022/internal/persistence/log"
	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/tuning"
	"github.com/agentcontest/massim-2022/internal/sim/world"
)

var errStop = errors.New("stop")

func main() {
	var (
		simDir     = flag.String("sim_dir", "", "simulation data dir (<data>/sims/<sim>)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		setupPath  = flag.String("setup", "", "setup command file the match was started with (optional)")
		seed       = flag.Int64("seed", 0, "match seed (default: read from the latest snapshot)")
		toStep     = flag.Int("to_step", -1, "stop after this step (inclusive, optional)")
	)
	flag.Parse()

	if *simDir == "" {
		fmt.Fprintln(os.Stderr, "missing -sim_dir")
		os.Exit(2)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	id := filepath.Base(*simDir)
	s := *seed
	if s == 0 {
		p := latestSnapshot(*simDir)
		if p == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found; pass -seed")
			os.Exit(2)
		}
		snap, err := snapshot.ReadSnapshot(p)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		s, id = snap.Seed, snap.Header.WorldID
		fmt.Printf("snapshot v%d sim=%s step=%d seed=%d grid=%dx%d entities=%d tasks=%d norms=%d\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.Width, snap.Height,
			len(snap.Entities), len(snap.Tasks), len(snap.Norms))
	}

	var setup []string
	if *setupPath != "" {
		if setup, err = world.LoadSetup(*setupPath); err != nil {
			fmt.Fprintln(os.Stderr, "load setup:", err)
			os.Exit(1)
		}
	}

	w, err := world.New(world.WorldConfig{
		ID:     id,
		Seed:   s,
		Rules:  tune,
		Setup:  setup,
		Logger: log.New(io.Discard, "", 0),
	}, cats)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	checked, err := replay(w, *simDir, *toStep)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d steps seed=%d\n", checked, s)
}

// replay feeds the logged actions of simDir back into w and compares the
// resulting digests with the logged ones.
func replay(w *world.World, simDir string, toStep int) (int, error) {
	checked := 0
	err := persistlog.ReadSteps(simDir, func(entry world.TickLogEntry) error {
		step := int(entry.Tick)
		if toStep >= 0 && step > toStep {
			return errStop
		}
		if step != w.CurrentStep() {
			return fmt.Errorf("step mismatch: want=%d got=%d", w.CurrentStep(), step)
		}

		acts := make([]world.ActionEnvelope, 0, len(entry.Actions))
		for _, ra := range entry.Actions {
			acts = append(acts, world.ActionEnvelope{
				Agent: ra.Agent,
				Act: protocol.ActionMsg{
					Type:            protocol.TypeAction,
					ProtocolVersion: protocol.Version,
					Step:            step,
					Action:          ra.Action,
					Params:          ra.Params,
				},
			})
		}
		got, digest := w.StepOnce(nil, nil, acts)
		if got != step {
			return fmt.Errorf("internal step mismatch: stepped=%d entry=%d", got, step)
		}
		checked++
		if digest != entry.Digest {
			return fmt.Errorf("digest mismatch at step %d: got=%s want=%s", step, digest, entry.Digest)
		}
		return nil
	})
	if errors.Is(err, errStop) {
		err = nil
	}
	return checked, err
}

func latestSnapshot(simDir string) string {
	dir := filepath.Join(simDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	type cand struct {
		step uint64
		path string
	}
	var all []cand
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		step, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		all = append(all, cand{step, filepath.Join(dir, name)})
	}
	if len(all) == 0 {
		return ""
	}
	sort.Slice(all, func(i, j int) bool { return all[i].step < all[j].step })
	return all[len(all)-1].path
}
