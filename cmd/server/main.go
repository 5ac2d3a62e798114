package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/agentcontest/massim-2022/internal/persistence/indexdb"
	persistlog "github.com/agentcontest/massim-2022/internal/persistence/log"
	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/tuning"
	"github.com/agentcontest/massim-2022/internal/sim/world"
	"github.com/agentcontest/massim-2022/internal/telemetry"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		simID       = flag.String("sim", "sim_1", "simulation id")
		seed        = flag.Int64("seed", 1337, "simulation seed")
		configDir   = flag.String("configs", "./configs", "config directory (roles.json, norm_templates.json)")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite index (steps/audit/scores + catalogs + snapshot metadata)")
		telemetryOn = flag.Bool("telemetry", true, "write per-step statistics to <data>/sims/<sim>/telemetry/steps.csv")
		wait        = flag.Bool("wait", true, "hold step 0 until every agent is connected")
		setupPath   = flag.String("setup", "", "setup command file run before step 0 (optional)")
		exitOnEnd   = flag.Bool("exit_on_end", false, "shut down once the match is over and the result is archived")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	var setup []string
	if p := strings.TrimSpace(*setupPath); p != "" {
		if setup, err = world.LoadSetup(p); err != nil {
			logger.Fatalf("load setup: %v", err)
		}
	}

	simDir := filepath.Join(*dataDir, "sims", *simID)
	if err := os.MkdirAll(simDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	// Optional read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(simDir, "index", "sim.sqlite"), *simID)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	var rec *telemetry.Recorder
	if *telemetryOn {
		if rec, err = telemetry.NewRecorder(filepath.Join(simDir, "telemetry")); err != nil {
			logger.Fatalf("telemetry: %v", err)
		}
		defer rec.Close()
	}

	w, err := world.New(world.WorldConfig{
		ID:            *simID,
		Seed:          *seed,
		Rules:         tune,
		Setup:         setup,
		WaitForAgents: *wait,
		Logger:        log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds),
	}, cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	logger.Printf("sim=%s seed=%d steps=%d grid=%dx%d agents=%d", *simID, *seed, tune.Steps, tune.Grid.Width, tune.Grid.Height, len(w.AgentNames()))

	ctx, cancel := signalContext()
	defer cancel()

	stepLog := persistlog.NewStepLogger(simDir)
	auditLog := persistlog.NewAuditLogger(simDir)
	defer stepLog.Close()
	defer auditLog.Close()
	w.SetTickLogger(multiTickLogger{a: stepLog, b: idx})
	w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})
	w.SetStepSink(multiStepSink{idx, rec})

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	archived := make(chan struct{})
	go runSnapshotWriter(ctx, w, simDir, snapCh, idx, archived, logger)

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(w, simDir, idx, logger, envBool("MASSIM_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if *exitOnEnd {
			select {
			case <-ctx.Done():
			case <-archived:
			case <-afterDone(w, 10*time.Second):
				logger.Printf("final snapshot not archived; shutting down anyway")
			}
		} else {
			<-ctx.Done()
		}
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
}

// afterDone fires d after the match is over.
func afterDone(w *world.World, d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		<-w.Done()
		time.Sleep(d)
		close(ch)
	}()
	return ch
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// latestSnapshot returns the snapshot of the highest step in `simDir/snapshots`.
func latestSnapshot(simDir string) string {
	dir := filepath.Join(simDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestStep uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		step, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || step > bestStep {
			bestStep = step
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func snapshotPath(simDir string, step uint64) string {
	return filepath.Join(simDir, "snapshots", fmt.Sprintf("%d.snap.zst", step))
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
