package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/agentcontest/massim-2022/internal/persistence/indexdb"
	"github.com/agentcontest/massim-2022/internal/sim/world"
	"github.com/agentcontest/massim-2022/internal/transport/observer"
	"github.com/agentcontest/massim-2022/internal/transport/ws"
)

func newMux(w *world.World, simDir string, idx *indexdb.SQLiteIndex, logger *log.Logger, enableAdmin bool) *http.ServeMux {
	obsSrv := observer.NewServer(w, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w.ID(), w.CurrentStep(), w.Metrics(), idx)
	})
	mux.HandleFunc("/status", obsSrv.StatusHandler())
	mux.HandleFunc("/result", obsSrv.ResultHandler())

	if enableAdmin {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !observer.IsLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				Sim            string             `json:"sim"`
				Step           int                `json:"step"`
				Seed           int64              `json:"seed"`
				Metrics        world.WorldMetrics `json:"metrics"`
				Index          indexdb.Stats      `json:"index"`
				LatestSnapshot string             `json:"latest_snapshot,omitempty"`
			}{
				Sim:            w.ID(),
				Step:           w.CurrentStep(),
				Seed:           w.Seed(),
				Metrics:        w.Metrics(),
				Index:          idx.Stats(),
				LatestSnapshot: latestSnapshot(simDir),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !observer.IsLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			step, err := w.RequestSnapshot(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "step": step, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "step": step})
		})
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (MASSIM_ENABLE_ADMIN_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())
	return mux
}

// writeMetrics renders the Prometheus text exposition format.
func writeMetrics(rw http.ResponseWriter, sim string, step int, m world.WorldMetrics, idx *indexdb.SQLiteIndex) {
	if m.Step != 0 {
		step = m.Step
	}
	gauge := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	}

	gauge("massim_sim_step", "Current simulation step.")
	fmt.Fprintf(rw, "massim_sim_step{sim=%q} %d\n", sim, step)

	finished := 0
	if m.Finished {
		finished = 1
	}
	gauge("massim_sim_finished", "1 once the last step has been simulated.")
	fmt.Fprintf(rw, "massim_sim_finished{sim=%q} %d\n", sim, finished)

	gauge("massim_sim_entities", "Number of agent entities.")
	fmt.Fprintf(rw, "massim_sim_entities{sim=%q} %d\n", sim, m.Entities)

	gauge("massim_sim_clients", "Current number of connected agents.")
	fmt.Fprintf(rw, "massim_sim_clients{sim=%q} %d\n", sim, m.Clients)

	gauge("massim_sim_observers", "Current number of observer sessions.")
	fmt.Fprintf(rw, "massim_sim_observers{sim=%q} %d\n", sim, m.Observers)

	gauge("massim_sim_queue_depth", "Channel backlog depth.")
	fmt.Fprintf(rw, "massim_sim_queue_depth{sim=%q,queue=%q} %d\n", sim, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "massim_sim_queue_depth{sim=%q,queue=%q} %d\n", sim, "join", m.QueueDepths.Join)
	fmt.Fprintf(rw, "massim_sim_queue_depth{sim=%q,queue=%q} %d\n", sim, "leave", m.QueueDepths.Leave)

	gauge("massim_sim_step_ms", "Last step duration in milliseconds.")
	fmt.Fprintf(rw, "massim_sim_step_ms{sim=%q} %.3f\n", sim, m.StepMS)

	gauge("massim_sim_open_tasks", "Tasks that can currently be submitted.")
	fmt.Fprintf(rw, "massim_sim_open_tasks{sim=%q} %d\n", sim, m.OpenTasks)

	gauge("massim_sim_active_norms", "Norms currently in force.")
	fmt.Fprintf(rw, "massim_sim_active_norms{sim=%q} %d\n", sim, m.ActiveNorms)

	gauge("massim_sim_clear_events", "Pending clear events.")
	fmt.Fprintf(rw, "massim_sim_clear_events{sim=%q} %d\n", sim, m.ClearEvents)

	gauge("massim_team_score", "Team score.")
	for _, team := range sortedKeys(m.Scores) {
		fmt.Fprintf(rw, "massim_team_score{sim=%q,team=%q} %d\n", sim, team, m.Scores[team])
	}

	if idx == nil {
		return
	}
	st := idx.Stats()
	gauge("massim_index_queue_depth", "Index writer backlog.")
	fmt.Fprintf(rw, "massim_index_queue_depth{sim=%q} %d\n", sim, st.QueueDepth)
	fmt.Fprintf(rw, "# HELP massim_index_dropped_total Index requests dropped because the writer fell behind.\n")
	fmt.Fprintf(rw, "# TYPE massim_index_dropped_total counter\n")
	fmt.Fprintf(rw, "massim_index_dropped_total{sim=%q,kind=%q} %d\n", sim, "step", st.DropTickTotal)
	fmt.Fprintf(rw, "massim_index_dropped_total{sim=%q,kind=%q} %d\n", sim, "audit", st.DropAuditTotal)
	fmt.Fprintf(rw, "massim_index_dropped_total{sim=%q,kind=%q} %d\n", sim, "summary", st.DropStepTotal)
	fmt.Fprintf(rw, "massim_index_dropped_total{sim=%q,kind=%q} %d\n", sim, "snapshot", st.DropSnapshotTotal)
}

func sortedKeys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
