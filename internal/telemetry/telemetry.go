// Package telemetry writes per-step match statistics to CSV.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/world"
)

// StepStats is one row of steps.csv.
type StepStats struct {
	Step        int     `csv:"step"`
	Scores      string  `csv:"scores"`
	Actions     int     `csv:"actions"`
	Succeeded   int     `csv:"succeeded"`
	SuccessRate float64 `csv:"success_rate"`
	Deactivated int     `csv:"deactivated"`
	OpenTasks   int     `csv:"open_tasks"`
	ActiveNorms int     `csv:"active_norms"`
	Violations  int     `csv:"violations"`
	Events      int     `csv:"events"`

	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	StepMS float64 `csv:"step_ms"`
}

// Summarize reduces a step summary to a CSV row.
func Summarize(sum world.StepSummary) StepStats {
	st := StepStats{
		Step:        sum.Step,
		Scores:      formatScores(sum.Scores),
		Actions:     len(sum.Actions),
		Deactivated: sum.Deactivated,
		OpenTasks:   sum.OpenTasks,
		ActiveNorms: sum.ActiveNorms,
		Violations:  sum.Violations,
		Events:      sum.Events,
		StepMS:      sum.StepMS,
	}
	for _, a := range sum.Actions {
		if a.Result == protocol.ResultSuccess || a.Result == protocol.ResultPartialSuccess {
			st.Succeeded++
		}
	}
	if st.Actions > 0 {
		st.SuccessRate = float64(st.Succeeded) / float64(st.Actions)
	}

	energies := append([]float64(nil), sum.Energies...)
	if len(energies) > 0 {
		sort.Float64s(energies)
		st.EnergyMean = stat.Mean(energies, nil)
		if len(energies) > 1 {
			st.EnergyStd = stat.StdDev(energies, nil)
		}
		st.EnergyP10 = stat.Quantile(0.1, stat.Empirical, energies, nil)
		st.EnergyP50 = stat.Quantile(0.5, stat.Empirical, energies, nil)
		st.EnergyP90 = stat.Quantile(0.9, stat.Empirical, energies, nil)
	}
	return st
}

// formatScores renders scores as "A=10;B=0" in team order.
func formatScores(scores map[string]int64) string {
	teams := make([]string, 0, len(scores))
	for t := range scores {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	parts := make([]string, 0, len(teams))
	for _, t := range teams {
		parts = append(parts, fmt.Sprintf("%s=%d", t, scores[t]))
	}
	return strings.Join(parts, ";")
}

// Recorder appends one StepStats row per observed step to `dir/steps.csv`.
// A nil Recorder ignores everything.
type Recorder struct {
	mu            sync.Mutex
	f             *os.File
	headerWritten bool
	err           error
}

func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "steps.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating steps.csv: %w", err)
	}
	return &Recorder{f: f}, nil
}

func (r *Recorder) ObserveStep(sum world.StepSummary) {
	if r == nil {
		return
	}
	if err := r.Write(Summarize(sum)); err != nil {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
}

func (r *Recorder) Write(st StepStats) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	records := []StepStats{st}
	if !r.headerWritten {
		if err := gocsv.Marshal(records, r.f); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.f); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// Err returns the first write error seen by ObserveStep.
func (r *Recorder) Err() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}

// ReadStats loads a steps.csv written by a Recorder.
func ReadStats(path string) ([]StepStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []StepStats
	if err := gocsv.UnmarshalFile(f, &out); err != nil {
		return nil, fmt.Errorf("reading telemetry: %w", err)
	}
	return out, nil
}
