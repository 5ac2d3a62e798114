package world

import (
	"fmt"
	"sort"

	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

// Task is a block pattern to assemble relative to the submitting entity.
type Task struct {
	Name         string
	Deadline     int
	Iterations   int
	Completed    int
	Requirements map[grid.Position]string
}

func NewTask(name string, deadline, iterations int, reqs map[grid.Position]string) *Task {
	if iterations < 1 {
		iterations = 1
	}
	return &Task{Name: name, Deadline: deadline, Iterations: iterations, Requirements: reqs}
}

// Reward is 10 times the squared number of required blocks.
func (t *Task) Reward() int {
	n := len(t.Requirements)
	return 10 * n * n
}

func (t *Task) IsCompleted() bool { return t.Completed >= t.Iterations }

// Open reports whether the task still accepts submissions at step.
func (t *Task) Open(step int) bool { return !t.IsCompleted() && step <= t.Deadline }

func (t *Task) completeOnce() { t.Completed++ }

// SortedRequirements lists the requirements row-major for stable output.
func (t *Task) SortedRequirements() []protocol.Requirement {
	out := make([]protocol.Requirement, 0, len(t.Requirements))
	for p, typ := range t.Requirements {
		out = append(out, protocol.Requirement{X: p.X, Y: p.Y, Type: typ})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func (t *Task) Info() protocol.TaskInfo {
	return protocol.TaskInfo{
		Name:         t.Name,
		Deadline:     t.Deadline,
		Reward:       t.Reward(),
		Requirements: t.SortedRequirements(),
	}
}

// RequirementsFromInfo rebuilds the requirement map from its percept form.
func RequirementsFromInfo(info protocol.TaskInfo) map[grid.Position]string {
	out := make(map[grid.Position]string, len(info.Requirements))
	for _, r := range info.Requirements {
		out[grid.Position{X: r.X, Y: r.Y}] = r.Type
	}
	return out
}

func (w *World) nextTaskName() string {
	name := fmt.Sprintf("task%d", w.nextTask)
	w.nextTask++
	return name
}

// createRandomTask grows a shape below the entity: the first block sits at
// (0,1), every further block steps left, right or down from the last one.
func (w *World) createRandomTask(step int) *Task {
	r := w.cfg.Rules.Tasks
	size := w.rng.BetweenClosed(r.Size[0], r.Size[1])
	if size < 1 || len(w.blockTypes) == 0 {
		return nil
	}
	reqs := map[grid.Position]string{}
	last := grid.Position{X: 0, Y: 1}
	reqs[last] = w.blockTypes[w.rng.Pick(len(w.blockTypes))]
	for i := 0; i < size-1; i++ {
		typ := w.blockTypes[w.rng.Pick(len(w.blockTypes))]
		switch d := w.rng.Float64(); {
		case d <= .3:
			last = grid.Position{X: last.X - 1, Y: last.Y}
		case d <= .6:
			last = grid.Position{X: last.X + 1, Y: last.Y}
		default:
			last = grid.Position{X: last.X, Y: last.Y + 1}
		}
		reqs[last] = typ
	}
	duration := w.rng.BetweenClosed(r.Duration[0], r.Duration[1])
	iterations := w.rng.BetweenClosed(r.Iterations[0], r.Iterations[1])
	return w.addTask(NewTask(w.nextTaskName(), step+duration, iterations, reqs))
}

func (w *World) addTask(t *Task) *Task {
	if t == nil || len(t.Requirements) == 0 {
		return nil
	}
	if _, dup := w.tasks[t.Name]; dup {
		w.logger.Printf("task %s already exists", t.Name)
		return nil
	}
	w.tasks[t.Name] = t
	w.taskOrder = append(w.taskOrder, t.Name)
	return t
}

// openTasks returns the tasks accepting submissions at step in creation order.
func (w *World) openTasks(step int) []*Task {
	var out []*Task
	for _, name := range w.taskOrder {
		if t := w.tasks[name]; t.Open(step) {
			out = append(out, t)
		}
	}
	return out
}

// topUpTasks creates random tasks until the configured number is open.
func (w *World) topUpTasks(step int) {
	want := w.cfg.Rules.Tasks.Concurrent
	for open := len(w.openTasks(step)); open < want; open++ {
		t := w.createRandomTask(step)
		if t == nil {
			return
		}
		w.logger.Printf("step %d: created %s deadline=%d reward=%d", step, t.Name, t.Deadline, t.Reward())
	}
}
