package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Step      int  `json:"step"`
	Finished  bool `json:"finished"`
	Entities  int  `json:"entities"`
	Clients   int  `json:"clients"`
	Observers int  `json:"observers"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`

	OpenTasks   int              `json:"open_tasks"`
	ActiveNorms int              `json:"active_norms"`
	ClearEvents int              `json:"clear_events"`
	Scores      map[string]int64 `json:"scores"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) storeMetrics(stepMS float64) {
	scores := make(map[string]int64, len(w.teams))
	for _, t := range w.teams {
		scores[t.Name] = t.Score
	}
	w.metrics.Store(WorldMetrics{
		Step:      w.step,
		Finished:  w.finished,
		Entities:  len(w.entities),
		Clients:   len(w.clients),
		Observers: len(w.observers),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		StepMS:      stepMS,
		OpenTasks:   len(w.openTasks(w.step)),
		ActiveNorms: len(w.officer.Active(w.step)),
		ClearEvents: len(w.clearEvents),
		Scores:      scores,
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
