package world

import (
	"encoding/json"
	"strings"
)

// ObserverJoinRequest registers a read-only spectator session. The session
// receives the current snapshot at once and then one per subscribed cadence.
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID  string
	Out        chan []byte
	EverySteps int
}

// ObserverSubscribeRequest changes the cadence of an existing session.
type ObserverSubscribeRequest struct {
	SessionID  string
	EverySteps int
}

type observerClient struct {
	id    string
	out   chan []byte
	every int
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	id := strings.TrimSpace(req.SessionID)
	if w == nil || id == "" || req.Out == nil {
		return
	}
	if old := w.observers[id]; old != nil {
		close(old.out)
	}
	c := &observerClient{id: id, out: req.Out, every: clampInt(req.EverySteps, 1, 1000, 1)}
	w.observers[id] = c
	if b, err := json.Marshal(w.Snapshot()); err == nil {
		sendLatest(c.out, b)
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.every = clampInt(req.EverySteps, 1, 1000, c.every)
}

func (w *World) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.out)
}

// stepObservers sends the snapshot of the new step, and the result once the
// match is over.
func (w *World) stepObservers() {
	if len(w.observers) == 0 {
		return
	}
	snap, err := json.Marshal(w.Snapshot())
	if err != nil {
		w.logger.Printf("observer snapshot: %v", err)
		return
	}
	var result []byte
	if w.finished {
		result, _ = json.Marshal(w.Result())
	}
	for _, c := range w.observers {
		if w.finished || w.step%c.every == 0 {
			sendLatest(c.out, snap)
		}
		if result != nil {
			sendLatest(c.out, result)
		}
	}
}

func clampInt(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
