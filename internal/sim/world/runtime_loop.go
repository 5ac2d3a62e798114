package world

import (
	"context"
	"time"
)

// Run drives the match from a ticker. A step is resolved when the tick
// fires or as soon as every connected agent has acted for it.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.Rules.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		pendingActions []ActionEnvelope
		pendingJoins   []JoinRequest
		pendingLeaves  []string
		pendingAdmin   []adminSnapshotReq
		acted          = map[string]struct{}{}
	)
	resolve := func() {
		w.stepInternal(pendingJoins, pendingLeaves, pendingActions)
		w.handleAdminSnapshotRequests(pendingAdmin)
		pendingJoins = pendingJoins[:0]
		pendingLeaves = pendingLeaves[:0]
		pendingActions = pendingActions[:0]
		pendingAdmin = pendingAdmin[:0]
		clear(acted)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case name := <-w.leave:
			pendingLeaves = append(pendingLeaves, name)
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case env := <-w.inbox:
			pendingActions = append(pendingActions, env)
			if env.Act.Step == w.step {
				acted[env.Agent] = struct{}{}
			}
			if w.allActed(acted) && len(pendingJoins) == 0 && len(pendingLeaves) == 0 {
				resolve()
				ticker.Reset(interval)
			}
		case <-ticker.C:
			resolve()
		}
	}
}

// allActed reports whether every connected agent sent an action for the
// current step.
func (w *World) allActed(acted map[string]struct{}) bool {
	if !w.started || w.finished || len(w.clients) == 0 {
		return false
	}
	for name := range w.clients {
		if _, ok := acted[name]; !ok {
			return false
		}
	}
	return true
}

func (w *World) Stop() { close(w.stop) }

// Done is closed once the last step has been simulated.
func (w *World) Done() <-chan struct{} { return w.done }

// StepOnce applies joins and leaves and resolves the current step with the
// given actions, using the same code path as Run. It returns the resolved
// step and the digest of the resulting state. It is intended for
// deterministic replays and tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (step int, digest string) {
	return w.stepInternal(joins, leaves, actions)
}

func (w *World) handleLeave(name string) {
	delete(w.clients, name)
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.Rules.TickRateHz
}

func (w *World) Seed() int64 { return w.cfg.Seed }

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
