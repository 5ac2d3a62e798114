package world

import "github.com/agentcontest/massim-2022/internal/persistence/snapshot"

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetStepSink(s StepSink)                        { w.stepSink = s }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

// CurrentStep is safe to call from any goroutine.
func (w *World) CurrentStep() int { return int(w.stepNo.Load()) }

// AgentNames lists the entity names in order. The set is fixed once New returns.
func (w *World) AgentNames() []string {
	out := make([]string, 0, len(w.entities))
	for _, e := range w.sortedEntities() {
		out = append(out, e.name)
	}
	return out
}
