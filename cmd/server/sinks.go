package main

import (
	"context"
	"log"

	"github.com/agentcontest/massim-2022/internal/persistence/archive"
	"github.com/agentcontest/massim-2022/internal/persistence/indexdb"
	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
	"github.com/agentcontest/massim-2022/internal/sim/world"
)

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}

type multiStepSink []world.StepSink

func (m multiStepSink) ObserveStep(sum world.StepSummary) {
	for _, s := range m {
		if s != nil {
			s.ObserveStep(sum)
		}
	}
}

// runSnapshotWriter persists snapshots coming from the world. The final one
// is archived together with the result, then archived is closed.
func runSnapshotWriter(ctx context.Context, w *world.World, simDir string, snaps <-chan snapshot.SnapshotV1, idx *indexdb.SQLiteIndex, archived chan<- struct{}, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-snaps:
			path := snapshotPath(simDir, snap.Header.Tick)
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("snapshot write: %v", err)
				continue
			}
			idx.RecordSnapshot(path, snap)

			if !archive.IsFinal(snap) {
				continue
			}
			res, ok := w.FinalResult()
			if !ok {
				logger.Printf("final snapshot at step %d without result", snap.Header.Tick)
				continue
			}
			idx.RecordResult(res)
			if dst, ok, err := archive.ArchiveMatch(simDir, path, snap, res); err != nil {
				logger.Printf("archive match: %v", err)
			} else if ok {
				logger.Printf("match archived: %s", dst)
			}
			close(archived)
			return
		}
	}
}
