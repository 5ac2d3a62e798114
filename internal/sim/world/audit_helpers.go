package world

import "github.com/agentcontest/massim-2022/internal/sim/grid"

func (w *World) auditEvent(step int, actor string, action string, pos grid.Position, reason string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:    uint64(step),
		Actor:   actor,
		Action:  action,
		Pos:     pos.ToArray(),
		Reason:  reason,
		Details: details,
	})
}
