package world

import (
	"context"
	"errors"
)

var (
	ErrSnapshotUnavailable = errors.New("snapshot sink not configured")
	ErrSnapshotBusy        = errors.New("snapshot sink backpressure")
)

type adminSnapshotReq struct {
	Resp chan adminSnapshotResp
}

type adminSnapshotResp struct {
	Step int
	Err  error
}

// RequestSnapshot asks the world goroutine to export a snapshot at the next
// step boundary and returns the step it was taken at.
func (w *World) RequestSnapshot(ctx context.Context) (step int, err error) {
	if w == nil || w.admin == nil {
		return 0, ErrSnapshotUnavailable
	}
	resp := make(chan adminSnapshotResp, 1)

	select {
	case w.admin <- adminSnapshotReq{Resp: resp}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-resp:
		return r.Step, r.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// handleAdminSnapshotRequests answers every request of a step with the same
// snapshot.
func (w *World) handleAdminSnapshotRequests(reqs []adminSnapshotReq) {
	if len(reqs) == 0 {
		return
	}
	var err error
	if w.snapshotSink == nil {
		err = ErrSnapshotUnavailable
	} else {
		select {
		case w.snapshotSink <- w.ExportSnapshot():
		default:
			err = ErrSnapshotBusy
		}
	}

	resp := adminSnapshotResp{Step: w.step, Err: err}
	for _, r := range reqs {
		select {
		case r.Resp <- resp:
		default:
		}
	}
}
