package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentcontest/massim-2022/internal/observerproto"
	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
)

func TestArchiveMatchOnlyFinalSnapshot(t *testing.T) {
	simDir := t.TempDir()
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: "sim1", Tick: 49},
		Seed:   7,
		Steps:  100,
	}
	path := filepath.Join(simDir, "snapshots", "49.snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if _, ok, err := ArchiveMatch(simDir, path, snap, observerproto.Result{}); err != nil || ok {
		t.Fatalf("mid-match snapshot archived: ok=%v err=%v", ok, err)
	}

	snap.Header.Tick = 99
	path = filepath.Join(simDir, "snapshots", "99.snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	result := observerproto.Result{Teams: []observerproto.TeamResult{{Name: "A", Score: 40, Rank: 1}, {Name: "B", Score: 0, Rank: 2}}}
	dst, ok, err := ArchiveMatch(simDir, path, snap, result)
	if err != nil || !ok {
		t.Fatalf("archive: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("archived snapshot missing: %v", err)
	}
	meta, err := ReadMeta(simDir)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.Sim != "sim1" || meta.EndStep != 99 || meta.Seed != 7 || len(meta.Teams) != 2 || meta.Teams[0].Score != 40 {
		t.Fatalf("meta %+v", meta)
	}
	got, err := snapshot.ReadSnapshot(dst)
	if err != nil || got.Header.Tick != 99 {
		t.Fatalf("read archived: tick=%d err=%v", got.Header.Tick, err)
	}
}
