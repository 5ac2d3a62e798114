package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/agentcontest/massim-2022/internal/observerproto"
	"github.com/agentcontest/massim-2022/internal/persistence/snapshot"
)

type MatchArchiveMeta struct {
	Sim       string                     `json:"sim"`
	Seed      int64                      `json:"seed"`
	Steps     int                        `json:"steps"`
	EndStep   uint64                     `json:"end_step"`
	Snapshot  string                     `json:"snapshot"`
	CreatedAt string                     `json:"created_at"`
	Teams     []observerproto.TeamResult `json:"teams"`
}

// IsFinal reports whether the snapshot was taken after the last step of the match.
func IsFinal(snap snapshot.SnapshotV1) bool {
	return snap.Steps > 0 && snap.Header.Tick+1 >= uint64(snap.Steps)
}

// ArchiveMatch copies the final snapshot into `simDir/archive/` and writes
// meta.json with the standings. Snapshots taken before the end are ignored
// and archived=false is returned.
func ArchiveMatch(simDir, snapshotPath string, snap snapshot.SnapshotV1, result observerproto.Result) (archivedPath string, archived bool, err error) {
	if !IsFinal(snap) {
		return "", false, nil
	}
	dir := filepath.Join(simDir, "archive")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, fmt.Errorf("archive snapshot: %w", err)
	}

	meta := MatchArchiveMeta{
		Sim:       snap.Header.WorldID,
		Seed:      snap.Seed,
		Steps:     snap.Steps,
		EndStep:   snap.Header.Tick,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Teams:     result.Teams,
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, true, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return dst, true, err
	}
	return dst, true, nil
}

// ReadMeta loads the meta.json written by ArchiveMatch.
func ReadMeta(simDir string) (MatchArchiveMeta, error) {
	var m MatchArchiveMeta
	b, err := os.ReadFile(filepath.Join(simDir, "archive", "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
