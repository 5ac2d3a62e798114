package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/agentcontest/massim-2022/internal/sim/grid"
)

// stateDigest hashes everything that influences future steps. Two worlds
// built from the same seed and fed the same actions produce equal digests.
func (w *World) stateDigest(step int) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, int64(step))
	digestWriteI64(h, &tmp, w.cfg.Seed)

	for _, e := range w.sortedEntities() {
		digestWriteString(h, e.name)
		digestWriteString(h, e.team)
		digestWriteString(h, e.role.Name)
		p := e.Pos()
		digestWriteI64(h, &tmp, int64(p.X))
		digestWriteI64(h, &tmp, int64(p.Y))
		digestWriteI64(h, &tmp, int64(e.energy))
		digestWriteI64(h, &tmp, int64(e.deactivatedSteps))
		digestWriteString(h, e.lastAction)
		digestWriteString(h, e.lastResult)
	}

	for _, o := range w.attachables() {
		digestWriteObject(h, &tmp, o)
	}
	for _, o := range w.grid.Dispensers() {
		digestWriteObject(h, &tmp, o)
	}
	for _, e := range w.edgesV1() {
		digestWriteU64(h, &tmp, e.A)
		digestWriteU64(h, &tmp, e.B)
	}

	for _, name := range w.taskOrder {
		t := w.tasks[name]
		digestWriteString(h, t.Name)
		digestWriteI64(h, &tmp, int64(t.Deadline))
		digestWriteI64(h, &tmp, int64(t.Iterations))
		digestWriteI64(h, &tmp, int64(t.Completed))
		for _, r := range t.SortedRequirements() {
			digestWriteI64(h, &tmp, int64(r.X))
			digestWriteI64(h, &tmp, int64(r.Y))
			digestWriteString(h, r.Type)
		}
	}

	for _, zt := range []grid.ZoneType{grid.ZoneGoal, grid.ZoneRole} {
		for _, z := range w.grid.Zones(zt) {
			digestWriteString(h, string(zt))
			digestWriteI64(h, &tmp, int64(z.Center.X))
			digestWriteI64(h, &tmp, int64(z.Center.Y))
			digestWriteI64(h, &tmp, int64(z.Radius))
		}
	}
	for _, c := range w.clearEvents {
		digestWriteI64(h, &tmp, int64(c.Pos.X))
		digestWriteI64(h, &tmp, int64(c.Pos.Y))
		digestWriteI64(h, &tmp, int64(c.Radius))
		digestWriteI64(h, &tmp, int64(c.Step))
	}
	for _, n := range w.officer.Norms() {
		digestWriteString(h, n.String())
	}
	for _, t := range w.teams {
		digestWriteString(h, t.Name)
		digestWriteI64(h, &tmp, t.Score)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteObject(h hashWriter, tmp *[8]byte, o *grid.Object) {
	digestWriteU64(h, tmp, uint64(o.ID))
	h.Write([]byte{byte(o.Kind)})
	digestWriteI64(h, tmp, int64(o.Pos.X))
	digestWriteI64(h, tmp, int64(o.Pos.Y))
	digestWriteString(h, o.Type)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

// digestWriteString is length-prefixed so adjacent strings cannot collide.
func digestWriteString(h hashWriter, s string) {
	var tmp [8]byte
	digestWriteU64(h, &tmp, uint64(len(s)))
	h.Write([]byte(s))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
