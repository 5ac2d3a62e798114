package grid

import (
	"errors"
	"sort"
)

var (
	ErrCellOccupied  = errors.New("cell already occupied")
	ErrUnknownObject = errors.New("unknown object")
	ErrNotAttachable = errors.New("object is not attachable")
)

// IDSet is a set of object ids, used to exclude a moving body from occupancy checks.
type IDSet map[ObjectID]struct{}

func NewIDSet(ids ...ObjectID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id ObjectID) bool {
	_, ok := s[id]
	return ok
}

// MultiHub indexes objects by cell; a cell may hold any number of them.
type MultiHub struct {
	cells map[Position]map[ObjectID]*Object
	byID  map[ObjectID]*Object
}

func NewMultiHub() *MultiHub {
	return &MultiHub{
		cells: map[Position]map[ObjectID]*Object{},
		byID:  map[ObjectID]*Object{},
	}
}

func (h *MultiHub) Add(o *Object) {
	h.byID[o.ID] = o
	set := h.cells[o.Pos]
	if set == nil {
		set = map[ObjectID]*Object{}
		h.cells[o.Pos] = set
	}
	set[o.ID] = o
}

func (h *MultiHub) Remove(o *Object) {
	if _, ok := h.byID[o.ID]; !ok {
		return
	}
	delete(h.byID, o.ID)
	h.removeAt(o.ID, o.Pos)
}

func (h *MultiHub) removeAt(id ObjectID, pos Position) {
	set := h.cells[pos]
	if set == nil {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(h.cells, pos)
	}
}

// Lookup returns a copy of the objects at pos, ordered by id.
func (h *MultiHub) Lookup(pos Position) []*Object {
	set := h.cells[pos]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Object, 0, len(set))
	for _, o := range set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *MultiHub) IsTaken(pos Position, exclude IDSet) bool {
	for id := range h.cells[pos] {
		if !exclude.Has(id) {
			return true
		}
	}
	return false
}

func (h *MultiHub) Len() int { return len(h.byID) }

// All returns every tracked object ordered by id.
func (h *MultiHub) All() []*Object {
	out := make([]*Object, 0, len(h.byID))
	for _, o := range h.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Hub indexes objects of a single-occupancy kind (blocks, obstacles, dispensers).
type Hub struct {
	cells map[Position]*Object
	byID  map[ObjectID]*Object
}

func NewHub() *Hub {
	return &Hub{
		cells: map[Position]*Object{},
		byID:  map[ObjectID]*Object{},
	}
}

// Add refuses a second object at an occupied cell.
func (h *Hub) Add(o *Object) error {
	if prev, ok := h.cells[o.Pos]; ok && prev.ID != o.ID {
		return ErrCellOccupied
	}
	h.byID[o.ID] = o
	h.cells[o.Pos] = o
	return nil
}

func (h *Hub) Remove(o *Object) {
	if _, ok := h.byID[o.ID]; !ok {
		return
	}
	delete(h.byID, o.ID)
	if cur, ok := h.cells[o.Pos]; ok && cur.ID == o.ID {
		delete(h.cells, o.Pos)
	}
}

func (h *Hub) Lookup(pos Position) (*Object, bool) {
	o, ok := h.cells[pos]
	return o, ok
}

func (h *Hub) IsTaken(pos Position, exclude IDSet) bool {
	o, ok := h.cells[pos]
	return ok && !exclude.Has(o.ID)
}

func (h *Hub) Len() int { return len(h.byID) }

func (h *Hub) All() []*Object {
	out := make([]*Object, 0, len(h.byID))
	for _, o := range h.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
