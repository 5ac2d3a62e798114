package grid

import (
	"io"
	"log"
	"math"

	"github.com/agentcontest/massim-2022/internal/sim/rng"
)

type Config struct {
	Width       int
	Height      int
	AttachLimit int
	// GoalMoveProbability is the chance that a goal zone relocates after a submission.
	GoalMoveProbability float64
}

// Grid owns every object on the torus, the per-kind position indices, the
// attachment graph and the zone lists. It is not safe for concurrent use.
type Grid struct {
	geo                 Geometry
	attachLimit         int
	goalMoveProbability float64
	rng                 *rng.Rand
	logger              *log.Logger

	nextID  ObjectID
	objects map[ObjectID]*Object

	things      *MultiHub
	attachables *MultiHub
	entities    *MultiHub
	markers     *MultiHub
	blocks      *Hub
	obstacles   *Hub
	dispensers  *Hub

	graph *Graph
	zones map[ZoneType]*ZoneList
}

func New(cfg Config, r *rng.Rand, logger *log.Logger) *Grid {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	geo := Geometry{Width: cfg.Width, Height: cfg.Height}
	return &Grid{
		geo:                 geo,
		attachLimit:         cfg.AttachLimit,
		goalMoveProbability: cfg.GoalMoveProbability,
		rng:                 r,
		logger:              logger,
		objects:             map[ObjectID]*Object{},
		things:              NewMultiHub(),
		attachables:         NewMultiHub(),
		entities:            NewMultiHub(),
		markers:             NewMultiHub(),
		blocks:              NewHub(),
		obstacles:           NewHub(),
		dispensers:          NewHub(),
		graph:               NewGraph(),
		zones: map[ZoneType]*ZoneList{
			ZoneGoal: NewZoneList(geo),
			ZoneRole: NewZoneList(geo),
		},
	}
}

func (g *Grid) Geometry() Geometry { return g.geo }
func (g *Grid) AttachLimit() int   { return g.attachLimit }

func (g *Grid) uniqueHub(k Kind) *Hub {
	switch k {
	case KindBlock:
		return g.blocks
	case KindObstacle:
		return g.obstacles
	case KindDispenser:
		return g.dispensers
	}
	return nil
}

// Create places a new object. Blocks, obstacles and dispensers are single
// occupancy: a second one at the same cell is logged and rejected.
func (g *Grid) Create(kind Kind, pos Position, typ string) (*Object, error) {
	pos = g.geo.Wrap(pos)
	if h := g.uniqueHub(kind); h != nil {
		if prev, ok := h.Lookup(pos); ok {
			g.logger.Printf("create %s at %v rejected: %s %d already there", kind, pos, kind, prev.ID)
			return nil, ErrCellOccupied
		}
	}
	g.nextID++
	o := &Object{ID: g.nextID, Kind: kind, Pos: pos, Type: typ}
	g.objects[o.ID] = o
	g.index(o)
	return o, nil
}

func (g *Grid) index(o *Object) {
	g.things.Add(o)
	if o.Attachable() {
		g.attachables.Add(o)
	}
	switch o.Kind {
	case KindEntity:
		g.entities.Add(o)
	case KindMarker:
		g.markers.Add(o)
	default:
		if h := g.uniqueHub(o.Kind); h != nil {
			if err := h.Add(o); err != nil {
				g.logger.Printf("index %s %d at %v: %v", o.Kind, o.ID, o.Pos, err)
			}
		}
	}
}

func (g *Grid) unindex(o *Object) {
	g.things.Remove(o)
	g.attachables.Remove(o)
	switch o.Kind {
	case KindEntity:
		g.entities.Remove(o)
	case KindMarker:
		g.markers.Remove(o)
	default:
		if h := g.uniqueHub(o.Kind); h != nil {
			h.Remove(o)
		}
	}
}

type relocation struct {
	obj *Object
	to  Position
}

// apply moves a set of objects at once: every old key is dropped before any
// new key is inserted, so members may move into each other's cells.
func (g *Grid) apply(moves []relocation) {
	for _, m := range moves {
		g.unindex(m.obj)
	}
	for _, m := range moves {
		m.obj.Pos = g.geo.Wrap(m.to)
		g.index(m.obj)
	}
}

// Destroy removes the object and all of its attachment edges.
func (g *Grid) Destroy(id ObjectID) bool {
	o, ok := g.objects[id]
	if !ok {
		return false
	}
	g.graph.DetachAll(id)
	g.unindex(o)
	delete(g.objects, id)
	return true
}

func (g *Grid) Object(id ObjectID) (*Object, bool) {
	o, ok := g.objects[id]
	return o, ok
}

// ---- Lookups ----

func (g *Grid) ThingsAt(pos Position) []*Object      { return g.things.Lookup(g.geo.Wrap(pos)) }
func (g *Grid) AttachablesAt(pos Position) []*Object { return g.attachables.Lookup(g.geo.Wrap(pos)) }
func (g *Grid) EntitiesAt(pos Position) []*Object    { return g.entities.Lookup(g.geo.Wrap(pos)) }

func (g *Grid) BlockAt(pos Position) (*Object, bool)     { return g.blocks.Lookup(g.geo.Wrap(pos)) }
func (g *Grid) ObstacleAt(pos Position) (*Object, bool)  { return g.obstacles.Lookup(g.geo.Wrap(pos)) }
func (g *Grid) DispenserAt(pos Position) (*Object, bool) { return g.dispensers.Lookup(g.geo.Wrap(pos)) }

// UniqueAttachable returns the attachable at pos if there is exactly one.
func (g *Grid) UniqueAttachable(pos Position) (*Object, bool) {
	list := g.AttachablesAt(pos)
	if len(list) != 1 {
		return nil, false
	}
	return list[0], true
}

func (g *Grid) Entities() []*Object   { return g.entities.All() }
func (g *Grid) Blocks() []*Object     { return g.blocks.All() }
func (g *Grid) Obstacles() []*Object  { return g.obstacles.All() }
func (g *Grid) Dispensers() []*Object { return g.dispensers.All() }
func (g *Grid) Markers() []*Object    { return g.markers.All() }

// IsUnblocked reports whether no attachable outside exclude occupies pos.
// Dispensers and markers never block.
func (g *Grid) IsUnblocked(pos Position, exclude IDSet) bool {
	return !g.attachables.IsTaken(g.geo.Wrap(pos), exclude)
}

// ---- Attachments ----

// Attach links two adjacent attachables unless the joined body would exceed the attach limit.
func (g *Grid) Attach(a, b ObjectID) bool {
	oa, ob := g.objects[a], g.objects[b]
	if a == b || !oa.Attachable() || !ob.Attachable() {
		return false
	}
	if g.geo.Distance(oa.Pos, ob.Pos) != 1 {
		return false
	}
	body := NewIDSet(g.graph.Closure(a)...)
	for _, id := range g.graph.Closure(b) {
		body[id] = struct{}{}
	}
	if len(body) > g.attachLimit {
		return false
	}
	g.graph.Attach(a, b)
	return true
}

// DetachNeighbors removes the edge between two adjacent attached objects.
func (g *Grid) DetachNeighbors(a, b ObjectID) bool {
	oa, ob := g.objects[a], g.objects[b]
	if oa == nil || ob == nil {
		return false
	}
	if g.geo.Distance(oa.Pos, ob.Pos) != 1 {
		return false
	}
	return g.graph.Detach(a, b)
}

func (g *Grid) DetachAll(id ObjectID) []ObjectID { return g.graph.DetachAll(id) }
func (g *Grid) Attached(id ObjectID) []ObjectID  { return g.graph.Neighbours(id) }
func (g *Grid) IsAttached(a, b ObjectID) bool    { return g.graph.Has(a, b) }

// Closure returns the composite body of id, id first.
func (g *Grid) Closure(id ObjectID) []ObjectID {
	if _, ok := g.objects[id]; !ok {
		return nil
	}
	return g.graph.Closure(id)
}

func (g *Grid) ClosureWithoutSelf(id ObjectID) []ObjectID {
	c := g.Closure(id)
	if len(c) == 0 {
		return nil
	}
	return c[1:]
}

// AttachedToOther reports whether id is directly attached to an object other than except.
func (g *Grid) AttachedToOther(id, except ObjectID) bool {
	for _, n := range g.graph.Neighbours(id) {
		if n != except {
			return true
		}
	}
	return false
}

// ---- Movement ----

// MoveWithAttached moves the whole body of anchor distance cells towards dir.
// Every intermediate cell of every member must be free of foreign attachables;
// otherwise nothing moves.
func (g *Grid) MoveWithAttached(anchor ObjectID, dir Direction, distance int) bool {
	if _, ok := g.objects[anchor]; !ok || distance < 0 {
		return false
	}
	body := g.graph.Closure(anchor)
	ex := NewIDSet(body...)
	moves := make([]relocation, 0, len(body))
	for _, id := range body {
		o := g.objects[id]
		for i := 1; i <= distance; i++ {
			if !g.IsUnblocked(g.geo.Moved(o.Pos, dir, i), ex) {
				return false
			}
		}
		moves = append(moves, relocation{obj: o, to: g.geo.Moved(o.Pos, dir, distance)})
	}
	g.apply(moves)
	return true
}

// RotateWithAttached turns the body of anchor a quarter around the anchor.
// Bodies carrying another entity never rotate.
func (g *Grid) RotateWithAttached(anchor ObjectID, clockwise bool) bool {
	a, ok := g.objects[anchor]
	if !ok {
		return false
	}
	body := g.graph.Closure(anchor)
	ex := NewIDSet(body...)
	moves := make([]relocation, 0, len(body))
	for _, id := range body {
		o := g.objects[id]
		if id != anchor && o.Kind == KindEntity {
			return false
		}
		to := g.geo.Rotated90(o.Pos, a.Pos, clockwise)
		if !g.IsUnblocked(to, ex) {
			return false
		}
		moves = append(moves, relocation{obj: o, to: to})
	}
	g.apply(moves)
	return true
}

// MoveWithoutAttachments teleports a free-standing object to an unblocked cell.
func (g *Grid) MoveWithoutAttachments(id ObjectID, pos Position) bool {
	o, ok := g.objects[id]
	if !ok || g.graph.Degree(id) > 0 {
		return false
	}
	pos = g.geo.Wrap(pos)
	if !g.IsUnblocked(pos, nil) {
		return false
	}
	if h := g.uniqueHub(o.Kind); h != nil && h.IsTaken(pos, NewIDSet(id)) {
		return false
	}
	g.apply([]relocation{{obj: o, to: pos}})
	return true
}

// ---- Random placement ----

func (g *Grid) RandomPosition() Position {
	return Position{X: g.rng.Intn(g.geo.Width), Y: g.rng.Intn(g.geo.Height)}
}

// scanFrom walks the grid row-major with wrap-around from a random start and
// returns the first cell accepted by ok.
func (g *Grid) scanFrom(ok func(Position) bool) (Position, bool) {
	start := g.RandomPosition()
	x, y := start.X, start.Y
	for {
		p := Position{X: x, Y: y}
		if ok(p) {
			return p, true
		}
		x++
		if x >= g.geo.Width {
			x = 0
			y++
			if y >= g.geo.Height {
				y = 0
			}
		}
		if x == start.X && y == start.Y {
			return Position{}, false
		}
	}
}

func (g *Grid) FindRandomFreePosition() (Position, bool) {
	p, ok := g.scanFrom(func(p Position) bool { return g.IsUnblocked(p, nil) })
	if !ok {
		g.logger.Printf("no free position")
	}
	return p, ok
}

// FindRandomFreePositionNear makes up to 50 attempts within maxDistance per axis of center.
func (g *Grid) FindRandomFreePositionNear(center Position, maxDistance int) (Position, bool) {
	if maxDistance < 0 {
		maxDistance = 0
	}
	for i := 0; i < 50; i++ {
		dx := g.rng.Intn(maxDistance + 1)
		dy := g.rng.Intn(maxDistance + 1)
		if g.rng.Float64() >= .5 {
			dx = -dx
		}
		if g.rng.Float64() >= .5 {
			dy = -dy
		}
		p := g.geo.Translate(center, dx, dy)
		if g.IsUnblocked(p, nil) {
			return p, true
		}
	}
	return Position{}, false
}

// FindRandomFreeClusterPosition returns size free cells around a free center,
// drawn from the diamond of radius floor(log2(size)).
func (g *Grid) FindRandomFreeClusterPosition(size int) ([]Position, bool) {
	if size <= 0 {
		return nil, true
	}
	radius := int(math.Log2(float64(size)))
	free := func(center Position) []Position {
		var out []Position
		for _, p := range g.geo.SpanArea(center, radius) {
			if g.IsUnblocked(p, nil) {
				out = append(out, p)
			}
		}
		return out
	}
	center, ok := g.scanFrom(func(p Position) bool {
		return g.IsUnblocked(p, nil) && len(free(p)) >= size
	})
	if !ok {
		g.logger.Printf("no free cluster position for %d", size)
		return nil, false
	}
	return free(center)[:size], true
}

// ---- Markers ----

func (g *Grid) CreateMarker(pos Position, typ string) *Object {
	o, _ := g.Create(KindMarker, pos, typ)
	return o
}

func (g *Grid) DeleteMarkers() {
	for _, m := range g.markers.All() {
		g.Destroy(m.ID)
	}
}

// ---- Zones ----

func (g *Grid) AddZone(t ZoneType, center Position, radius int) {
	g.zones[t].Add(center, radius)
}

func (g *Grid) RemoveZone(t ZoneType, center Position) bool {
	return g.zones[t].Remove(center)
}

func (g *Grid) IsInZone(t ZoneType, pos Position) bool {
	return g.zones[t].IsInZone(pos)
}

func (g *Grid) Zones(t ZoneType) []Zone { return g.zones[t].Zones() }

func (g *Grid) ClosestZone(t ZoneType, pos Position) (Zone, bool) {
	return g.zones[t].Closest(pos)
}

// PopulateZones adds count zones with random free centers and radii in [minSize, maxSize].
func (g *Grid) PopulateZones(t ZoneType, count, minSize, maxSize int) {
	for i := 0; i < count; i++ {
		center, ok := g.FindRandomFreePosition()
		if !ok {
			return
		}
		g.AddZone(t, center, g.rng.BetweenClosed(minSize, maxSize))
	}
}

// MoveGoalZone relocates one goal zone covering pos, with the configured probability.
func (g *Grid) MoveGoalZone(pos Position) (from, to Zone, moved bool) {
	if g.rng.Float64() > g.goalMoveProbability {
		return Zone{}, Zone{}, false
	}
	goals := g.zones[ZoneGoal]
	zone, ok := goals.ZoneAt(pos)
	if !ok {
		return Zone{}, Zone{}, false
	}
	center := zone.Center
	for tries := 0; goals.Contains(center); tries++ {
		if tries > g.geo.Width*g.geo.Height {
			return Zone{}, Zone{}, false
		}
		center = g.RandomPosition()
	}
	goals.Remove(zone.Center)
	goals.Add(center, zone.Radius)
	g.logger.Printf("goal zone moved from %v to %v", zone.Center, center)
	return zone, Zone{Center: center, Radius: zone.Radius}, true
}
