package grid

import "sort"

type ZoneType string

const (
	ZoneGoal ZoneType = "goal"
	ZoneRole ZoneType = "role"
)

type Zone struct {
	Center Position `json:"pos"`
	Radius int      `json:"r"`
}

// ZoneList holds zones of one type and counts, per cell, how many zones cover it.
// Zones may overlap; there is at most one zone per center.
type ZoneList struct {
	geo      Geometry
	zones    map[Position]Zone
	presence map[Position]int
}

func NewZoneList(geo Geometry) *ZoneList {
	return &ZoneList{geo: geo, zones: map[Position]Zone{}, presence: map[Position]int{}}
}

// Add replaces any zone already centered at center.
func (l *ZoneList) Add(center Position, radius int) {
	center = l.geo.Wrap(center)
	l.Remove(center)
	l.zones[center] = Zone{Center: center, Radius: radius}
	for _, p := range l.geo.SpanArea(center, radius) {
		l.presence[p]++
	}
}

func (l *ZoneList) Remove(center Position) bool {
	center = l.geo.Wrap(center)
	z, ok := l.zones[center]
	if !ok {
		return false
	}
	delete(l.zones, center)
	for _, p := range l.geo.SpanArea(center, z.Radius) {
		if l.presence[p] <= 1 {
			delete(l.presence, p)
			continue
		}
		l.presence[p]--
	}
	return true
}

func (l *ZoneList) Contains(center Position) bool {
	_, ok := l.zones[l.geo.Wrap(center)]
	return ok
}

func (l *ZoneList) IsInZone(p Position) bool {
	return l.presence[l.geo.Wrap(p)] > 0
}

// Zones returns all zones ordered by center (y, then x).
func (l *ZoneList) Zones() []Zone {
	out := make([]Zone, 0, len(l.zones))
	for _, z := range l.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return lessPos(out[i].Center, out[j].Center) })
	return out
}

func (l *ZoneList) Len() int { return len(l.zones) }

// Closest returns the zone whose center is nearest to p.
func (l *ZoneList) Closest(p Position) (Zone, bool) {
	best, found, bestD := Zone{}, false, 0
	for _, z := range l.Zones() {
		d := l.geo.Distance(z.Center, p)
		if !found || d < bestD {
			best, found, bestD = z, true, d
		}
	}
	return best, found
}

// ZoneAt returns one zone covering p, preferring the lowest center.
func (l *ZoneList) ZoneAt(p Position) (Zone, bool) {
	for _, z := range l.Zones() {
		if l.geo.Distance(z.Center, p) <= z.Radius {
			return z, true
		}
	}
	return Zone{}, false
}

func lessPos(a, b Position) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
