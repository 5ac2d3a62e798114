package grid

import "fmt"

// Position is a cell on the torus. Positions handed out by a Grid are always wrapped.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Add returns p translated by the raw offset o (not wrapped).
func (p Position) Add(o Position) Position { return Position{X: p.X + o.X, Y: p.Y + o.Y} }

func (p Position) ToArray() [2]int { return [2]int{p.X, p.Y} }

// Direction is one of the four orthogonal movement directions.
type Direction string

const (
	North Direction = "n"
	South Direction = "s"
	East  Direction = "e"
	West  Direction = "w"
)

var Directions = []Direction{North, South, East, West}

func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case North, South, East, West:
		return Direction(s), true
	default:
		return "", false
	}
}

// Vector is the unit offset of d. y grows towards the south.
func (d Direction) Vector() Position {
	switch d {
	case North:
		return Position{X: 0, Y: -1}
	case South:
		return Position{X: 0, Y: 1}
	case East:
		return Position{X: 1, Y: 0}
	case West:
		return Position{X: -1, Y: 0}
	}
	return Position{}
}

// Geometry carries the torus dimensions. All wrap-aware arithmetic goes through it.
type Geometry struct {
	Width  int
	Height int
}

func mod(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// shortest maps an axis offset into (-n/2, n/2].
func shortest(d, n int) int {
	d = mod(d, n)
	if d > n/2 {
		d -= n
	}
	return d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (g Geometry) Wrap(p Position) Position {
	return Position{X: mod(p.X, g.Width), Y: mod(p.Y, g.Height)}
}

func (g Geometry) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.Width && p.Y < g.Height
}

// RelativeTo returns the shortest toroidal offset from origin to p.
func (g Geometry) RelativeTo(p, origin Position) Position {
	return Position{X: shortest(p.X-origin.X, g.Width), Y: shortest(p.Y-origin.Y, g.Height)}
}

// Distance is the Manhattan distance on the torus.
func (g Geometry) Distance(a, b Position) int {
	d := g.RelativeTo(b, a)
	return abs(d.X) + abs(d.Y)
}

func (g Geometry) Translate(p Position, dx, dy int) Position {
	return g.Wrap(Position{X: p.X + dx, Y: p.Y + dy})
}

func (g Geometry) Moved(p Position, d Direction, n int) Position {
	v := d.Vector()
	return g.Translate(p, v.X*n, v.Y*n)
}

// Rotated90 rotates p a quarter turn around center.
func (g Geometry) Rotated90(p, center Position, clockwise bool) Position {
	d := g.RelativeTo(p, center)
	if clockwise {
		return g.Translate(center, -d.Y, d.X)
	}
	return g.Translate(center, d.Y, -d.X)
}

// SpanArea lists the cells within Manhattan radius r of center, each once.
func (g Geometry) SpanArea(center Position, r int) []Position {
	if r < 0 {
		return nil
	}
	out := make([]Position, 0, 2*r*r+2*r+1)
	seen := make(map[Position]struct{}, cap(out))
	for dx := -r; dx <= r; dx++ {
		rest := r - abs(dx)
		for dy := -rest; dy <= rest; dy++ {
			p := g.Translate(center, dx, dy)
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
