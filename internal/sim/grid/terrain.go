package grid

import "fmt"

// Terrain instruction kinds.
const (
	TerrainLineBorder   = "line-border"
	TerrainRaggedBorder = "ragged-border"
	TerrainCave         = "cave"
)

// Instruction is one obstacle generation step. Width is used by the border
// kinds; the remaining fields configure the cave automaton.
type Instruction struct {
	Type         string
	Width        int
	ChanceAlive  float64
	Iterations   int
	CreateLimit  int
	DestroyLimit int
}

// BuildTerrain runs the instructions in order on one obstacle matrix and then
// creates an obstacle for every set cell. It returns the number of obstacles created.
func (g *Grid) BuildTerrain(instructions []Instruction) (int, error) {
	w, h := g.geo.Width, g.geo.Height
	cells := make([][]bool, w)
	for x := range cells {
		cells[x] = make([]bool, h)
	}
	for _, in := range instructions {
		switch in.Type {
		case TerrainLineBorder:
			for off := 0; off < in.Width; off++ {
				lineBorder(cells, w, h, off)
			}
		case TerrainRaggedBorder:
			g.raggedBorder(cells, w, h, in.Width)
		case TerrainCave:
			for x := 0; x < w; x++ {
				for y := 0; y < h; y++ {
					if g.rng.Float64() < in.ChanceAlive {
						cells[x][y] = true
					}
				}
			}
			for i := 0; i < in.Iterations; i++ {
				cells = caveIteration(cells, w, h, in.CreateLimit, in.DestroyLimit)
			}
		default:
			return 0, fmt.Errorf("unknown terrain instruction %q", in.Type)
		}
	}
	n := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !cells[x][y] {
				continue
			}
			if _, err := g.Create(KindObstacle, Position{X: x, Y: y}, ""); err == nil {
				n++
			}
		}
	}
	return n, nil
}

func lineBorder(cells [][]bool, w, h, off int) {
	if off >= w-off || off >= h-off {
		return
	}
	for x := off; x < w-off; x++ {
		cells[x][off] = true
		cells[x][h-off-1] = true
	}
	for y := off; y < h-off; y++ {
		cells[off][y] = true
		cells[w-off-1][y] = true
	}
}

func (g *Grid) raggedBorder(cells [][]bool, w, h, width int) {
	walk := func(n, limit int, set func(i, depth int)) {
		cur := width
		for i := 0; i < n; i++ {
			cur = cur - 1 + g.rng.Intn(3)
			if cur < 1 {
				cur = 1
			}
			for d := 0; d < cur && d < limit; d++ {
				set(i, d)
			}
		}
	}
	walk(w, h, func(x, d int) { cells[x][d] = true })
	walk(w, h, func(x, d int) { cells[x][h-d-1] = true })
	walk(h, w, func(y, d int) { cells[d][y] = true })
	walk(h, w, func(y, d int) { cells[w-d-1][y] = true })
}

func caveIteration(cells [][]bool, w, h, createLimit, destroyLimit int) [][]bool {
	next := make([][]bool, w)
	for x := 0; x < w; x++ {
		next[x] = make([]bool, h)
		for y := 0; y < h; y++ {
			n := 0
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if cells[mod(x+dx, w)][mod(y+dy, h)] {
						n++
					}
				}
			}
			if cells[x][y] {
				next[x][y] = n >= destroyLimit
			} else {
				next[x][y] = n > createLimit
			}
		}
	}
	return next
}
