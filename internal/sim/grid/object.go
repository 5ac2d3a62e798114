package grid

// ObjectID identifies a grid object. IDs are assigned by the Grid and never reused.
type ObjectID uint64

type Kind uint8

const (
	KindEntity Kind = iota + 1
	KindBlock
	KindObstacle
	KindDispenser
	KindMarker
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindBlock:
		return "block"
	case KindObstacle:
		return "obstacle"
	case KindDispenser:
		return "dispenser"
	case KindMarker:
		return "marker"
	default:
		return "unknown"
	}
}

// Attachable reports whether objects of this kind can take part in the attachment graph.
func (k Kind) Attachable() bool {
	return k == KindEntity || k == KindBlock || k == KindObstacle
}

// Marker types.
const (
	MarkerClear     = "clear"
	MarkerClearSoon = "ci"
	MarkerPerimeter = "cp"
)

// Object is the single representation of everything that occupies a cell.
// Type holds the block type (blocks, dispensers), the marker type (markers)
// or the agent name (entities).
type Object struct {
	ID   ObjectID
	Kind Kind
	Pos  Position
	Type string
}

func (o *Object) Attachable() bool { return o != nil && o.Kind.Attachable() }
