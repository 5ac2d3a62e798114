package protocol

// REQUEST_ACTION (server -> client), once per step.
type RequestActionMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Step            int         `json:"step"`
	Percept         StepPercept `json:"percept"`
}

type StepPercept struct {
	Score            int64               `json:"score"`
	Things           []Thing             `json:"things"`
	Tasks            []TaskInfo          `json:"tasks"`
	Norms            []NormInfo          `json:"norms"`
	Terrain          map[string][][2]int `json:"terrain"`
	LastAction       string              `json:"lastAction"`
	LastActionParams []string            `json:"lastActionParams"`
	LastActionResult string              `json:"lastActionResult"`
	Attached         [][2]int            `json:"attached"`
	Energy           int                 `json:"energy"`
	Deactivated      bool                `json:"deactivated"`
	Role             string              `json:"role"`
	Events           []Event             `json:"events,omitempty"`
	Violations       []string            `json:"violations,omitempty"`
}

// Thing is one visible object relative to the perceiving entity.
type Thing struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Type    string `json:"type"`
	Details string `json:"details"`
}

// Thing types.
const (
	ThingEntity    = "entity"
	ThingBlock     = "block"
	ThingObstacle  = "obstacle"
	ThingDispenser = "dispenser"
	ThingMarker    = "marker"
)

type TaskInfo struct {
	Name         string        `json:"name"`
	Deadline     int           `json:"deadline"`
	Reward       int           `json:"reward"`
	Requirements []Requirement `json:"requirements"`
}

type Requirement struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

type NormInfo struct {
	Name         string        `json:"name"`
	Start        int           `json:"start"`
	Until        int           `json:"until"`
	Level        string        `json:"level"`
	Requirements []NormSubject `json:"requirements"`
	Punishment   int           `json:"punishment"`
}

type NormSubject struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Details  string `json:"details,omitempty"`
}

// Event is a one-shot notice that is delivered with the next percept only.
type Event map[string]any
