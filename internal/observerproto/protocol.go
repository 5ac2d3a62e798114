package observerproto

// Version is the observer protocol version (separate from the agent WS protocol).
const Version = "1.0"

// Message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeSnapshot  = "SNAPSHOT"
	TypeResult    = "RESULT"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the cadence.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// EverySteps sends one snapshot per N steps; 0 or 1 sends every step.
	EverySteps int `json:"every_steps,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	Step            int         `json:"step"`
	World           StaticWorld `json:"world"`
}

// StaticWorld is the part of the match that never changes.
type StaticWorld struct {
	Sim        string     `json:"sim"`
	Grid       GridSize   `json:"grid"`
	Teams      []TeamInfo `json:"teams"`
	BlockTypes []string   `json:"blockTypes"`
	Roles      []string   `json:"roles"`
	MaxEnergy  int        `json:"maxEnergy"`
	Steps      int        `json:"steps"`
	Seed       int64      `json:"seed"`
	Obstacles  int        `json:"initialObstacles"`
}

type GridSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type TeamInfo struct {
	Name   string `json:"name"`
	Agents int    `json:"agents"`
}

// Server -> Client. Sent once per step.
type Snapshot struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Sim             string `json:"sim"`
	Step            int    `json:"step"`

	Entities   []EntityState    `json:"entities"`
	Blocks     []BlockState     `json:"blocks"`
	Obstacles  []ObstacleState  `json:"obstacles"`
	Dispensers []DispenserState `json:"dispensers"`
	Tasks      []TaskState      `json:"tasks"`
	GoalZones  []ZoneState      `json:"goalZones"`
	RoleZones  []ZoneState      `json:"roleZones"`
	Clear      []ClearState     `json:"clear"`
	Scores     map[string]int64 `json:"scores"`
	Norms      []NormState      `json:"norms"`
	Violations []Violation      `json:"violations"`
	Events     []LogEvent       `json:"events,omitempty"`
}

type EntityState struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name"`
	Team         string   `json:"team"`
	Role         string   `json:"role"`
	X            int      `json:"x"`
	Y            int      `json:"y"`
	Energy       int      `json:"energy"`
	Vision       int      `json:"vision"`
	Action       string   `json:"action"`
	ActionParams []string `json:"actionParams"`
	ActionResult string   `json:"actionResult"`
	Deactivated  bool     `json:"deactivated,omitempty"`
	Attached     [][2]int `json:"attached,omitempty"`
}

type BlockState struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Type     string   `json:"type"`
	Attached [][2]int `json:"attached,omitempty"`
}

type ObstacleState struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Attached [][2]int `json:"attached,omitempty"`
}

type DispenserState struct {
	ID   uint64 `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

type TaskState struct {
	Name         string        `json:"name"`
	Deadline     int           `json:"deadline"`
	Reward       int           `json:"reward"`
	Iterations   int           `json:"iterations"`
	Completed    int           `json:"completed"`
	Requirements []Requirement `json:"requirements"`
}

type Requirement struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

type ZoneState struct {
	X int `json:"x"`
	Y int `json:"y"`
	R int `json:"r"`
}

type ClearState struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Radius int `json:"radius"`
	Step   int `json:"step"`
}

type NormState struct {
	Name         string        `json:"name"`
	Announced    int           `json:"announced"`
	Start        int           `json:"start"`
	Until        int           `json:"until"`
	Level        string        `json:"level"`
	Requirements []NormSubject `json:"requirements"`
	Punishment   int           `json:"punishment"`
	Active       bool          `json:"active"`
}

type NormSubject struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type Violation struct {
	Norm  string `json:"norm"`
	Agent string `json:"who"`
}

// LogEvent is a free-form match event such as a task completion.
type LogEvent map[string]any

// Status is the lightweight view served at GET /status. Action names chosen
// by agents are hidden.
type Status struct {
	Sim      string         `json:"sim"`
	Step     int            `json:"step"`
	Steps    int            `json:"steps"`
	Finished bool           `json:"finished"`
	Entities []EntityStatus `json:"entities"`
}

type EntityStatus struct {
	Name         string `json:"name"`
	Team         string `json:"team"`
	Action       string `json:"action"`
	ActionResult string `json:"actionResult"`
}

// Result is the final standing of a match.
type Result struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Sim             string       `json:"sim"`
	Steps           int          `json:"steps"`
	Teams           []TeamResult `json:"teams"`
}

type TeamResult struct {
	Name  string `json:"name"`
	Score int64  `json:"score"`
	Rank  int    `json:"rank"`
}
