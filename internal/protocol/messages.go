package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
}

// SIM_START (server -> client)
type SimStartMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Sim             string         `json:"sim"`
	Percept         InitialPercept `json:"percept"`
}

type InitialPercept struct {
	Name     string     `json:"name"`
	Team     string     `json:"team"`
	TeamSize int        `json:"teamSize"`
	Steps    int        `json:"steps"`
	Roles    []RoleInfo `json:"roles"`
	Catalogs Digests    `json:"catalogs"`
}

type RoleInfo struct {
	Name             string   `json:"name"`
	Vision           int      `json:"vision"`
	Actions          []string `json:"actions"`
	Speed            []int    `json:"speed"`
	ClearChance      float64  `json:"clearChance"`
	ClearMaxDistance int      `json:"clearMaxDistance"`
}

type Digests struct {
	Roles         string `json:"roles"`
	NormTemplates string `json:"norm_templates"`
}

// ACTION (client -> server)
type ActionMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Step            int      `json:"step"`
	Action          string   `json:"action"`
	Params          []string `json:"params"`
}

// SIM_END (server -> client)
type SimEndMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Score           int64  `json:"score"`
	Ranking         int    `json:"ranking"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
