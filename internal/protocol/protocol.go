package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello         = "HELLO"
	TypeSimStart      = "SIM_START"
	TypeRequestAction = "REQUEST_ACTION"
	TypeAction        = "ACTION"
	TypeSimEnd        = "SIM_END"
	TypeError         = "ERROR"
	TypeBye           = "BYE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
