package world

import (
	"log"
	"os"

	"github.com/agentcontest/massim-2022/internal/sim/tuning"
)

type WorldConfig struct {
	// ID names the match; it shows up in logs, snapshots and the archive.
	ID   string
	Seed int64

	Rules tuning.Tuning

	// Setup holds the lines of an optional setup command file.
	Setup []string

	// WaitForAgents holds step 0 until every agent is connected.
	WaitForAgents bool

	Logger *log.Logger
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "sim"
	}
	if c.Rules.TickRateHz <= 0 {
		c.Rules.TickRateHz = 2
	}
	if c.Rules.SnapshotEveryTicks <= 0 {
		c.Rules.SnapshotEveryTicks = 50
	}
	if c.Rules.Tasks.Concurrent < 0 {
		c.Rules.Tasks.Concurrent = 0
	}
	if c.Rules.Regulation.Simultaneous < 0 {
		c.Rules.Regulation.Simultaneous = 0
	}
	if c.Logger == nil {
		c.Logger = log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds)
	}
}
