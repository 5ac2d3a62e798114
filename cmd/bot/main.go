package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentcontest/massim-2022/internal/protocol"
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "agentA1", "agent name")
		seed = flag.Int64("seed", 0, "random seed (default: time based)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	b := &bot{rng: rand.New(rand.NewSource(s))}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for {
		select {
		case <-stop:
			_ = conn.WriteJSON(protocol.BaseMessage{Type: protocol.TypeBye, ProtocolVersion: protocol.Version})
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeSimStart:
			var m protocol.SimStartMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			logger.Printf("SIM_START sim=%s name=%s team=%s steps=%d", m.Sim, m.Percept.Name, m.Percept.Team, m.Percept.Steps)

		case protocol.TypeRequestAction:
			var req protocol.RequestActionMsg
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			_ = conn.WriteJSON(b.act(&req))

		case protocol.TypeSimEnd:
			var m protocol.SimEndMsg
			_ = json.Unmarshal(msg, &m)
			logger.Printf("SIM_END score=%d ranking=%d", m.Score, m.Ranking)
			return

		case protocol.TypeError:
			var m protocol.ErrorMsg
			_ = json.Unmarshal(msg, &m)
			logger.Fatalf("ERROR %s: %s", m.Code, m.Message)
		}
	}
}

// bot wanders randomly and grabs blocks from dispensers it stands next to.
type bot struct {
	rng *rand.Rand
}

var directions = []string{"n", "s", "e", "w"}

func (b *bot) act(req *protocol.RequestActionMsg) protocol.ActionMsg {
	act := protocol.ActionMsg{
		Type:            protocol.TypeAction,
		ProtocolVersion: protocol.Version,
		Step:            req.Step,
		Action:          protocol.ActionMove,
		Params:          []string{directions[b.rng.Intn(len(directions))]},
	}
	p := req.Percept
	if p.Deactivated {
		act.Action, act.Params = protocol.ActionSkip, nil
		return act
	}
	if len(p.Attached) == 0 {
		for _, t := range p.Things {
			if t.Type != protocol.ThingDispenser {
				continue
			}
			if d := adjacent(t.X, t.Y); d != "" {
				act.Action, act.Params = protocol.ActionRequest, []string{d}
				if p.LastAction == protocol.ActionRequest && p.LastActionResult == protocol.ResultSuccess {
					act.Action = protocol.ActionAttach
				}
				return act
			}
		}
	}
	return act
}

func adjacent(x, y int) string {
	switch {
	case x == 0 && y == -1:
		return "n"
	case x == 0 && y == 1:
		return "s"
	case x == 1 && y == 0:
		return "e"
	case x == -1 && y == 0:
		return "w"
	}
	return ""
}
