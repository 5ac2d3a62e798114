package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentcontest/massim-2022/internal/observerproto"
	"github.com/agentcontest/massim-2022/internal/sim/catalogs"
	"github.com/agentcontest/massim-2022/internal/sim/tuning"
	"github.com/agentcontest/massim-2022/internal/sim/world"
)

func newWorld(t *testing.T, steps int) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	r := tuning.Defaults()
	r.Steps = steps
	r.Grid.Width, r.Grid.Height = 20, 20
	r.Grid.Instructions = nil
	r.Grid.Goals.Number = 0
	r.Grid.RoleZones.Number = 0
	r.Tasks.Concurrent = 0
	r.Events.Chance = 0
	r.Regulation.Chance = 0
	r.Teams = []tuning.Team{{Name: "A", Agents: 2}, {Name: "B", Agents: 2}}
	w, err := world.New(world.WorldConfig{ID: "obs", Seed: 3, Rules: r, Logger: log.New(io.Discard, "", 0)}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func newMux(w *world.World) *http.ServeMux {
	s := NewServer(w, log.New(io.Discard, "", 0))
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/v1/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", s.WSHandler())
	mux.HandleFunc("/status", s.StatusHandler())
	mux.HandleFunc("/result", s.ResultHandler())
	return mux
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHTTPViews(t *testing.T) {
	w := newWorld(t, 2)
	srv := httptest.NewServer(newMux(w))
	defer srv.Close()

	var boot observerproto.BootstrapResponse
	if code := getJSON(t, srv.URL+"/admin/v1/observer/bootstrap", &boot); code != http.StatusOK {
		t.Fatalf("bootstrap status %d", code)
	}
	if boot.World.Sim != "obs" || boot.World.Grid.Width != 20 || len(boot.World.Teams) != 2 {
		t.Fatalf("bootstrap %+v", boot)
	}

	if code := getJSON(t, srv.URL+"/result", nil); code != http.StatusConflict {
		t.Fatalf("result before end: %d", code)
	}

	w.StepOnce(nil, nil, nil)
	w.StepOnce(nil, nil, nil)

	var st observerproto.Status
	if code := getJSON(t, srv.URL+"/status", &st); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if !st.Finished || len(st.Entities) != 4 {
		t.Fatalf("status %+v", st)
	}
	var res observerproto.Result
	if code := getJSON(t, srv.URL+"/result", &res); code != http.StatusOK {
		t.Fatalf("result status %d", code)
	}
	if res.Type != observerproto.TypeResult || len(res.Teams) != 2 {
		t.Fatalf("result %+v", res)
	}
}

func TestObserverSubscribeGetsSnapshot(t *testing.T) {
	w := newWorld(t, 10)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		_ = w.Run(contextUntil(stop))
	}()

	srv := httptest.NewServer(newMux(w))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/admin/v1/observer/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap observerproto.Snapshot
	if err := json.Unmarshal(msg, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Type != observerproto.TypeSnapshot || snap.Sim != "obs" || len(snap.Entities) != 4 {
		t.Fatalf("snapshot %+v", snap)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	} {
		if got := IsLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v want %v", addr, got, want)
		}
	}
}

func contextUntil(stop <-chan struct{}) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}
