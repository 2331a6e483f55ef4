package navnode

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

type fakeNavigator struct {
	paths     []string
	routeErr  error
	preflight error
}

func (f *fakeNavigator) Route(ctx context.Context, path string) (core.Outcome, error) {
	f.paths = append(f.paths, path)
	out := core.Outcome{
		Route:  "root",
		Screen: nav.Screen{Success: f.routeErr == nil, SelectIndex: -1, Items: []nav.DisplayItem{{Title: "Airing"}}},
	}
	if f.routeErr != nil {
		out.Screen.Items = nil
		out.Messages = []nav.Message{{Title: "Connection error", Text: "down", Priority: "blocking"}}
	}
	return out, f.routeErr
}

func (f *fakeNavigator) Preflight(ctx context.Context) error {
	return f.preflight
}

func (f *fakeNavigator) Paths() []string {
	return []string{"/"}
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeTransport struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]paho.MessageHandler
}

func (f *fakeTransport) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic: topic, retained: retained, payload: payload})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, qos byte, handler paho.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = map[string]paho.MessageHandler{}
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func (f *fakeTransport) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

func newTestModule(t *testing.T, navigator Navigator, transport Transport) *Module {
	t.Helper()
	m, err := NewModule(nil, transport, navigator, Config{NodeID: "nav:den"})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	return m
}

func routeCommand(t *testing.T, path string) nav.CommandEnvelope {
	t.Helper()
	cmd, err := nav.NewCommand(nav.CommandRoute, nav.RouteBody{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	cmd.ID = "cmd-1"
	cmd.TS = 1
	cmd.From = "tester"
	cmd.ReplyTo = "nav/v1/reply/tester"
	return cmd
}

func TestDispatchRoute(t *testing.T) {
	navigator := &fakeNavigator{}
	m := newTestModule(t, navigator, &fakeTransport{})

	reply := m.dispatch(context.Background(), routeCommand(t, "/menu/filter/3"))
	if !reply.OK || reply.ID != "cmd-1" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	var body nav.RouteReply
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Screen.Items) != 1 || navigator.paths[0] != "/menu/filter/3" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDispatchRouteFailureKeepsMessages(t *testing.T) {
	navigator := &fakeNavigator{routeErr: &core.Error{Kind: core.KindConnection, Msg: "down"}}
	m := newTestModule(t, navigator, &fakeTransport{})

	reply := m.dispatch(context.Background(), routeCommand(t, "/"))
	if reply.OK || reply.Err == nil || reply.Err.Code != "CONNECTION" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	var body nav.RouteReply
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Screen.Success || len(body.Messages) != 1 {
		t.Fatalf("failed screen expected with messages, got %+v", body)
	}
}

func TestDispatchRejectsInvalid(t *testing.T) {
	m := newTestModule(t, &fakeNavigator{}, &fakeTransport{})

	reply := m.dispatch(context.Background(), nav.CommandEnvelope{ID: "x", Type: nav.CommandRoute})
	if reply.OK || reply.Err.Code != "INVALID" {
		t.Fatalf("expected invalid envelope, got %+v", reply)
	}

	cmd := routeCommand(t, "/")
	cmd.Type = "nav.unknown"
	reply = m.dispatch(context.Background(), cmd)
	if reply.OK || reply.Err.Message != "unsupported command" {
		t.Fatalf("expected unsupported, got %+v", reply)
	}
}

func TestDispatchPreflight(t *testing.T) {
	navigator := &fakeNavigator{preflight: &core.Error{Kind: core.KindAuth, Msg: "login rejected"}}
	m := newTestModule(t, navigator, &fakeTransport{})

	cmd := nav.CommandEnvelope{ID: "p", Type: nav.CommandPreflight, TS: 1, From: "tester"}
	reply := m.dispatch(context.Background(), cmd)
	if reply.OK || reply.Err.Code != "AUTH" {
		t.Fatalf("expected auth failure, got %+v", reply)
	}
	navigator.preflight = nil
	if reply := m.dispatch(context.Background(), cmd); !reply.OK {
		t.Fatalf("expected ok, got %+v", reply)
	}
}

func TestRunPublishesPresenceAndReplies(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestModule(t, &fakeNavigator{}, transport)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for len(transport.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	payload, _ := json.Marshal(routeCommand(t, "/"))
	m.handleMessage(ctx, payload)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	msgs := transport.snapshot()
	if len(msgs) != 3 {
		t.Fatalf("expected presence, reply, offline presence; got %d", len(msgs))
	}
	if msgs[0].topic != "nav/v1/node/nav:den/presence" || !msgs[0].retained {
		t.Fatalf("unexpected presence %+v", msgs[0])
	}
	var presence nav.Presence
	_ = json.Unmarshal(msgs[0].payload, &presence)
	if presence.Kind != core.NodeKind || presence.Caps["online"] != true {
		t.Fatalf("unexpected presence payload %+v", presence)
	}
	if msgs[1].topic != "nav/v1/reply/tester" {
		t.Fatalf("unexpected reply topic %s", msgs[1].topic)
	}
	_ = json.Unmarshal(msgs[2].payload, &presence)
	if presence.Caps["online"] != false {
		t.Fatalf("expected offline presence")
	}
}

func TestOfflinePresence(t *testing.T) {
	var presence nav.Presence
	if err := json.Unmarshal(OfflinePresence("nav:den", "Den"), &presence); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if presence.NodeID != "nav:den" || presence.Caps["online"] != false {
		t.Fatalf("unexpected presence %+v", presence)
	}
}
