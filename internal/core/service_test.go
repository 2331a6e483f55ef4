package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

type stubClock struct{}

func (stubClock) NowUnix() int64 { return 100 }

type stubIDGen struct{}

func (stubIDGen) NewID() string { return "id-1" }

type stubBroker struct {
	presence   []nav.Presence
	replies    map[string]nav.ReplyEnvelope
	lastNode   string
	lastCmd    nav.CommandEnvelope
	replyTopic string
}

func (s *stubBroker) ReplyTopic() string { return s.replyTopic }

func (s *stubBroker) PublishCommand(ctx context.Context, nodeID string, cmd nav.CommandEnvelope) (nav.ReplyEnvelope, error) {
	s.lastNode = nodeID
	s.lastCmd = cmd
	if reply, ok := s.replies[cmd.Type]; ok {
		return reply, nil
	}
	return nav.ReplyEnvelope{ID: cmd.ID, Type: "ack", OK: true, TS: 101}, nil
}

func (s *stubBroker) ListPresence(ctx context.Context) ([]nav.Presence, error) {
	return s.presence, nil
}

func newRemote(broker *stubBroker) Remote {
	return Remote{
		Broker:   broker,
		Resolver: Resolver{Presence: broker},
		Clock:    stubClock{},
		IDGen:    stubIDGen{},
		Config:   Config{Identity: "tester"},
	}
}

func TestRemoteRouteDecodesReply(t *testing.T) {
	body, err := json.Marshal(nav.RouteReply{Screen: nav.Screen{Content: nav.ContentTVShows, Success: true}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	broker := &stubBroker{
		presence:   []nav.Presence{{NodeID: "nav:navigator:den", Kind: NodeKind, Name: "Den"}},
		replies:    map[string]nav.ReplyEnvelope{nav.CommandRoute: {OK: true, Body: body}},
		replyTopic: "nav/v1/reply/tester",
	}
	res, err := newRemote(broker).Route(context.Background(), "", "/menu/filter/3")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if !res.Reply.Screen.Success || res.NodeID != "nav:navigator:den" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if broker.lastCmd.ID != "id-1" || broker.lastCmd.TS != 100 || broker.lastCmd.From != "tester" {
		t.Fatalf("command not decorated: %+v", broker.lastCmd)
	}
	if broker.lastCmd.ReplyTo != "nav/v1/reply/tester" {
		t.Fatalf("reply topic not set: %s", broker.lastCmd.ReplyTo)
	}
	var sent nav.RouteBody
	if err := json.Unmarshal(broker.lastCmd.Body, &sent); err != nil || sent.Path != "/menu/filter/3" {
		t.Fatalf("unexpected body: %s", broker.lastCmd.Body)
	}
}

func TestRemotePreflightMapsReplyError(t *testing.T) {
	broker := &stubBroker{
		presence: []nav.Presence{{NodeID: "nav:navigator:den", Kind: NodeKind, Name: "Den"}},
		replies: map[string]nav.ReplyEnvelope{
			nav.CommandPreflight: {OK: false, Err: &nav.ReplyError{Code: "AUTH", Message: "login rejected"}},
		},
	}
	err := newRemote(broker).Preflight(context.Background(), "Den")
	if ExitCode(err) != ExitAuth {
		t.Fatalf("expected auth exit code, got %v", err)
	}
}
