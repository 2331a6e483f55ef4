package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeConn records publishes and replays retained messages on subscribe.
type fakeConn struct {
	mu           sync.Mutex
	published    []string
	unsubscribed []string
	retained     map[string][][]byte
	publishErr   error
	onPublish    func(topic string, payload []byte)
	disconnected bool
}

func (f *fakeConn) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	f.mu.Lock()
	f.published = append(f.published, topic)
	hook := f.onPublish
	f.mu.Unlock()
	if f.publishErr != nil {
		return fakeToken{err: f.publishErr}
	}
	if hook != nil {
		hook(topic, payload.([]byte))
	}
	return fakeToken{}
}

func (f *fakeConn) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	for _, payload := range f.retained[topic] {
		cb(nil, fakeMessage{topic: topic, payload: payload})
	}
	return fakeToken{}
}

func (f *fakeConn) Unsubscribe(topics ...string) paho.Token {
	f.mu.Lock()
	f.unsubscribed = append(f.unsubscribed, topics...)
	f.mu.Unlock()
	return fakeToken{}
}

func (f *fakeConn) Disconnect(uint) { f.disconnected = true }

func testClient(fc *fakeConn, timeout time.Duration) *Client {
	c := newClient(withDefaults(Options{ClientID: "cli", Timeout: timeout}))
	c.conn = fc
	return c
}

func TestHandleReplyRoutesByID(t *testing.T) {
	c := testClient(&fakeConn{}, time.Second)
	ch := c.pending.register("abc")

	payload, _ := json.Marshal(nav.ReplyEnvelope{ID: "abc", OK: true})
	c.handleReply(nil, fakeMessage{topic: "nav/v1/reply/x", payload: payload})
	select {
	case reply := <-ch:
		if !reply.OK {
			t.Fatalf("unexpected reply %+v", reply)
		}
	default:
		t.Fatalf("reply not delivered")
	}

	other, _ := json.Marshal(nav.ReplyEnvelope{ID: "zzz"})
	c.handleReply(nil, fakeMessage{payload: other})
	c.handleReply(nil, fakeMessage{payload: []byte("{")})
	if len(ch) != 0 {
		t.Fatalf("unknown replies must be dropped")
	}
}

func TestPublishCommandReceivesReply(t *testing.T) {
	fc := &fakeConn{}
	c := testClient(fc, time.Second)
	fc.onPublish = func(_ string, payload []byte) {
		var cmd nav.CommandEnvelope
		if err := json.Unmarshal(payload, &cmd); err != nil {
			t.Errorf("decode command: %v", err)
			return
		}
		reply, _ := json.Marshal(nav.ReplyEnvelope{ID: cmd.ID, Type: "ack", OK: true})
		// Replies arrive on paho's router goroutine.
		go c.handleReply(nil, fakeMessage{topic: c.ReplyTopic(), payload: reply})
	}

	reply, err := c.PublishCommand(context.Background(), "den", nav.CommandEnvelope{ID: "cmd-1", Type: "route"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if reply.ID != "cmd-1" || !reply.OK {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(fc.published) != 1 || fc.published[0] != nav.TopicCommands(nav.BaseTopic, "den") {
		t.Fatalf("unexpected publishes %v", fc.published)
	}
	if c.pending.size() != 0 {
		t.Fatalf("waiter not released")
	}
}

func TestPublishCommandConcurrentRepliesDoNotCross(t *testing.T) {
	fc := &fakeConn{}
	c := testClient(fc, time.Second)
	fc.onPublish = func(_ string, payload []byte) {
		var cmd nav.CommandEnvelope
		_ = json.Unmarshal(payload, &cmd)
		reply, _ := json.Marshal(nav.ReplyEnvelope{ID: cmd.ID, Type: cmd.Type, OK: true})
		go c.handleReply(nil, fakeMessage{payload: reply})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			reply, err := c.PublishCommand(context.Background(), "den", nav.CommandEnvelope{ID: id, Type: "t" + id})
			if err != nil {
				errs <- err
				return
			}
			if reply.ID != id || reply.Type != "t"+id {
				errs <- errors.New("reply crossed to another command: " + reply.ID)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestPublishCommandTimesOut(t *testing.T) {
	c := testClient(&fakeConn{}, 20*time.Millisecond)
	_, err := c.PublishCommand(context.Background(), "den", nav.CommandEnvelope{ID: "x"})
	if err == nil {
		t.Fatalf("expected timeout")
	}
	if c.pending.size() != 0 {
		t.Fatalf("waiter not released after timeout")
	}
}

func TestPublishCommandHonoursContext(t *testing.T) {
	c := testClient(&fakeConn{}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.PublishCommand(ctx, "den", nav.CommandEnvelope{ID: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPublishCommandPublishError(t *testing.T) {
	c := testClient(&fakeConn{publishErr: errors.New("not connected")}, time.Second)
	if _, err := c.PublishCommand(context.Background(), "den", nav.CommandEnvelope{ID: "x"}); err == nil {
		t.Fatalf("expected publish error")
	}
	if c.pending.size() != 0 {
		t.Fatalf("waiter not released after publish error")
	}
}

func TestListPresenceCollectsLatestPerNode(t *testing.T) {
	topic := nav.TopicPresence(nav.BaseTopic, "+")
	den, _ := json.Marshal(nav.Presence{NodeID: "den", Name: "old", TS: 1})
	denNew, _ := json.Marshal(nav.Presence{NodeID: "den", Name: "Den", TS: 2})
	attic, _ := json.Marshal(nav.Presence{NodeID: "attic", Name: "Attic"})
	fc := &fakeConn{retained: map[string][][]byte{
		topic: {den, []byte("garbage"), []byte(`{"name":"no id"}`), attic, denNew},
	}}
	c := testClient(fc, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	nodes, err := c.ListPresence(ctx)
	if err != nil {
		t.Fatalf("list presence: %v", err)
	}
	if len(nodes) != 2 || nodes[0].NodeID != "attic" || nodes[1].Name != "Den" {
		t.Fatalf("unexpected presence %+v", nodes)
	}
	if len(fc.unsubscribed) != 1 || fc.unsubscribed[0] != topic {
		t.Fatalf("presence subscription not released: %v", fc.unsubscribed)
	}
}

func TestCloseDisconnects(t *testing.T) {
	fc := &fakeConn{}
	testClient(fc, time.Second).Close()
	if !fc.disconnected {
		t.Fatalf("expected disconnect")
	}
}

func TestBuildTLSConfig(t *testing.T) {
	cfg, err := BuildTLSConfig("", "", "")
	if err != nil || cfg != nil {
		t.Fatalf("no tls expected, got %v %v", cfg, err)
	}
	if _, err := BuildTLSConfig("", "cert.pem", ""); err == nil {
		t.Fatalf("cert without key must fail")
	}
	if _, err := BuildTLSConfig("/does/not/exist", "", ""); err == nil {
		t.Fatalf("missing ca must fail")
	}
}
