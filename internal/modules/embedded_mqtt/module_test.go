package embeddedmqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mikey-austin/shoko_nav/internal/metrics"
)

func TestNewServerAllowAnonymous(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	if server == nil {
		t.Fatalf("expected server")
	}
}

func TestNewModuleWithCredentials(t *testing.T) {
	mod, err := NewModule(zap.NewNop(), Config{Username: "nav", Password: "secret"})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	if mod.config.TopicBase != "nav/v1" || mod.config.Listen != "127.0.0.1:1883" {
		t.Fatalf("unexpected defaults %+v", mod.config)
	}
}

func TestNewServerRequiresAuthConfig(t *testing.T) {
	_, err := newServer(zap.NewNop(), Config{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestInlinePublishSubscribe(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	received := make(chan packets.Packet, 1)
	handler := func(_ *mqtt.Client, _ packets.Subscription, pk packets.Packet) {
		received <- pk
	}
	if err := server.Subscribe("nav/v1/#", 1, handler); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := server.Publish("nav/v1/node/den/presence", []byte("payload"), false, 0); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case pk := <-received:
		if string(pk.Payload) != "payload" {
			t.Fatalf("unexpected payload")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestNavLedgerConfinesUserToTopicBase(t *testing.T) {
	ledger := navLedger(Config{Username: "nav", Password: "secret", TopicBase: "home/nav"})
	cl := &mqtt.Client{Properties: mqtt.ClientProperties{Username: []byte("nav")}}

	if _, ok := ledger.AuthOk(cl, packets.Packet{Connect: packets.ConnectParams{Username: []byte("nav"), Password: []byte("secret")}}); !ok {
		t.Fatalf("configured account must authenticate")
	}
	if _, ok := ledger.AuthOk(cl, packets.Packet{Connect: packets.ConnectParams{Username: []byte("nav"), Password: []byte("wrong")}}); ok {
		t.Fatalf("wrong password must be refused")
	}
	if _, ok := ledger.ACLOk(cl, "home/nav/node/den/cmd", true); !ok {
		t.Fatalf("nav topics must be writable")
	}
	if _, ok := ledger.ACLOk(cl, "zigbee/lamp/set", true); ok {
		t.Fatalf("topics outside the nav tree must be denied")
	}
}

func TestAuthHookSelection(t *testing.T) {
	hook, _, err := authHook(Config{AllowAnonymous: true, Username: "ignored"})
	if err != nil {
		t.Fatalf("anonymous: %v", err)
	}
	if _, ok := hook.(*auth.AllowHook); !ok {
		t.Fatalf("anonymous broker must use the allow hook, got %T", hook)
	}
	hook, opts, err := authHook(Config{Username: "nav"})
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if _, ok := hook.(*auth.Hook); !ok {
		t.Fatalf("credentials must use the ledger hook, got %T", hook)
	}
	if o, ok := opts.(*auth.Options); !ok || o.Ledger == nil {
		t.Fatalf("ledger options missing: %#v", opts)
	}
	if _, _, err := authHook(Config{}); !errors.Is(err, errNoAuth) {
		t.Fatalf("expected errNoAuth, got %v", err)
	}
}

func TestNodeHookTopicKind(t *testing.T) {
	h := newNodeHook(zap.NewNop(), "nav/v1")
	cases := map[string]string{
		"nav/v1/node/den/presence": "presence",
		"nav/v1/node/den/cmd":      "cmd",
		"nav/v1/reply/cli-1":       "reply",
		"nav/v1/node/den":          "other",
		"nav/v1/node/den/cmd/x":    "other",
		"other/v1/node/den/cmd":    "other",
		"nav/v1x/reply/cli":        "other",
	}
	for topic, want := range cases {
		if got := h.topicKind(topic); got != want {
			t.Errorf("topicKind(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestNodeHookCountsSessionsAndMessages(t *testing.T) {
	h := newNodeHook(zap.NewNop(), "nav/v1")
	for _, event := range []byte{mqtt.OnSessionEstablished, mqtt.OnDisconnect, mqtt.OnPublished} {
		if !h.Provides(event) {
			t.Fatalf("hook must provide event %d", event)
		}
	}
	if h.Provides(mqtt.OnACLCheck) {
		t.Fatalf("hook must not take part in access checks")
	}

	cl := &mqtt.Client{ID: "den"}
	clients := testutil.ToFloat64(metrics.BrokerClients)
	h.OnSessionEstablished(cl, packets.Packet{})
	if got := testutil.ToFloat64(metrics.BrokerClients); got != clients+1 {
		t.Fatalf("clients = %v, want %v", got, clients+1)
	}
	h.OnDisconnect(cl, io.EOF, true)
	if got := testutil.ToFloat64(metrics.BrokerClients); got != clients {
		t.Fatalf("clients = %v, want %v", got, clients)
	}

	presence := testutil.ToFloat64(metrics.BrokerMessagesTotal.WithLabelValues("presence"))
	h.OnPublished(cl, packets.Packet{TopicName: "nav/v1/node/den/presence"})
	if got := testutil.ToFloat64(metrics.BrokerMessagesTotal.WithLabelValues("presence")); got != presence+1 {
		t.Fatalf("presence messages = %v", got)
	}
}

func TestSlogBridgeLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := newSlogLogger(zap.New(core))

	log.Warn("listener slow", "listener", "nav-tcp", "clients", 3)
	log.WithGroup("conn").Info("client connected", "id", "den")
	log.Error("read failed", "error", io.EOF)
	log.Error("write failed", "error", errors.New("broken pipe"))

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[0].ContextMap()["clients"] != int64(3) {
		t.Fatalf("unexpected warn entry %+v", entries[0])
	}
	if entries[1].ContextMap()["conn.id"] != "den" {
		t.Fatalf("group prefix missing: %+v", entries[1].ContextMap())
	}
	if entries[2].Level != zapcore.DebugLevel {
		t.Fatalf("closed connections must be demoted to debug, got %v", entries[2].Level)
	}
	if entries[3].Level != zapcore.ErrorLevel {
		t.Fatalf("real errors stay at error, got %v", entries[3].Level)
	}
}

func TestSlogBridgeRespectsZapLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := newSlogLogger(zap.New(core))
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug must be disabled")
	}
	log.Debug("noise")
	log.With("listener", "nav-tcp").Info("started")
	if logs.Len() != 1 || logs.All()[0].ContextMap()["listener"] != "nav-tcp" {
		t.Fatalf("unexpected entries %+v", logs.All())
	}
}

func TestBrokerURL(t *testing.T) {
	if BrokerURL("127.0.0.1:1883", false) != "mqtt://127.0.0.1:1883" {
		t.Fatalf("expected mqtt scheme")
	}
	if BrokerURL("127.0.0.1:8883", true) != "mqtts://127.0.0.1:8883" {
		t.Fatalf("expected mqtts scheme")
	}
}
