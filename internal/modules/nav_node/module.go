package navnode

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Config configures the navigation node.
type Config struct {
	NodeID       string
	Name         string
	TopicBase    string
	RouteTimeout time.Duration
}

// Navigator is the router a node serves.
type Navigator interface {
	Route(ctx context.Context, path string) (core.Outcome, error)
	Preflight(ctx context.Context) error
	Paths() []string
}

// Transport is the MQTT connection a node uses.
type Transport interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler paho.MessageHandler) error
	Unsubscribe(topic string) error
}

// Module answers nav.route and nav.preflight commands over MQTT.
type Module struct {
	log      *zap.Logger
	client   Transport
	nav      Navigator
	config   Config
	cmdTopic string
	now      func() time.Time
}

// NewModule initializes the node.
func NewModule(log *zap.Logger, client Transport, navigator Navigator, cfg Config) (*Module, error) {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return nil, errors.New("nav node_id required")
	}
	if navigator == nil {
		return nil, errors.New("navigator required")
	}
	if strings.TrimSpace(cfg.TopicBase) == "" {
		cfg.TopicBase = nav.BaseTopic
	}
	if cfg.Name == "" {
		cfg.Name = "Shoko Navigator"
	}
	if cfg.RouteTimeout <= 0 {
		cfg.RouteTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Module{
		log:      log,
		client:   client,
		nav:      navigator,
		config:   cfg,
		cmdTopic: nav.TopicCommands(cfg.TopicBase, cfg.NodeID),
		now:      time.Now,
	}, nil
}

// OfflinePresence is the retained payload left behind when the node goes away.
func OfflinePresence(nodeID string, name string) []byte {
	payload, _ := json.Marshal(nav.Presence{
		NodeID: nodeID,
		Kind:   core.NodeKind,
		Name:   name,
		Caps:   map[string]any{"online": false},
	})
	return payload
}

// Run serves commands until ctx is done.
func (m *Module) Run(ctx context.Context) error {
	handler := func(_ paho.Client, msg paho.Message) {
		m.handleMessage(ctx, msg.Payload())
	}

	if err := m.client.Subscribe(m.cmdTopic, 1, handler); err != nil {
		return err
	}
	defer m.client.Unsubscribe(m.cmdTopic)

	if err := m.publishPresence(true); err != nil {
		return err
	}
	m.log.Info("navigation node ready", zap.String("node", m.config.NodeID), zap.String("topic", m.cmdTopic))

	<-ctx.Done()
	if err := m.publishPresence(false); err != nil {
		m.log.Warn("publish offline presence", zap.Error(err))
	}
	return nil
}

func (m *Module) publishPresence(online bool) error {
	presence := nav.Presence{
		NodeID: m.config.NodeID,
		Kind:   core.NodeKind,
		Name:   m.config.Name,
		Caps: map[string]any{
			"online":   online,
			"commands": []string{nav.CommandRoute, nav.CommandPreflight},
			"routes":   m.nav.Paths(),
		},
		TS: m.now().Unix(),
	}
	payload, err := json.Marshal(presence)
	if err != nil {
		return err
	}
	return m.client.Publish(nav.TopicPresence(m.config.TopicBase, m.config.NodeID), 1, true, payload)
}

func (m *Module) handleMessage(ctx context.Context, payload []byte) {
	var cmd nav.CommandEnvelope
	if err := json.Unmarshal(payload, &cmd); err != nil {
		m.log.Warn("invalid command", zap.Error(err))
		return
	}

	reply := m.dispatch(ctx, cmd)
	if cmd.ReplyTo == "" {
		return
	}
	out, err := json.Marshal(reply)
	if err != nil {
		m.log.Error("marshal reply", zap.Error(err))
		return
	}
	if err := m.client.Publish(cmd.ReplyTo, 1, false, out); err != nil {
		m.log.Error("publish reply", zap.Error(err))
	}
}

func (m *Module) dispatch(ctx context.Context, cmd nav.CommandEnvelope) nav.ReplyEnvelope {
	if err := nav.ValidateCommandEnvelope(cmd); err != nil {
		return m.errorReply(cmd, "INVALID", err.Error())
	}
	reply := nav.ReplyEnvelope{
		ID:   cmd.ID,
		Type: "ack",
		OK:   true,
		TS:   m.now().Unix(),
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.RouteTimeout)
	defer cancel()

	switch cmd.Type {
	case nav.CommandRoute:
		return m.route(ctx, cmd, reply)
	case nav.CommandPreflight:
		if err := m.nav.Preflight(ctx); err != nil {
			return m.errorReply(cmd, core.ReplyCode(err), err.Error())
		}
		return reply
	default:
		return m.errorReply(cmd, "INVALID", "unsupported command")
	}
}

func (m *Module) route(ctx context.Context, cmd nav.CommandEnvelope, reply nav.ReplyEnvelope) nav.ReplyEnvelope {
	var body nav.RouteBody
	if err := json.Unmarshal(cmd.Body, &body); err != nil {
		return m.errorReply(cmd, "INVALID", "invalid body")
	}
	m.log.Debug("route command", zap.String("from", cmd.From), zap.String("path", body.Path))

	out, err := m.nav.Route(ctx, body.Path)
	result := core.OutcomeResult(body.Path, out)
	payload, merr := json.Marshal(result.Reply)
	if merr != nil {
		return m.errorReply(cmd, "ERROR", merr.Error())
	}
	if err != nil {
		errReply := m.errorReply(cmd, core.ReplyCode(err), err.Error())
		errReply.Body = payload
		return errReply
	}
	reply.Body = payload
	return reply
}

func (m *Module) errorReply(cmd nav.CommandEnvelope, code string, message string) nav.ReplyEnvelope {
	return nav.ReplyEnvelope{
		ID:   cmd.ID,
		Type: "error",
		OK:   false,
		TS:   m.now().Unix(),
		Err: &nav.ReplyError{
			Code:    code,
			Message: message,
		},
	}
}
