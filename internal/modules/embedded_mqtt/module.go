package embeddedmqtt

import (
	"context"
	"fmt"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/listeners"
	"go.uber.org/zap"

	mqttclient "github.com/mikey-austin/shoko_nav/internal/adapters/mqtt"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

const defaultListen = "127.0.0.1:1883"

// Config configures the embedded MQTT broker.
type Config struct {
	Listen         string
	TopicBase      string
	AllowAnonymous bool
	Username       string
	Password       string
	TLSCA          string
	TLSCert        string
	TLSKey         string
}

func (c Config) tlsEnabled() bool {
	return c.TLSCA != "" || c.TLSCert != "" || c.TLSKey != ""
}

// Module runs a broker that nav nodes and front ends share when no external
// broker is configured.
type Module struct {
	log    *zap.Logger
	server *mqtt.Server
	config Config
}

// NewModule validates cfg and prepares the broker. Nothing listens until Run.
func NewModule(log *zap.Logger, cfg Config) (*Module, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = defaultListen
	}
	if strings.TrimSpace(cfg.TopicBase) == "" {
		cfg.TopicBase = nav.BaseTopic
	}

	server, err := newServer(log, cfg)
	if err != nil {
		return nil, err
	}
	return &Module{log: log, server: server, config: cfg}, nil
}

// Run listens until ctx is done, then closes the broker.
func (m *Module) Run(ctx context.Context) error {
	listener, err := m.listener()
	if err != nil {
		return err
	}
	if err := m.server.AddListener(listener); err != nil {
		return fmt.Errorf("listen %s: %w", m.config.Listen, err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- m.server.Serve() }()
	m.log.Info("embedded mqtt listening",
		zap.String("url", BrokerURL(m.config.Listen, m.config.tlsEnabled())),
		zap.String("topics", m.config.TopicBase+"/#"))

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			m.log.Error("embedded mqtt serve", zap.Error(err))
			_ = m.server.Close()
			return err
		}
		<-ctx.Done()
	}
	return m.server.Close()
}

func (m *Module) listener() (*listeners.TCP, error) {
	cfg := listeners.Config{ID: "nav-tcp", Address: m.config.Listen}
	if m.config.tlsEnabled() {
		tlsConfig, err := mqttclient.BuildTLSConfig(m.config.TLSCA, m.config.TLSCert, m.config.TLSKey)
		if err != nil {
			return nil, err
		}
		cfg.TLSConfig = tlsConfig
	}
	return listeners.NewTCP(cfg), nil
}

func newServer(log *zap.Logger, cfg Config) (*mqtt.Server, error) {
	server := mqtt.New(&mqtt.Options{InlineClient: true, Logger: newSlogLogger(log)})

	hook, opts, err := authHook(cfg)
	if err != nil {
		return nil, err
	}
	if err := server.AddHook(hook, opts); err != nil {
		return nil, err
	}
	if err := server.AddHook(newNodeHook(log, cfg.TopicBase), nil); err != nil {
		return nil, err
	}
	return server, nil
}

// BrokerURL returns the URL clients use to reach a broker on listen.
func BrokerURL(listen string, tlsEnabled bool) string {
	if tlsEnabled {
		return "mqtts://" + listen
	}
	return "mqtt://" + listen
}
