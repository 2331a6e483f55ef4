package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/adapters/airing"
	"github.com/mikey-austin/shoko_nav/internal/adapters/clock"
	"github.com/mikey-austin/shoko_nav/internal/adapters/config"
	"github.com/mikey-austin/shoko_nav/internal/adapters/history"
	"github.com/mikey-austin/shoko_nav/internal/adapters/kodi"
	"github.com/mikey-austin/shoko_nav/internal/adapters/mqttserver"
	"github.com/mikey-austin/shoko_nav/internal/adapters/shoko"
	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/internal/metrics"
	embeddedmqtt "github.com/mikey-austin/shoko_nav/internal/modules/embedded_mqtt"
	httpapi "github.com/mikey-austin/shoko_nav/internal/modules/http_api"
	navnode "github.com/mikey-austin/shoko_nav/internal/modules/nav_node"
	"github.com/mikey-austin/shoko_nav/internal/navd"
	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

func main() {
	var (
		configPath  string
		broker      string
		identity    string
		topicBase   string
		logLevel    string
		logFormat   string
		logOutput   string
		logUTC      bool
		printConfig bool
		dryRun      bool
		moduleOnly  string
	)

	defaultConfig, err := navd.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&configPath, "config", defaultConfig, "config file path")
	flag.StringVar(&broker, "broker", "", "MQTT broker URL override")
	flag.StringVar(&identity, "identity", "", "server identity override")
	flag.StringVar(&topicBase, "topic-base", "", "topic base override")
	flag.StringVar(&logLevel, "log-level", "", "log level override")
	flag.StringVar(&logFormat, "log-format", "", "log format override (text|json)")
	flag.StringVar(&logOutput, "log-output", "", "log output override (stdout|stderr)")
	flag.BoolVar(&logUTC, "log-utc", false, "use UTC timestamps in logs")
	flag.StringVar(&moduleOnly, "module", "", "limit to a single module")
	flag.BoolVar(&printConfig, "print-config", false, "print resolved config and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "validate config and exit")
	flag.Parse()

	cfg, err := navd.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyOverrides(&cfg, broker, identity, topicBase, logLevel, logFormat, logOutput, logUTC)

	if printConfig {
		printResolvedConfig(cfg)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if dryRun {
		return
	}

	logger := navd.NewLogger(navd.LogConfig{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
		Output: cfg.Server.LogOutput,
		UTC:    cfg.Server.LogUTC,
	})
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embeddedURL := embeddedBrokerURL(cfg)
	skipEmbedded := false
	if moduleOnly != "embedded_mqtt" && cfg.Modules.EmbeddedMQTT.Enabled && cfg.Server.Broker == embeddedURL {
		if err := startEmbeddedBroker(ctx, cfg, logger, cancel); err != nil {
			logger.Error("embedded mqtt failed", zap.Error(err))
			os.Exit(1)
		}
		skipEmbedded = true
	}

	logger.Info("navd starting",
		zap.String("broker", cfg.Server.Broker),
		zap.String("identity", cfg.Server.Identity),
		zap.String("topic_base", cfg.Server.TopicBase),
		zap.String("catalog", cfg.Catalog.BaseURL),
		zap.Strings("modules", enabledModules(cfg)),
	)

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build services", zap.Error(err))
		os.Exit(1)
	}
	defer svc.Close()

	var client *mqttserver.Client
	if cfg.Modules.NavNode.Enabled && (moduleOnly == "" || moduleOnly == "nav_node") {
		if cfg.Server.Broker == "" {
			logger.Error("broker is required")
			os.Exit(1)
		}
		client, err = mqttserver.NewClient(mqttserver.Options{
			BrokerURL:   cfg.Server.Broker,
			ClientID:    fmt.Sprintf("navd-%d", time.Now().UnixNano()),
			Username:    cfg.Server.Auth.User,
			Password:    cfg.Server.Auth.Pass,
			TLSCA:       cfg.Server.TLS.CA,
			TLSCert:     cfg.Server.TLS.Cert,
			TLSKey:      cfg.Server.TLS.Key,
			Timeout:     2 * time.Second,
			Logger:      logger.With(zap.String("component", "mqtt")),
			Debug:       cfg.Server.LogLevel == "debug",
			WillTopic:   nav.TopicPresence(cfg.Server.TopicBase, cfg.Modules.NavNode.NodeID),
			WillPayload: navnode.OfflinePresence(cfg.Modules.NavNode.NodeID, cfg.Modules.NavNode.Name),
		})
		if err != nil {
			logger.Error("mqtt connection failed", zap.Error(err))
			os.Exit(1)
		}
		defer client.Close()
	}

	modules, err := buildModules(cfg, client, svc, logger, moduleOnly, skipEmbedded)
	if err != nil {
		logger.Error("failed to build modules", zap.Error(err))
		os.Exit(1)
	}

	if svc.Router != nil {
		if err := svc.Router.Preflight(ctx); err != nil {
			logger.Warn("catalog preflight failed", zap.Error(err))
		}
	}

	supervisor := navd.Supervisor{Logger: logger}
	if err := supervisor.Run(ctx, modules); err != nil {
		logger.Error("supervisor error", zap.Error(err))
		os.Exit(1)
	}
}

// services are the collaborators shared by the navigation modules.
type services struct {
	Router  *core.Router
	History *history.Store
}

func (s services) Close() {
	if s.History != nil {
		_ = s.History.Close()
	}
}

func buildServices(ctx context.Context, cfg navd.Config, logger *zap.Logger) (services, error) {
	if !cfg.Modules.NavNode.Enabled && !cfg.Modules.HTTPAPI.Enabled {
		return services{}, nil
	}

	catalog, err := shoko.New(shoko.Config{
		BaseURL:  cfg.Catalog.BaseURL,
		APIKey:   cfg.Catalog.APIKey,
		User:     cfg.Catalog.User,
		Password: cfg.Catalog.Password,
		Timeout:  time.Duration(cfg.Catalog.TimeoutMS) * time.Millisecond,
		RetryMax: cfg.Catalog.RetryMax,
	}, logger.With(zap.String("component", "shoko")))
	if err != nil {
		return services{}, err
	}

	settingsPath := cfg.State.SettingsPath
	if settingsPath == "" {
		if settingsPath, err = config.DefaultStorePath(); err != nil {
			return services{}, err
		}
	}
	settings, err := config.OpenStore(settingsPath, cfg.Settings)
	if err != nil {
		return services{}, err
	}

	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = filepath.Join(filepath.Dir(settingsPath), "history.db")
	}
	hist, err := history.Open(ctx, historyPath, clock.Clock{}, logger.With(zap.String("component", "history")))
	if err != nil {
		return services{}, err
	}

	deps := core.Deps{
		Catalog:  catalog,
		Settings: settings,
		Prompter: firstChoice{},
		History:  hist,
		Metrics:  metrics.NewRouterObserver(),
		Logger:   logger.With(zap.String("component", "router")),
	}
	deps.Version, _ = navd.BuildVersion()

	feedURL := cfg.Airing.URL
	if feedURL == "" {
		feedURL = settings.Get(core.SettingAiringFeedURL)
	}
	if feedURL != "" {
		deps.Airing = airing.New(airing.Config{
			URL:             feedURL,
			RefreshInterval: time.Duration(cfg.Airing.RefreshMinutes) * time.Minute,
		}, clock.Clock{}, logger.With(zap.String("component", "airing")))
	}

	if cfg.Kodi.BaseURL != "" {
		player, err := kodi.New(cfg.Kodi.BaseURL, cfg.Kodi.User, cfg.Kodi.Password,
			time.Duration(cfg.Kodi.TimeoutMS)*time.Millisecond, catalog, logger.With(zap.String("component", "kodi")))
		if err != nil {
			_ = hist.Close()
			return services{}, err
		}
		deps.Player = player
	} else {
		logger.Warn("no kodi player configured; play routes will fail")
	}

	return services{Router: core.NewRouter(deps), History: hist}, nil
}

// firstChoice answers file prompts without a user present.
type firstChoice struct{}

func (firstChoice) ChooseFile(_ context.Context, choices []ports.FileChoice) (int, bool, error) {
	if len(choices) == 0 {
		return 0, false, nil
	}
	return choices[0].ID, true, nil
}

func applyOverrides(cfg *navd.Config, broker string, identity string, topicBase string, logLevel string, logFormat string, logOutput string, logUTC bool) {
	if broker != "" {
		cfg.Server.Broker = broker
	}
	if identity != "" {
		cfg.Server.Identity = identity
	}
	if topicBase != "" {
		cfg.Server.TopicBase = topicBase
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.Server.LogFormat = logFormat
	}
	if logOutput != "" {
		cfg.Server.LogOutput = logOutput
	}
	if logUTC {
		cfg.Server.LogUTC = true
	}
	if cfg.Server.TopicBase == "" {
		cfg.Server.TopicBase = nav.BaseTopic
	}
	if cfg.Server.Broker == "" && cfg.Modules.EmbeddedMQTT.Enabled {
		cfg.Server.Broker = embeddedBrokerURL(*cfg)
	}
}

func buildModules(cfg navd.Config, client *mqttserver.Client, svc services, logger *zap.Logger, moduleOnly string, skipEmbedded bool) ([]navd.ModuleRunner, error) {
	modules := []navd.ModuleRunner{}
	if cfg.Modules.EmbeddedMQTT.Enabled && !skipEmbedded {
		if moduleOnly == "" || moduleOnly == "embedded_mqtt" {
			mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedConfig(cfg))
			if err != nil {
				return nil, err
			}
			modules = append(modules, navd.ModuleRunner{Name: "embedded_mqtt", Run: mod.Run})
		}
	}

	if cfg.Modules.NavNode.Enabled {
		if moduleOnly == "" || moduleOnly == "nav_node" {
			if svc.Router == nil || client == nil {
				return nil, errors.New("nav_node requires a catalog and broker")
			}
			mod, err := navnode.NewModule(logger.With(zap.String("module", "nav_node")), client, svc.Router, navnode.Config{
				NodeID:       cfg.Modules.NavNode.NodeID,
				Name:         cfg.Modules.NavNode.Name,
				TopicBase:    cfg.Server.TopicBase,
				RouteTimeout: time.Duration(cfg.Modules.NavNode.RouteTimeoutMS) * time.Millisecond,
			})
			if err != nil {
				return nil, err
			}
			modules = append(modules, navd.ModuleRunner{Name: "nav_node", Run: mod.Run})
		}
	}

	if cfg.Modules.HTTPAPI.Enabled {
		if moduleOnly == "" || moduleOnly == "http_api" {
			if svc.Router == nil {
				return nil, errors.New("http_api requires a catalog")
			}
			var hist ports.SearchHistory
			if svc.History != nil {
				hist = svc.History
			}
			mod, err := httpapi.NewModule(logger.With(zap.String("module", "http_api")), svc.Router, hist, httpapi.Config{
				Listen: cfg.Modules.HTTPAPI.Listen,
			})
			if err != nil {
				return nil, err
			}
			modules = append(modules, navd.ModuleRunner{Name: "http_api", Run: mod.Run})
		}
	}

	if moduleOnly != "" && len(modules) == 0 {
		return nil, errors.New("no modules enabled")
	}
	return modules, nil
}

func enabledModules(cfg navd.Config) []string {
	out := []string{}
	if cfg.Modules.EmbeddedMQTT.Enabled {
		out = append(out, "embedded_mqtt")
	}
	if cfg.Modules.NavNode.Enabled {
		out = append(out, "nav_node")
	}
	if cfg.Modules.HTTPAPI.Enabled {
		out = append(out, "http_api")
	}
	return out
}

func printResolvedConfig(cfg navd.Config) {
	fmt.Fprintf(os.Stdout,
		"broker=%s identity=%s topic_base=%s catalog=%s kodi=%s log_level=%s log_format=%s log_output=%s log_utc=%t modules=%v\n",
		cfg.Server.Broker,
		cfg.Server.Identity,
		cfg.Server.TopicBase,
		cfg.Catalog.BaseURL,
		cfg.Kodi.BaseURL,
		cfg.Server.LogLevel,
		cfg.Server.LogFormat,
		cfg.Server.LogOutput,
		cfg.Server.LogUTC,
		enabledModules(cfg),
	)
}

func embeddedConfig(cfg navd.Config) embeddedmqtt.Config {
	return embeddedmqtt.Config{
		Listen:         cfg.Modules.EmbeddedMQTT.Listen,
		TopicBase:      cfg.Server.TopicBase,
		AllowAnonymous: cfg.Modules.EmbeddedMQTT.AllowAnonymous,
		Username:       cfg.Modules.EmbeddedMQTT.Username,
		Password:       cfg.Modules.EmbeddedMQTT.Password,
		TLSCA:          cfg.Modules.EmbeddedMQTT.TLSCA,
		TLSCert:        cfg.Modules.EmbeddedMQTT.TLSCert,
		TLSKey:         cfg.Modules.EmbeddedMQTT.TLSKey,
	}
}

func embeddedListen(cfg navd.Config) string {
	if cfg.Modules.EmbeddedMQTT.Listen == "" {
		return "127.0.0.1:1883"
	}
	return cfg.Modules.EmbeddedMQTT.Listen
}

func embeddedBrokerURL(cfg navd.Config) string {
	e := cfg.Modules.EmbeddedMQTT
	tlsEnabled := e.TLSCert != "" || e.TLSKey != "" || e.TLSCA != ""
	return embeddedmqtt.BrokerURL(embeddedListen(cfg), tlsEnabled)
}

func startEmbeddedBroker(ctx context.Context, cfg navd.Config, logger *zap.Logger, cancel context.CancelFunc) error {
	mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedConfig(cfg))
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- mod.Run(ctx)
	}()
	go func() {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("embedded mqtt exited", zap.Error(err))
			cancel()
		}
	}()
	return waitForListen(embeddedListen(cfg), 3*time.Second)
}

func waitForListen(listen string, timeout time.Duration) error {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("embedded mqtt not ready at %s", addr)
}
