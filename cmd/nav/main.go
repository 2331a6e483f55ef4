package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/adapters/airing"
	"github.com/mikey-austin/shoko_nav/internal/adapters/clock"
	"github.com/mikey-austin/shoko_nav/internal/adapters/config"
	"github.com/mikey-austin/shoko_nav/internal/adapters/history"
	"github.com/mikey-austin/shoko_nav/internal/adapters/idgen"
	"github.com/mikey-austin/shoko_nav/internal/adapters/kodi"
	"github.com/mikey-austin/shoko_nav/internal/adapters/mqtt"
	"github.com/mikey-austin/shoko_nav/internal/adapters/output"
	"github.com/mikey-austin/shoko_nav/internal/adapters/shoko"
	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/internal/navd"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// installedVersion is compared with the stored version on the root menu.
var installedVersion = func() string {
	v, _ := navd.BuildVersion()
	return v
}

type app struct {
	cfg         config.Config
	printer     output.Printer
	out         io.Writer
	errOut      io.Writer
	logger      *zap.Logger
	timeout     time.Duration
	node        string
	remote      bool
	interactive bool
	broker      string
	topicBase   string
	identity    string

	router   *core.Router
	terminal *output.Terminal
	settings *config.Store
	history  *history.Store
	client   *mqtt.Client
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(core.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "nav",
		Short:         "Shoko library navigator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var (
		broker    string
		topicBase string
		identity  string
		node      string
		timeout   time.Duration
		jsonOut   bool
		remote    bool
		verbose   bool
		pick      bool
	)

	root.PersistentFlags().StringVarP(&broker, "broker", "b", "", "MQTT broker URL")
	root.PersistentFlags().StringVar(&topicBase, "topic-base", nav.BaseTopic, "MQTT topic base")
	root.PersistentFlags().StringVarP(&identity, "identity", "i", "", "controller identity")
	root.PersistentFlags().StringVarP(&node, "node", "n", "", "navigation node selector (implies --remote)")
	root.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "command timeout")
	root.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output json")
	root.PersistentFlags().BoolVarP(&remote, "remote", "r", false, "route through a navigation node")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVar(&pick, "pick", false, "prompt when an episode has several files")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if broker == "" {
			broker = cfg.Broker
		}
		if topicBase == nav.BaseTopic && cfg.TopicBase != "" {
			topicBase = cfg.TopicBase
		}

		a := &app{
			cfg:         cfg,
			out:         cmd.OutOrStdout(),
			errOut:      cmd.ErrOrStderr(),
			logger:      zap.NewNop(),
			timeout:     timeout,
			node:        node,
			remote:      remote || node != "",
			interactive: pick,
			broker:      broker,
			topicBase:   topicBase,
			identity:    defaultIdentity(identity, cfg.Identity),
		}
		if verbose {
			a.logger = navd.NewLogger(navd.LogConfig{Level: "debug", Output: "stderr"})
		}
		if jsonOut {
			a.printer = output.JSONPrinter{Out: a.out}
		} else {
			a.printer = output.HumanPrinter{Out: a.out}
		}
		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if a := fromContext(cmd); a != nil {
			a.close()
		}
	}

	root.AddCommand(routeCommand())
	root.AddCommand(playCommand())
	root.AddCommand(searchCommand())
	root.AddCommand(airingCommand())
	root.AddCommand(preflightCommand())
	root.AddCommand(nodesCommand())
	root.AddCommand(historyCommand())
	root.AddCommand(settingsCommand())
	return root
}

type appKey struct{}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func defaultIdentity(flagVal string, cfgVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if cfgVal != "" {
		return cfgVal
	}
	usr, _ := user.Current()
	host, _ := os.Hostname()
	if usr != nil && host != "" {
		return fmt.Sprintf("%s@%s", usr.Username, host)
	}
	if host != "" {
		return host
	}
	return "nav-unknown"
}

func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	if a.client != nil {
		a.client.Close()
	}
	_ = a.logger.Sync()
}

// useRemote reports whether commands go through a navigation node.
func (a *app) useRemote() bool {
	return a.remote || a.cfg.Server.URL == ""
}

func (a *app) settingsStore() (*config.Store, error) {
	if a.settings != nil {
		return a.settings, nil
	}
	path, err := config.DefaultStorePath()
	if err != nil {
		return nil, err
	}
	store, err := config.OpenStore(path, a.cfg.Settings)
	if err != nil {
		return nil, err
	}
	a.settings = store
	return store, nil
}

func (a *app) historyStore(ctx context.Context) (*history.Store, error) {
	if a.history != nil {
		return a.history, nil
	}
	path := a.cfg.History.Path
	if path == "" {
		dir, err := config.StateDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "history.db")
	}
	store, err := history.Open(ctx, path, clock.Clock{}, a.logger)
	if err != nil {
		return nil, err
	}
	a.history = store
	return store, nil
}

// localRouter builds a router talking to the catalog server directly.
func (a *app) localRouter(ctx context.Context) (*core.Router, error) {
	if a.router != nil {
		return a.router, nil
	}
	var timeout time.Duration
	if a.cfg.Server.Timeout != "" {
		d, err := time.ParseDuration(a.cfg.Server.Timeout)
		if err != nil {
			return nil, &core.Error{Kind: core.KindParam, Msg: "invalid server timeout", Err: err}
		}
		timeout = d
	}
	catalog, err := shoko.New(shoko.Config{
		BaseURL:  a.cfg.Server.URL,
		APIKey:   a.cfg.Server.APIKey,
		User:     a.cfg.Server.User,
		Password: a.cfg.Server.Password,
		Timeout:  timeout,
		RetryMax: a.cfg.Server.RetryMax,
	}, a.logger)
	if err != nil {
		return nil, &core.Error{Kind: core.KindParam, Msg: "catalog server", Err: err}
	}
	settings, err := a.settingsStore()
	if err != nil {
		return nil, err
	}
	hist, err := a.historyStore(ctx)
	if err != nil {
		return nil, err
	}

	terminal := output.NewTerminal(a.printer, a.interactive)
	terminal.Err = a.errOut
	deps := core.Deps{
		Catalog:  catalog,
		Settings: settings,
		Renderer: terminal,
		Host:     terminal,
		Prompter: terminal,
		History:  hist,
		Logger:   a.logger,
	}
	deps.Version = installedVersion()

	if a.cfg.Kodi.URL != "" {
		player, err := kodi.New(a.cfg.Kodi.URL, a.cfg.Kodi.User, a.cfg.Kodi.Password, 0, catalog, a.logger)
		if err != nil {
			return nil, &core.Error{Kind: core.KindParam, Msg: "kodi", Err: err}
		}
		deps.Player = player
		terminal.Notifier = player
	} else {
		deps.Player = streamPlayer{source: catalog, out: a.out}
	}
	if feedURL := settings.Get(core.SettingAiringFeedURL); feedURL != "" {
		deps.Airing = airing.New(airing.Config{URL: feedURL}, clock.Clock{}, a.logger)
	}

	a.terminal = terminal
	a.router = core.NewRouter(deps)
	return a.router, nil
}

func (a *app) remoteService() (core.Remote, error) {
	if a.broker == "" {
		return core.Remote{}, &core.Error{Kind: core.KindParam, Msg: "broker is required (set --broker or config)"}
	}
	if a.client == nil {
		client, err := mqtt.NewClient(mqtt.Options{
			BrokerURL: a.broker,
			ClientID:  fmt.Sprintf("nav-%d", time.Now().UnixNano()),
			TopicBase: a.topicBase,
			Timeout:   a.timeout,
		})
		if err != nil {
			return core.Remote{}, core.WrapError(core.KindConnection, "connect broker", err)
		}
		a.client = client
	}
	coreCfg := core.Config{
		Broker:    a.broker,
		Identity:  a.identity,
		TopicBase: a.topicBase,
		Aliases:   a.cfg.Aliases,
		Defaults:  core.Defaults{Node: a.cfg.Defaults.Node},
	}
	return core.Remote{
		Broker:   a.client,
		Resolver: core.Resolver{Presence: a.client, Config: coreCfg},
		Clock:    clock.Clock{},
		IDGen:    idgen.Generator{},
		Config:   coreCfg,
	}, nil
}

// route runs path locally or on a node and prints what was not already
// rendered.
func (a *app) route(ctx context.Context, path string) error {
	if a.useRemote() {
		remote, err := a.remoteService()
		if err != nil {
			return err
		}
		result, err := remote.Route(ctx, a.node, path)
		if err != nil {
			return err
		}
		return a.printer.Print(result)
	}

	router, err := a.localRouter(ctx)
	if err != nil {
		return err
	}
	out, routeErr := router.Route(ctx, path)
	if out.Restart && routeErr == nil {
		// The new version is stored by now, so this visit renders.
		path = nav.RootPath()
		out, routeErr = router.Route(ctx, path)
	}
	if out.Rendered {
		return routeErr
	}
	result := core.OutcomeResult(path, out)
	// Messages were already delivered to the terminal.
	result.Reply.Messages = nil
	if result.Reply.Played != nil || result.Reply.Restart || a.isJSON() {
		if err := a.printer.Print(result); err != nil && routeErr == nil {
			return err
		}
	}
	return routeErr
}

func (a *app) isJSON() bool {
	_, ok := a.printer.(output.JSONPrinter)
	return ok
}
