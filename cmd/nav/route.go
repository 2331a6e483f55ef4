package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

func routeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "route [path]",
		Aliases: []string{"ls"},
		Short:   "Open a navigation path",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			path := nav.RootPath()
			if len(args) == 1 {
				path = args[0]
			}
			return app.route(ctx, path)
		},
	}
}

func playCommand() *cobra.Command {
	var resume bool
	var noMark bool

	cmd := &cobra.Command{
		Use:   "play <episode> [file]",
		Short: "Play an episode",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			path, err := playPath(args, resume, noMark)
			if err != nil {
				return err
			}
			return app.route(ctx, path)
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the stored offset")
	cmd.Flags().BoolVar(&noMark, "no-mark", false, "do not mark the episode watched")
	return cmd
}

func playPath(args []string, resume bool, noMark bool) (string, error) {
	ids := make([]int, 2)
	for idx, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return "", &core.Error{Kind: core.KindParam, Msg: "ids must be non-negative integers: " + arg}
		}
		ids[idx] = n
	}
	switch {
	case resume && noMark:
		return "", &core.Error{Kind: core.KindParam, Msg: "--resume always marks watched"}
	case resume:
		return nav.ResumePath(ids[0], ids[1]), nil
	case noMark:
		return nav.PlayWithoutMarkingPath(ids[0], ids[1]), nil
	default:
		return nav.PlayPath(ids[0], ids[1]), nil
	}
}

func searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog, or list recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return app.route(ctx, nav.SearchPath())
			}
			return app.route(ctx, nav.SearchResultPath(query))
		},
	}
}

func airingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "airing",
		Short: "List shows airing today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()
			return app.route(ctx, nav.AiringTodayPath())
		},
	}
}

func preflightCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check the catalog server and login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			if app.useRemote() {
				remote, err := app.remoteService()
				if err != nil {
					return err
				}
				if err := remote.Preflight(ctx, app.node); err != nil {
					return err
				}
			} else {
				router, err := app.localRouter(ctx)
				if err != nil {
					return err
				}
				if err := router.Preflight(ctx); err != nil {
					return err
				}
			}
			return app.printer.Print([]string{"ok"})
		},
	}
}

func nodesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List navigation nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			remote, err := app.remoteService()
			if err != nil {
				return err
			}
			result, err := remote.ListNodes(ctx)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
}
