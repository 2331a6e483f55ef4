package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/shoko_nav/internal/core"
)

func historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			store, err := app.historyStore(ctx)
			if err != nil {
				return err
			}
			if limit <= 0 {
				settings, err := app.settingsStore()
				if err != nil {
					return err
				}
				limit = settingInt(settings.Get(core.SettingHistorySize), 20)
			}
			terms, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			return app.printer.Print(core.HistoryResult{Terms: terms})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of entries (default history_size setting)")

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <query>",
		Short: "Remove a search term",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			store, err := app.historyStore(ctx)
			if err != nil {
				return err
			}
			return store.Remove(ctx, strings.Join(args, " "))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear all search terms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			store, err := app.historyStore(ctx)
			if err != nil {
				return err
			}
			return store.Clear(ctx)
		},
	})
	return cmd
}
