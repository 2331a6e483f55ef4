package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/shoko_nav/internal/adapters/output"
	"github.com/mikey-austin/shoko_nav/internal/core"
)

func settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			store, err := app.settingsStore()
			if err != nil {
				return err
			}
			return app.printer.Print(output.SettingsResult{Values: store.All()})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			store, err := app.settingsStore()
			if err != nil {
				return err
			}
			key := strings.TrimSpace(args[0])
			if _, ok := store.All()[key]; !ok {
				return &core.Error{Kind: core.KindNotFound, Msg: "unknown setting " + key}
			}
			return app.printer.Print([]string{store.Get(key)})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			store, err := app.settingsStore()
			if err != nil {
				return err
			}
			key := strings.TrimSpace(args[0])
			if _, ok := core.DefaultSettings()[key]; !ok {
				return &core.Error{Kind: core.KindParam, Msg: "unknown setting " + key}
			}
			return store.Set(key, args[1])
		},
	})
	return cmd
}

func settingInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
