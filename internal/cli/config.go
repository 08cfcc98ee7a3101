package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/lognorm/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.printer.Structured() {
				return a.printer.Value(a.cfg, nil)
			}
			table := a.printer.NewTable("KEY", "VALUE")
			for _, key := range config.Keys() {
				value, _ := a.cfg.Get(key)
				table.AddRow(key, value)
			}
			table.Render()
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.printer.Out(), value)
			return nil
		},
	}

	set := &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change a configuration value and save it",
		Example: "  lognorm config set nats.enabled true\n  lognorm config set history.backend redis",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := a.cfg.Save(); err != nil {
				return err
			}
			a.printer.Success("Set %s = %s", args[0], args[1])
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.printer.Out(), a.cfg.Path())
			return nil
		},
	}

	cmd.AddCommand(show, get, set, path)
	return cmd
}
