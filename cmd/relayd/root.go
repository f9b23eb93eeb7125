package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "relayd",
		Short: "Rate-limited relay for upstream JSON APIs",
		Long: `relayd exposes upstream JSON endpoints behind per-route throttles.

Skippable routes answer early callers from the last fetched body.
Non-skippable routes make each caller wait for its turn.

Configuration is read from --config (YAML) and RELAYD_* environment
variables, e.g. RELAYD_LOG_LEVEL=debug or RELAYD_SERVER_HOST=:9000.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	load := func() (config, error) {
		return loadConfig(v, cfgFile)
	}

	root.AddCommand(
		newServeCmd(load),
		newCheckCmd(load),
		newVersionCmd(),
	)

	return root
}
