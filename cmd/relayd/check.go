package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/pacer/relay"
)

func newCheckCmd(load func() (config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and list the routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			tel, err := newTelemetry(metricsConfig{})
			if err != nil {
				return err
			}

			_, r, err := newApp(cfg, slog.New(slog.DiscardHandler), tel)
			if err != nil {
				return err
			}

			return printRoutes(cmd.OutOrStdout(), r.Routes())
		},
	}
}

func printRoutes(out io.Writer, routes []relay.RouteInfo) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tPATH\tPERIOD\tSKIPPABLE\tUPSTREAM")
	for _, rt := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", rt.Name, rt.Path, rt.Period, rt.Skippable, rt.Upstream)
	}

	return tw.Flush()
}
