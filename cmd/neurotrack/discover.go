package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neurotrack/neurotrack/discovery"
)

func newDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the monitors advertised on the local network.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			monitors, err := discovery.Browse(ctx)
			if err != nil {
				return err
			}

			if len(monitors) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no monitors found")
				return nil
			}

			for _, m := range monitors {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tversion %s\n",
					m.Instance, m.URL(), m.Version)
			}

			return nil
		},
	}

	cmd.Flags().Duration("timeout", 3*time.Second, "how long to listen")

	return cmd
}
