package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newSweepCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder backfill and cleanup pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			gdb, err := c.openDB(ctx)
			if err != nil {
				return err
			}
			defer closeDB(gdb)

			a := c.wire(gdb, nil)

			n, err := a.sweeper.Backfill(ctx)
			if err != nil {
				return err
			}
			deleted, err := a.sweeper.Cleanup(ctx)
			if err != nil {
				return err
			}
			c.log.Info("sweep finished",
				slog.Int("backfilled", n),
				slog.Int64("deleted", deleted))
			return nil
		},
	}
}
