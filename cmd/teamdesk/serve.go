package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpx "teamdesk/internal/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the reminder workers and the sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	gdb, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB(gdb)

	rdb, err := c.openRedis(ctx)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	a := c.wire(gdb, rdb)

	srv := &http.Server{
		Addr: c.cfg.HTTPAddr,
		Handler: httpx.NewRouter(c.cfg, httpx.Deps{
			DB:        gdb,
			JWT:       a.jwt,
			Entities:  a.entities,
			Reminders: a.reminders,
			Logger:    c.log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.log.Info("listening", slog.String("addr", c.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return a.pool.Run(ctx) })
	g.Go(func() error { return a.sweeper.Run(ctx) })

	err = g.Wait()
	c.log.Info("shutdown complete")
	return err
}
