package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"teamdesk/internal/config"
	"teamdesk/internal/db"
	"teamdesk/internal/logger"
)

const serviceName = "teamdesk"

// cli carries what every subcommand needs once the root pre-run has loaded it.
type cli struct {
	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "teamdesk",
		Short:         "Task and project service with deadline reminders.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = cfg
			c.log = logger.New(cfg.AppEnv, serviceName)
			slog.SetDefault(c.log)
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newSweepCmd(c),
	)
	return root
}

// openDB connects and brings the schema up to date: goose migrations on
// postgres, gorm AutoMigrate on sqlite.
func (c *cli) openDB(ctx context.Context) (*gorm.DB, error) {
	gdb, err := db.Connect(c.cfg.DatabaseDriver, c.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if c.cfg.DatabaseDriver == db.DriverSQLite {
		err = db.AutoMigrate(gdb)
	} else {
		err = db.Migrate(ctx, c.cfg.DatabaseURL, c.log)
	}
	if err != nil {
		closeDB(gdb)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return gdb, nil
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
