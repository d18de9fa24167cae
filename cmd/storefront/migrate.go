package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/db"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema (or roll back with --down)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Storage.DSN == "" {
				return errors.New("migrate needs storage.dsn (CART_DB_DSN)")
			}
			if down > 0 {
				return db.RollbackMigrations(cfg.Storage.DSN, down, logger)
			}
			return db.RunMigrations(cfg.Storage.DSN, logger)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")
	return cmd
}
