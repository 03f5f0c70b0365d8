package main

import (
	"sme-escrow/internal/config"
	"sme-escrow/internal/infrastructure/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|status|version|redo|reset] [args...]",
		Short: "Apply the embedded database migrations",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) > 0 {
				command, args = args[0], args[1:]
			}
			cfg := config.Load()
			gdb, err := db.OpenGorm(cfg.MySQLDSN(), nil)
			if err != nil {
				return err
			}
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return db.Migrate(cmd.Context(), sqlDB, command, args...)
		},
	}
}
