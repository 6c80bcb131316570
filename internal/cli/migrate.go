package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/fin-advisor/internal/db"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	})
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", cfg.DBDriver)
	return err
}
