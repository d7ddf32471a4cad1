package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/messaging-gateway/internal/config"
	"github.com/jmehdipour/messaging-gateway/internal/db"
	"github.com/jmehdipour/messaging-gateway/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables in the primary store (and ClickHouse when configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		sqlDB, err := openPrimary(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		dir := db.DriverPostgres
		if db.IsMySQL(sqlDB) {
			dir = db.DriverMySQL
		}
		if err := applyMigrations(ctx, sqlDB, dir); err != nil {
			return err
		}
		fmt.Printf(">> %s migration complete\n", dir)

		chDB, err := openClickHouse(cfg)
		if err != nil {
			return err
		}
		if chDB == nil {
			return nil
		}
		defer chDB.Close()

		if err := applyMigrations(ctx, chDB, "clickhouse"); err != nil {
			return err
		}
		fmt.Println(">> clickhouse migration complete")
		return nil
	},
}

func applyMigrations(ctx context.Context, dbx *sqlx.DB, dir string) error {
	stmts, err := migrations.Statements(dir)
	if err != nil {
		return fmt.Errorf("load %s migrations: %w", dir, err)
	}
	for i, stmt := range stmts {
		if _, err := dbx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %s migration statement %d: %w", dir, i+1, err)
		}
	}
	return nil
}
