package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/revenue/internal/config"
	"github.com/smallbiznis/revenue/internal/migration"
	"github.com/smallbiznis/revenue/internal/observability"
	"github.com/smallbiznis/revenue/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(conn *gorm.DB, log *zap.Logger) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := migration.RunMigrations(sqlDB); err != nil {
					return err
				}
				log.Info("migrations applied")
				return nil
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive, got %d", steps)
			}
			return withDatabase(cmd.Context(), func(conn *gorm.DB, log *zap.Logger) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := migration.Rollback(sqlDB, steps); err != nil {
					return err
				}
				log.Info("migrations rolled back", zap.Int("steps", steps))
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the embedded migration files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := migration.Files()
			if err != nil {
				return err
			}
			for _, name := range files {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	return cmd
}

// withDatabase boots only the config, logging and database modules, runs fn
// once the connection is verified, then shuts everything down.
func withDatabase(ctx context.Context, fn func(conn *gorm.DB, log *zap.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		conn *gorm.DB
		log  *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		db.Module,
		fx.Populate(&conn, &log),
	)

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(conn, log)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
