package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenue/internal/clock"
	"github.com/smallbiznis/revenue/internal/config"
	"github.com/smallbiznis/revenue/internal/migration"
	"github.com/smallbiznis/revenue/internal/observability"
	"github.com/smallbiznis/revenue/internal/server"
	"github.com/smallbiznis/revenue/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the payment HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				observability.Module,
				fx.Provide(RegisterSnowflake),
				db.Module,
				clock.Module,
				migration.Module,
				server.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
