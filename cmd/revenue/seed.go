package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenue/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedCmd() *cobra.Command {
	var (
		year   int
		nodeID int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo accounts and bills for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := snowflake.NewNode(nodeID)
			if err != nil {
				return err
			}
			return withDatabase(cmd.Context(), func(conn *gorm.DB, log *zap.Logger) error {
				now := conn.NowFunc()
				if year == 0 {
					year = now.Year()
				}
				summary, err := seed.EnsureDemoData(cmd.Context(), conn, node, year, now)
				if err != nil {
					return err
				}
				log.Info("demo data seeded",
					zap.Int("year", year),
					zap.Int("accounts_created", summary.AccountsCreated),
					zap.Int("bills_created", summary.BillsCreated),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "accounts created: %d, bills created: %d\n", summary.AccountsCreated, summary.BillsCreated)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "billing year for the seeded bills (defaults to the current year)")
	cmd.Flags().Int64Var(&nodeID, "node", 1023, "snowflake node id used for seeded rows")
	return cmd
}
