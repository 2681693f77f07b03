package main

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/bitfantasy/procurement/internal/procurement/seed"
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo vendors, orders and payments",
	Long: `Load demo data through the regular services:

  - 3 vendors (payment terms 30, 15 and 45 days)
  - 3 purchase orders, all approved
  - 3 payments: partial, full and partial

Refuses to run when vendors already exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		services := service.NewServices(a.db, repository.NewRepositories(a.db), nil, 0, nil, a.logger)
		sum, err := seed.Run(cmd.Context(), services, a.logger)
		if errors.Is(err, seed.ErrAlreadySeeded) {
			a.logger.Warn("Seed skipped", zap.Error(err))
			return nil
		}
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		a.logger.Info("Seeding completed",
			zap.Int("vendors", len(sum.Vendors)),
			zap.Int("purchase_orders", len(sum.Orders)),
			zap.Int("payments", len(sum.Payments)),
		)
		return nil
	},
}
