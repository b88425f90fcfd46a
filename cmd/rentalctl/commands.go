package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/database"
	"fleetrent-backend/internal/db"
	"fleetrent-backend/internal/payments"
	"fleetrent-backend/internal/repositories"
	"fleetrent-backend/internal/services"
	"fleetrent-backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// withPool loads config, connects and hands the pool to fn
func withPool(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg := config.Load()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func migrateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				m := database.NewMigratorWithFS(pool, migrations.FS, ".")
				if !dryRun {
					return m.RunMigrations(ctx)
				}
				pending, err := m.Pending(nil)
				if err != nil {
					return err
				}
				for _, name := range pending {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list migration files without applying them")
	return cmd
}

func retryInstallmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-installments",
		Short: "Charge every due installment once and mark exhausted ones overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				tenants := repositories.NewTenantRepository(pool)
				ledger := services.NewLedgerService(
					repositories.NewLedgerRepository(pool), repositories.NewPaymentRepository(pool), tenants)
				svc := services.NewInstallmentService(
					repositories.NewInstallmentRepository(pool),
					repositories.NewRentalRepository(pool),
					ledger,
					payments.NewRazorpayProcessor(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Currency),
					tenants,
					repositories.NewAdminActionLogRepository(pool),
				)

				ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
				defer cancel()
				res, err := svc.RunDueCharges(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d paid=%d failed=%d overdue=%d\n",
					res.Attempted, res.Paid, res.Failed, res.MarkedOverdue)
				return nil
			})
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <tenant-id> <customer-id>",
		Short: "Print a customer's ledger balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				tenants := repositories.NewTenantRepository(pool)
				ledger := services.NewLedgerService(
					repositories.NewLedgerRepository(pool), repositories.NewPaymentRepository(pool), tenants)

				balance, err := ledger.ComputeBalanceWithStatus(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(balance)
			})
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete 2FA verification attempts older than 24 hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				repo := repositories.NewTOTPRepository(pool)
				n, err := services.NewTOTPService(repositories.NewUserRepository(pool), repo).PurgeAttempts(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d 2FA attempt(s)\n", n)
				return nil
			})
		},
	}
}
