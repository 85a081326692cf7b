package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"eboto/config"
	"eboto/pkg/database"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "eBoto database CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  withDB(runUp),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE:  withDB(runDown),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE:  withDB(runStatus),
		},
		newSeedDevCmd(),
	)
	return root
}

type dbCommand func(ctx context.Context, cfg *config.Config, db *sql.DB, args []string) error

func withDB(fn dbCommand) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return err
		}
		defer database.Close()
		return fn(cmd.Context(), cfg, db, args)
	}
}

func runUp(ctx context.Context, _ *config.Config, db *sql.DB, _ []string) error {
	log.Println("🚀 Running migrations UP...")
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Println("✅ Migrations completed successfully!")
	return nil
}

func runDown(ctx context.Context, _ *config.Config, db *sql.DB, _ []string) error {
	log.Println("⬇️  Rolling back one migration...")
	provider, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	res, err := provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	log.Printf("✅ Rolled back %s", res.Source.Path)
	return nil
}

func runStatus(ctx context.Context, _ *config.Config, db *sql.DB, _ []string) error {
	provider, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		applied := "pending"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		log.Printf("%-40s %-10s %s", s.Source.Path, s.State, applied)
	}
	if err := database.HealthCheck(); err != nil {
		log.Printf("⚠️  Health check warning: %v", err)
	} else {
		log.Println("✅ Health check: PASSED")
	}
	return nil
}
