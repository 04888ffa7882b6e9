// mospayctl is the operations companion to the gateway: it owns schema
// migrations, catalog seeding and binding registration, so the gateway
// process never needs DDL or admin write access.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretechltd/mospay/internal/config"
	"github.com/aretechltd/mospay/internal/infrastructure/persistence"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mospayctl",
		Short:         "MosPay operations: migrate the schema, seed the catalog, register bindings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(registerBindingCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// connect loads the MOSPAY_ configuration and opens the database the same
// way the gateway does.
func connect(ctx context.Context) (*persistence.DB, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := cfg.Logger.NewLogger()

	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}
