// Command consolectl runs maintenance tasks against the console database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adrianoneco/app-chatapp/internal/config"
	"github.com/adrianoneco/app-chatapp/internal/database"
	"github.com/adrianoneco/app-chatapp/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

type env struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

// connect loads configuration and opens the pool. Callers close the pool.
func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return nil, err
	}
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &env{cfg: cfg, pool: pool}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "consolectl",
		Short:         "Maintenance commands for the chat console backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newSetPasswordCmd(), newCleanDataCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
