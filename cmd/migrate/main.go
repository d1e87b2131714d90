package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/pkg/config"
	"github.com/noah-isme/quizhub-api/pkg/database"
	"github.com/noah-isme/quizhub-api/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the QuizHub enrollment schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newGooseCommand(database.CommandUp, "Apply every pending migration"),
		newGooseCommand(database.CommandDown, "Roll back the most recent migration"),
		newGooseCommand(database.CommandStatus, "Print the state of each migration"),
		newGooseCommand(database.CommandReset, "Roll back every migration"),
	)
	return cmd
}

func newGooseCommand(command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return run(ctx, command)
		},
	}
}

func run(ctx context.Context, command string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	logr.Info("running migrations", zap.String("command", command), zap.String("database", cfg.Database.Name))
	if err := database.Run(ctx, db.DB, command); err != nil {
		return err
	}
	logr.Info("migrations finished", zap.String("command", command))
	return nil
}
