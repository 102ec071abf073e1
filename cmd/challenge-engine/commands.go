package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/streakforge/challenge-engine/pkg/config"
	"github.com/streakforge/challenge-engine/pkg/db"
	"github.com/streakforge/challenge-engine/pkg/repository"
	"github.com/streakforge/challenge-engine/pkg/service"
)

func newMigrateCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the engine's PostgreSQL tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(*debug)

			conn, err := db.Connect(db.NewConfigFromEnv())
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			logger.Info("Migrations applied")
			return nil
		},
	}
}

func newImportCatalogCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog <challenges.json|challenges.yaml>",
		Short: "Create the challenges of a catalog file that do not exist yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*debug)

			conn, err := db.Connect(db.NewConfigFromEnv())
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			svc := service.New(repository.NewPostgresStore(conn), nil, logger, nil)
			return importCatalog(cmd.Context(), svc, args[0], logger)
		},
	}
}

func importCatalog(ctx context.Context, svc *service.ChallengeService, path string, logger *slog.Logger) error {
	cfg, err := config.NewConfigLoader(path, logger).LoadConfig()
	if err != nil {
		return err
	}

	if _, _, err := svc.ImportChallenges(ctx, cfg.Challenges); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return nil
}
