package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/storage/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema migrations and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if cfg.UseMemory {
		return errors.New("migrate requires postgres_url; use_memory is set")
	}

	files, err := migrations.Files()
	if err != nil {
		return err
	}
	log.Info("Applying migrations", zap.Int("files", len(files)))
	defer log.TrackPerformance("migrate")()

	pool, err := openPostgres(cmd.Context(), cfg, log.Logger)
	if err != nil {
		log.Error("Migration failed", zap.Error(err))
		return err
	}
	pool.Close()

	log.Info("Schema is up to date")
	return nil
}
