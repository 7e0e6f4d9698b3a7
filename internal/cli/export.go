package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/export"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage/postgres"
)

var exportFlags struct {
	wallet    string
	asset     string
	format    string
	outputDir string
	since     time.Duration
	limit     int
}

var exportCmd = &cobra.Command{
	Use:       "export {trades|claims}",
	Short:     "Export a wallet's settlement history to CSV or JSON",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"trades", "claims"},
	RunE:      runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.wallet, "wallet", "", "wallet address (required)")
	f.StringVar(&exportFlags.asset, "asset", "", "only this asset")
	f.StringVar(&exportFlags.format, "format", string(export.FormatCSV), "csv or json")
	f.StringVar(&exportFlags.outputDir, "out", "exports", "output directory")
	f.DurationVar(&exportFlags.since, "since", 0, "only settlements newer than this, e.g. 720h")
	f.IntVar(&exportFlags.limit, "limit", storage.DefaultListLimit*10, "maximum records read")
	_ = exportCmd.MarkFlagRequired("wallet")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFlags.format)
	if err != nil {
		return err
	}
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if cfg.UseMemory {
		return fmt.Errorf("export reads from postgres; use_memory is set")
	}
	defer log.TrackPerformance("export_" + args[0])()

	pool, err := openPostgres(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := postgres.NewSettlementStore(pool)

	opts := export.ExportOptions{
		Format:    format,
		Asset:     exportFlags.asset,
		OutputDir: exportFlags.outputDir,
	}
	if exportFlags.since > 0 {
		opts.StartTime = time.Now().Add(-exportFlags.since)
	}
	limit := storage.NormalizeLimit(exportFlags.limit)
	exporter := export.NewSettlementExporter(log.Logger)

	var path string
	switch args[0] {
	case "trades":
		var trades []domain.TradeSettlement
		if trades, err = store.ListTrades(cmd.Context(), exportFlags.wallet, limit); err != nil {
			return err
		}
		path, err = exporter.ExportTrades(trades, opts)
	case "claims":
		var claims []domain.ClaimSettlement
		if claims, err = store.ListClaims(cmd.Context(), exportFlags.wallet, exportFlags.asset, limit); err != nil {
			return err
		}
		path, err = exporter.ExportClaims(claims, opts)
	}
	if err != nil {
		return err
	}

	log.Info("Export written", zap.String("file", path))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
