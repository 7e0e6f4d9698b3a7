// Package export writes settlement history to CSV or JSON files for off-line
// bookkeeping.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat converts a flag value into an ExportFormat.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// ErrNothingToExport is returned when no record matches the options.
var ErrNothingToExport = errors.New("no settlements match the export criteria")

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format    ExportFormat
	StartTime time.Time
	EndTime   time.Time
	Asset     string           // filter by asset
	Direction domain.Direction // trades only
	FeeType   domain.FeeType   // claims only
	OutputDir string
}

// SettlementExporter handles settlement export functionality
type SettlementExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewSettlementExporter(logger *zap.Logger) *SettlementExporter {
	return &SettlementExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

func (o ExportOptions) inWindow(t time.Time) bool {
	if !o.StartTime.IsZero() && t.Before(o.StartTime) {
		return false
	}
	if !o.EndTime.IsZero() && t.After(o.EndTime) {
		return false
	}
	return true
}

// ExportTrades writes the matching trade settlements, oldest first, and returns
// the file path.
func (e *SettlementExporter) ExportTrades(trades []domain.TradeSettlement, opts ExportOptions) (string, error) {
	var filtered []domain.TradeSettlement
	for _, t := range trades {
		if !opts.inWindow(t.CreatedAt) {
			continue
		}
		if opts.Asset != "" && t.Asset != opts.Asset {
			continue
		}
		if opts.Direction != "" && t.Direction != opts.Direction {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	rows := make([][]string, 0, len(filtered))
	for _, t := range filtered {
		rows = append(rows, []string{
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.Wallet,
			t.Asset,
			string(t.Direction),
			domain.LamportsToSOL(t.SettledLamports).String(),
			strconv.FormatUint(t.SettledLamports, 10),
			t.Signature,
		})
	}
	doc := struct {
		ExportTime time.Time                `json:"export_time"`
		Summary    TradeSummary             `json:"summary"`
		Trades     []domain.TradeSettlement `json:"trades"`
	}{e.now(), summarizeTrades(filtered), filtered}

	return e.write("trades", opts, tradeHeaders, rows, doc, len(filtered))
}

// ExportClaims writes the matching claim settlements, oldest first, and returns
// the file path.
func (e *SettlementExporter) ExportClaims(claims []domain.ClaimSettlement, opts ExportOptions) (string, error) {
	var filtered []domain.ClaimSettlement
	for _, c := range claims {
		if !opts.inWindow(c.CreatedAt) {
			continue
		}
		if opts.Asset != "" && c.Asset != opts.Asset {
			continue
		}
		if opts.FeeType != "" && c.FeeType != opts.FeeType {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	rows := make([][]string, 0, len(filtered))
	for _, c := range filtered {
		rows = append(rows, []string{
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.Wallet,
			c.Asset,
			string(c.FeeType),
			domain.LamportsToSOL(c.AmountLamports).String(),
			strconv.FormatUint(c.AmountLamports, 10),
			c.Signature,
		})
	}
	doc := struct {
		ExportTime time.Time                `json:"export_time"`
		Summary    ClaimSummary             `json:"summary"`
		Claims     []domain.ClaimSettlement `json:"claims"`
	}{e.now(), summarizeClaims(filtered), filtered}

	return e.write("claims", opts, claimHeaders, rows, doc, len(filtered))
}

var (
	tradeHeaders = []string{"time", "wallet", "asset", "direction", "amount_sol", "amount_lamports", "signature"}
	claimHeaders = []string{"time", "wallet", "asset", "fee_type", "amount_sol", "amount_lamports", "signature"}
)

func (e *SettlementExporter) write(prefix string, opts ExportOptions, headers []string, rows [][]string, doc interface{}, count int) (string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := prefix
	if opts.Asset != "" && len(opts.Asset) >= 8 {
		name += "_" + opts.Asset[:8]
	}
	outputPath := filepath.Join(opts.OutputDir,
		fmt.Sprintf("%s_%s.%s", name, e.now().UTC().Format("20060102_150405"), opts.Format))

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(outputPath, headers, rows)
	case FormatJSON:
		err = writeJSON(outputPath, doc)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Settlements exported",
		zap.String("kind", prefix),
		zap.String("file", outputPath),
		zap.Int("count", count),
		zap.String("format", string(opts.Format)))
	return outputPath, nil
}

func writeCSV(path string, headers []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return file.Sync()
}

func writeJSON(path string, doc interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// TradeSummary contains summary statistics for exported trades. Volumes are in SOL.
type TradeSummary struct {
	Count        int             `json:"count"`
	BuyCount     int             `json:"buy_count"`
	SellCount    int             `json:"sell_count"`
	UniqueAssets int             `json:"unique_assets"`
	BuyVolume    decimal.Decimal `json:"buy_volume"`
	SellVolume   decimal.Decimal `json:"sell_volume"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
}

// summarizeTrades expects trades sorted oldest first.
func summarizeTrades(trades []domain.TradeSettlement) TradeSummary {
	s := TradeSummary{
		Count:      len(trades),
		BuyVolume:  decimal.Zero,
		SellVolume: decimal.Zero,
	}
	if len(trades) == 0 {
		return s
	}
	s.StartDate = trades[0].CreatedAt
	s.EndDate = trades[len(trades)-1].CreatedAt

	assets := make(map[string]struct{})
	for _, t := range trades {
		assets[t.Asset] = struct{}{}
		amount := domain.LamportsToSOL(t.SettledLamports)
		switch t.Direction {
		case domain.DirectionBuy:
			s.BuyCount++
			s.BuyVolume = s.BuyVolume.Add(amount)
		case domain.DirectionSell:
			s.SellCount++
			s.SellVolume = s.SellVolume.Add(amount)
		}
	}
	s.UniqueAssets = len(assets)
	return s
}

// ClaimSummary contains summary statistics for exported claims. Amounts are in SOL.
type ClaimSummary struct {
	Count        int                                `json:"count"`
	UniqueAssets int                                `json:"unique_assets"`
	Total        decimal.Decimal                    `json:"total"`
	ByFeeType    map[domain.FeeType]decimal.Decimal `json:"by_fee_type"`
	StartDate    time.Time                          `json:"start_date"`
	EndDate      time.Time                          `json:"end_date"`
}

// summarizeClaims expects claims sorted oldest first.
func summarizeClaims(claims []domain.ClaimSettlement) ClaimSummary {
	s := ClaimSummary{
		Count:     len(claims),
		Total:     decimal.Zero,
		ByFeeType: make(map[domain.FeeType]decimal.Decimal),
	}
	if len(claims) == 0 {
		return s
	}
	s.StartDate = claims[0].CreatedAt
	s.EndDate = claims[len(claims)-1].CreatedAt

	assets := make(map[string]struct{})
	for _, c := range claims {
		assets[c.Asset] = struct{}{}
		amount := domain.LamportsToSOL(c.AmountLamports)
		s.Total = s.Total.Add(amount)
		s.ByFeeType[c.FeeType] = s.ByFeeType[c.FeeType].Add(amount)
	}
	s.UniqueAssets = len(assets)
	return s
}
