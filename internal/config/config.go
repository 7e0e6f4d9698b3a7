// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. SETTLEMENT_RPC_URL or
// SETTLEMENT_BOOKKEEPING_WEBHOOK_URL.
const EnvPrefix = "SETTLEMENT"

type Config struct {
	RPCURL       string `mapstructure:"rpc_url"`
	RPCTimeoutMs int    `mapstructure:"rpc_timeout_ms"`

	// RPCFallbackURLs join rpc_url in the client's rotation.
	RPCFallbackURLs []string `mapstructure:"rpc_fallback_urls"`
	RPCCooldownMs   int      `mapstructure:"rpc_cooldown_ms"`

	PostgresURL      string `mapstructure:"postgres_url"`
	PostgresMaxConns int32  `mapstructure:"postgres_max_conns"`
	UseMemory        bool   `mapstructure:"use_memory"`

	ListenAddr   string `mapstructure:"listen_addr"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`

	// Display-unit values, kept as strings so they parse exactly.
	MinClaimFloorSOL string `mapstructure:"min_claim_floor_sol"`
	TradeTolerance   string `mapstructure:"trade_tolerance"`
	MigrationFeeSOL  string `mapstructure:"migration_fee_sol"`

	OutcomeMaxTries   uint   `mapstructure:"outcome_max_tries"`
	CacheTTLMs        int    `mapstructure:"cache_ttl_ms"`
	CacheSize         int    `mapstructure:"cache_size"`
	BuildConcurrency  int    `mapstructure:"build_concurrency"`
	ComputeUnitLimit  uint32 `mapstructure:"compute_unit_limit"`
	PriorityFeeMicro  uint64 `mapstructure:"priority_fee_micro_lamports"`
	PreBuySlippageBps uint64 `mapstructure:"prebuy_slippage_bps"`

	CurveProgram string `mapstructure:"curve_program"`
	AmmProgram   string `mapstructure:"amm_program"`
	FeeRecipient string `mapstructure:"fee_recipient"`
	VenueConfig  string `mapstructure:"venue_config"`

	Bookkeeping BookkeepingConfig `mapstructure:"bookkeeping"`
}

type BookkeepingConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Buffer     int    `mapstructure:"buffer"`
	TimeoutMs  int    `mapstructure:"timeout_ms"`
	MaxTries   uint   `mapstructure:"max_tries"`
}

const (
	DefaultRPCURL            = "https://api.mainnet-beta.solana.com"
	DefaultRPCTimeoutMs      = 5000
	DefaultRPCCooldownMs     = 10_000
	DefaultListenAddr        = ":8080"
	DefaultLogFile           = "settlement.log"
	DefaultMinClaimFloorSOL  = "0.01"
	DefaultTradeTolerance    = "0.25"
	DefaultMigrationFeeSOL   = "0.5"
	DefaultOutcomeMaxTries   = 4
	DefaultCacheTTLMs        = 30_000
	DefaultCacheSize         = 4096
	DefaultBuildConcurrency  = 8
	DefaultPostgresMaxConns  = 10
	DefaultComputeUnitLimit  = 200_000
	DefaultPriorityFeeMicro  = 5_000
	DefaultPreBuySlippageBps = 100
	DefaultEventBuffer       = 256
	DefaultWebhookTimeoutMs  = 5000
	DefaultWebhookMaxTries   = 3
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_url":                     DefaultRPCURL,
		"rpc_timeout_ms":              DefaultRPCTimeoutMs,
		"rpc_fallback_urls":           []string{},
		"rpc_cooldown_ms":             DefaultRPCCooldownMs,
		"postgres_url":                "",
		"postgres_max_conns":          DefaultPostgresMaxConns,
		"use_memory":                  false,
		"listen_addr":                 DefaultListenAddr,
		"debug_logging":               false,
		"log_file":                    DefaultLogFile,
		"min_claim_floor_sol":         DefaultMinClaimFloorSOL,
		"trade_tolerance":             DefaultTradeTolerance,
		"migration_fee_sol":           DefaultMigrationFeeSOL,
		"outcome_max_tries":           DefaultOutcomeMaxTries,
		"cache_ttl_ms":                DefaultCacheTTLMs,
		"cache_size":                  DefaultCacheSize,
		"build_concurrency":           DefaultBuildConcurrency,
		"compute_unit_limit":          DefaultComputeUnitLimit,
		"priority_fee_micro_lamports": DefaultPriorityFeeMicro,
		"prebuy_slippage_bps":         DefaultPreBuySlippageBps,
		"curve_program":               "",
		"amm_program":                 "",
		"fee_recipient":               "",
		"venue_config":                "",
		"bookkeeping.webhook_url":     "",
		"bookkeeping.buffer":          DefaultEventBuffer,
		"bookkeeping.timeout_ms":      DefaultWebhookTimeoutMs,
		"bookkeeping.max_tries":       DefaultWebhookMaxTries,
	}
}

// LoadConfig reads path (when non-empty), applies defaults and SETTLEMENT_ environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	loadEnvironmentVariables(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, validateConfig(&cfg)
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func validateConfig(cfg *Config) error {
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	for _, u := range cfg.RPCFallbackURLs {
		if err := validateURL(u, "http"); err != nil {
			return fmt.Errorf("invalid rpc_fallback_urls entry %q: %w", u, err)
		}
	}
	if !cfg.UseMemory {
		if cfg.PostgresURL == "" {
			return errors.New("postgres_url is required unless use_memory is set")
		}
		if err := validateURL(cfg.PostgresURL, "postgres"); err != nil {
			return fmt.Errorf("invalid postgres_url: %w", err)
		}
	}
	if cfg.Bookkeeping.WebhookURL != "" {
		if err := validateURL(cfg.Bookkeeping.WebhookURL, "http"); err != nil {
			return fmt.Errorf("invalid bookkeeping.webhook_url: %w", err)
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if err := validateAmounts(cfg); err != nil {
		return err
	}
	return validateAddresses(cfg)
}

func validateNumericParams(cfg *Config) error {
	switch {
	case cfg.RPCTimeoutMs <= 0:
		return errors.New("invalid rpc_timeout_ms")
	case cfg.RPCCooldownMs < 0:
		return errors.New("invalid rpc_cooldown_ms")
	case cfg.OutcomeMaxTries == 0:
		return errors.New("invalid outcome_max_tries")
	case cfg.CacheSize < 0:
		return errors.New("invalid cache_size")
	case cfg.CacheTTLMs < 0:
		return errors.New("invalid cache_ttl_ms")
	case cfg.BuildConcurrency <= 0:
		return errors.New("invalid build_concurrency")
	case cfg.PostgresMaxConns <= 0:
		return errors.New("invalid postgres_max_conns")
	case cfg.Bookkeeping.Buffer <= 0:
		return errors.New("invalid bookkeeping.buffer")
	case cfg.Bookkeeping.MaxTries == 0:
		return errors.New("invalid bookkeeping.max_tries")
	}
	return nil
}

func validateAmounts(cfg *Config) error {
	floor, err := decimal.NewFromString(cfg.MinClaimFloorSOL)
	if err != nil || floor.IsNegative() {
		return fmt.Errorf("invalid min_claim_floor_sol %q", cfg.MinClaimFloorSOL)
	}
	tol, err := decimal.NewFromString(cfg.TradeTolerance)
	if err != nil || tol.IsNegative() || tol.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid trade_tolerance %q: must be within [0, 1]", cfg.TradeTolerance)
	}
	fee, err := decimal.NewFromString(cfg.MigrationFeeSOL)
	if err != nil || fee.IsNegative() {
		return fmt.Errorf("invalid migration_fee_sol %q", cfg.MigrationFeeSOL)
	}
	return nil
}

func validateAddresses(cfg *Config) error {
	for key, value := range map[string]string{
		"curve_program": cfg.CurveProgram,
		"amm_program":   cfg.AmmProgram,
		"fee_recipient": cfg.FeeRecipient,
		"venue_config":  cfg.VenueConfig,
	} {
		if value == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	return nil
}

// RPCTimeout is the per-call ledger timeout.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutMs) * time.Millisecond
}

// RPCEndpoints lists rpc_url followed by the fallbacks.
func (c *Config) RPCEndpoints() []string {
	return append([]string{c.RPCURL}, c.RPCFallbackURLs...)
}

func (c *Config) RPCCooldown() time.Duration {
	return time.Duration(c.RPCCooldownMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMs) * time.Millisecond
}

func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Bookkeeping.TimeoutMs) * time.Millisecond
}

// MinClaimFloor returns the claim floor in lamports.
func (c *Config) MinClaimFloor() uint64 {
	return domain.SOLToLamports(decimal.RequireFromString(c.MinClaimFloorSOL))
}

// MigrationFee returns the creator's migration fee share in lamports.
func (c *Config) MigrationFee() uint64 {
	return domain.SOLToLamports(decimal.RequireFromString(c.MigrationFeeSOL))
}

func (c *Config) Tolerance() decimal.Decimal {
	return decimal.RequireFromString(c.TradeTolerance)
}

// PublicKey parses an optional address; empty values yield the zero key.
func PublicKey(value string) solana.PublicKey {
	if value == "" {
		return solana.PublicKey{}
	}
	return solana.MustPublicKeyFromBase58(value)
}
