// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/streetconsensus/settlement/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        // e.g. "8080"
	GovernorPort       string        // e.g. "8081"
	Env                string        // "development" | "production"
	ReadTimeout        time.Duration // default 10s
	WriteTimeout       time.Duration // default 10s
	GovernorAllowedIPs string        // comma-separated IPs; "" = allow all
	AllowedOrigins     []string      // CORS origins allowed in production (development allows all); the WS hub allows every origin when empty
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds JWT signing settings.
type JWTConfig struct {
	AccessSecret  string        // must be set
	RefreshSecret string        // must be set
	AccessTTL     time.Duration // default 15m
	RefreshTTL    time.Duration // default 720h (30 days)
}

// GovernanceConfig holds the fixed M-of-N signer set (spec §4.6). The
// signer set and quorum are deployment-time configuration, not a governable
// parameter themselves — changing who the signers are requires a restart.
type GovernanceConfig struct {
	Signers []string // fixed N addresses
	Quorum  int      // fixed M, 1 <= Quorum <= len(Signers)
}

// MarketConfig holds starting values for the engine's global Params (spec §3),
// loaded at boot. No code in this module writes them into the params row;
// that row changes only through GovernanceService.ExecuteAction.
type MarketConfig struct {
	PlatformFeeBps     uint64
	ResolutionFeeBps   uint64
	BondFloor          string // decimal wei string
	DynamicBondBps     uint64
	BondWinnerShareBps uint64
	MinBet             string // decimal wei string
	Treasury           string
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	Governance GovernanceConfig
	Market     MarketConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and
// valid. The protocol's own windows (dispute/voting/emergency-refund/action
// expiry) are non-configurable constants in internal/domain, so there is
// nothing to validate for them here — only the deployment-time and
// governance-seed values below can be wrong.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set"))
	}

	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if len(c.Governance.Signers) == 0 {
		errs = append(errs, errors.New("GOVERNANCE_SIGNERS must list at least one signer address"))
	}
	if c.Governance.Quorum < 1 || c.Governance.Quorum > len(c.Governance.Signers) {
		errs = append(errs, fmt.Errorf(
			"GOVERNANCE_QUORUM must be between 1 and %d (the signer count), got %d",
			len(c.Governance.Signers), c.Governance.Quorum,
		))
	}

	if c.Market.PlatformFeeBps < domain.MinPlatformFeeBps || c.Market.PlatformFeeBps > domain.MaxPlatformFeeBps {
		errs = append(errs, fmt.Errorf("MARKET_PLATFORM_FEE_BPS out of range [%d,%d]: %d",
			domain.MinPlatformFeeBps, domain.MaxPlatformFeeBps, c.Market.PlatformFeeBps))
	}
	if c.Market.ResolutionFeeBps < domain.MinResolutionFeeBps || c.Market.ResolutionFeeBps > domain.MaxResolutionFeeBps {
		errs = append(errs, fmt.Errorf("MARKET_RESOLUTION_FEE_BPS out of range [%d,%d]: %d",
			domain.MinResolutionFeeBps, domain.MaxResolutionFeeBps, c.Market.ResolutionFeeBps))
	}
	if c.Market.DynamicBondBps < domain.MinDynamicBondBps || c.Market.DynamicBondBps > domain.MaxDynamicBondBps {
		errs = append(errs, fmt.Errorf("MARKET_DYNAMIC_BOND_BPS out of range [%d,%d]: %d",
			domain.MinDynamicBondBps, domain.MaxDynamicBondBps, c.Market.DynamicBondBps))
	}
	if c.Market.BondWinnerShareBps < domain.MinBondWinnerShareBps || c.Market.BondWinnerShareBps > domain.MaxBondWinnerShareBps {
		errs = append(errs, fmt.Errorf("MARKET_BOND_WINNER_SHARE_BPS out of range [%d,%d]: %d",
			domain.MinBondWinnerShareBps, domain.MaxBondWinnerShareBps, c.Market.BondWinnerShareBps))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:               getEnv("SERVER_PORT", "8080"),
		GovernorPort:       getEnv("GOVERNOR_PORT", "8081"),
		Env:                getEnv("ENVIRONMENT", "development"),
		ReadTimeout:        getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:       getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		GovernorAllowedIPs: getEnv("GOVERNOR_ALLOWED_IPS", ""),
		AllowedOrigins:     getList("CORS_ALLOWED_ORIGINS"),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "settlement"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}

	// ── Governance ────────────────────────────────────────────────────────────
	quorum, err := getInt("GOVERNANCE_QUORUM", 2)
	if err != nil {
		return nil, fmt.Errorf("GOVERNANCE_QUORUM: %w", err)
	}
	cfg.Governance = GovernanceConfig{
		Signers: getList("GOVERNANCE_SIGNERS"),
		Quorum:  quorum,
	}

	// ── Market (seed Params) ──────────────────────────────────────────────────
	platformFeeBps, err := getUint("MARKET_PLATFORM_FEE_BPS", 200)
	if err != nil {
		return nil, fmt.Errorf("MARKET_PLATFORM_FEE_BPS: %w", err)
	}
	resolutionFeeBps, err := getUint("MARKET_RESOLUTION_FEE_BPS", 30)
	if err != nil {
		return nil, fmt.Errorf("MARKET_RESOLUTION_FEE_BPS: %w", err)
	}
	dynamicBondBps, err := getUint("MARKET_DYNAMIC_BOND_BPS", 200)
	if err != nil {
		return nil, fmt.Errorf("MARKET_DYNAMIC_BOND_BPS: %w", err)
	}
	bondWinnerShareBps, err := getUint("MARKET_BOND_WINNER_SHARE_BPS", 5000)
	if err != nil {
		return nil, fmt.Errorf("MARKET_BOND_WINNER_SHARE_BPS: %w", err)
	}

	cfg.Market = MarketConfig{
		PlatformFeeBps:     platformFeeBps,
		ResolutionFeeBps:   resolutionFeeBps,
		BondFloor:          getEnv("MARKET_BOND_FLOOR_WEI", "10000000000000000"),  // 0.01 coin
		DynamicBondBps:     dynamicBondBps,
		BondWinnerShareBps: bondWinnerShareBps,
		MinBet:             getEnv("MARKET_MIN_BET_WEI", "1000000000000000"), // 0.001 coin
		Treasury:           getEnv("MARKET_TREASURY_ADDRESS", ""),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getUint(key string, defaultVal uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid unsigned integer %q", v)
	}
	return n, nil
}

// getList parses a comma-separated env var into a trimmed, non-empty slice.
func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default without logging; do not crash on parse error
		return defaultVal
	}
	return d
}
