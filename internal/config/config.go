package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot and supporting services.
// It is read once at startup and immutable afterwards.
type Config struct {
	BotToken        string
	MySQLDSN        string
	CFAPIToken      string
	CFZoneID        string
	CFAPIBase       string
	BaseDomain      string
	AdminID         int64
	DailyLimit      int
	LabelLength     int
	Nameserver1     string
	Nameserver2     string
	RequestTimeout  time.Duration
	AdminListenAddr string
	AdminUsername   string
	AdminPassword   string
}

// SharedNameservers reports whether the fixed nameserver pair variant is
// configured. When false, provisioning falls back to self-delegation
// (ns.<label>.<base> pointing at the subdomain itself).
func (c Config) SharedNameservers() bool {
	return c.Nameserver1 != "" && c.Nameserver2 != ""
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		CFAPIBase:       strings.TrimRight(getEnv("CF_API_BASE", "https://api.cloudflare.com/client/v4"), "/"),
		AdminID:         getInt64("ADMIN_ID", 0),
		DailyLimit:      getInt("DAILY_LIMIT", 5),
		LabelLength:     getInt("LABEL_LENGTH", 6),
		Nameserver1:     normalizeHostname(getEnv("NS1", "")),
		Nameserver2:     normalizeHostname(getEnv("NS2", "")),
		RequestTimeout:  time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 20)),
		AdminListenAddr: getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "change-me"),
	}

	cfg.BotToken = os.Getenv("TG_BOT_TOKEN")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.CFAPIToken = os.Getenv("CF_API_TOKEN")
	cfg.CFZoneID = os.Getenv("CF_ZONE_ID")
	cfg.BaseDomain = normalizeHostname(os.Getenv("CF_BASE_DOMAIN"))

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "TG_BOT_TOKEN")
	}
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.CFAPIToken == "" {
		missing = append(missing, "CF_API_TOKEN")
	}
	if cfg.CFZoneID == "" {
		missing = append(missing, "CF_ZONE_ID")
	}
	if cfg.BaseDomain == "" {
		missing = append(missing, "CF_BASE_DOMAIN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if (cfg.Nameserver1 == "") != (cfg.Nameserver2 == "") {
		return Config{}, fmt.Errorf("NS1 and NS2 must be set together or not at all")
	}
	if cfg.DailyLimit < 0 {
		return Config{}, fmt.Errorf("DAILY_LIMIT must not be negative")
	}
	if cfg.LabelLength < 4 || cfg.LabelLength > 32 {
		return Config{}, fmt.Errorf("LABEL_LENGTH must be between 4 and 32")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Running on the process environment alone is fine.
	return nil
}

func normalizeHostname(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, ".")
	return strings.ToLower(raw)
}
