// Package config はvmamの実行時設定（環境変数）と設定ファイル（YAML）を扱う。
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config は環境変数から読み込む実行時設定を保持する
type Config struct {
	// 設定ファイル
	ConfigFile string `envconfig:"VMAM_CONFIG_FILE"`

	// ログ設定
	LogLevel   string `envconfig:"VMAM_LOG_LEVEL" default:"INFO"`
	LogMaskMAC bool   `envconfig:"VMAM_LOG_MASK_MAC" default:"false"`

	// バッチ照合設定
	Workers          int           `envconfig:"VMAM_WORKERS" default:"4"`
	BatchTimeout     time.Duration `envconfig:"VMAM_BATCH_TIMEOUT" default:"10m"`
	ReconcileTimeout time.Duration `envconfig:"VMAM_RECONCILE_TIMEOUT" default:"30s"`
	LockTTL          time.Duration `envconfig:"VMAM_LOCK_TTL" default:"2m"`
	StrictRemove     bool          `envconfig:"VMAM_STRICT_REMOVE" default:"true"`

	// ディレクトリ書き込みレート（ops/秒、0は無制限）
	DirectoryRate  float64 `envconfig:"VMAM_DIRECTORY_RATE" default:"0"`
	DirectoryBurst int     `envconfig:"VMAM_DIRECTORY_BURST" default:"1"`

	// LDAPS/StartTLSでの証明書検証スキップ（検証環境用）
	LDAPInsecureSkipVerify bool `envconfig:"VMAM_LDAP_INSECURE_SKIP_VERIFY" default:"false"`

	// 端末検出設定
	DiscoveryURL     string        `envconfig:"VMAM_DISCOVERY_URL"`
	DeviceStaleAfter time.Duration `envconfig:"VMAM_DEVICE_STALE_AFTER" default:"24h"`

	// RADIUS Accounting受信（空の場合は無効）
	AcctListenAddr string `envconfig:"VMAM_ACCT_LISTEN_ADDR"`
	RadiusSecret   string `envconfig:"RADIUS_SECRET"`

	// ステータスAPI（空の場合は無効）
	StatusListenAddr string `envconfig:"VMAM_STATUS_LISTEN_ADDR"`
	GinMode          string `envconfig:"GIN_MODE" default:"release"`

	// Valkey接続設定（REDIS_HOSTが空の場合は無効）
	RedisHost string `envconfig:"REDIS_HOST"`
	RedisPort string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPass string `envconfig:"REDIS_PASS"`
}

// LoadEnv はdotenvファイルが存在すれば環境変数へ読み込む。
// 既に設定済みの環境変数は上書きしない。
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !isNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数から設定を読み込む
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// ValkeyEnabled はValkey連携が有効かどうかを返す
func (c *Config) ValkeyEnabled() bool {
	return strings.TrimSpace(c.RedisHost) != ""
}

// ValkeyAddr はValkey接続アドレスを "host:port" 形式で返す
func (c *Config) ValkeyAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

// SlogLevel はログレベル文字列をslog.Levelに変換する
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// validate は設定値のバリデーションを行う
func (c *Config) validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("VMAM_WORKERS must be between 1 and %d", MaxWorkers)
	}
	if c.BatchTimeout <= 0 {
		return fmt.Errorf("VMAM_BATCH_TIMEOUT must be positive")
	}
	if c.ReconcileTimeout <= 0 {
		return fmt.Errorf("VMAM_RECONCILE_TIMEOUT must be positive")
	}
	if c.LockTTL < c.ReconcileTimeout {
		return fmt.Errorf("VMAM_LOCK_TTL must not be shorter than VMAM_RECONCILE_TIMEOUT")
	}
	if c.DirectoryRate < 0 {
		return fmt.Errorf("VMAM_DIRECTORY_RATE must not be negative")
	}
	if c.DirectoryRate > 0 && c.DirectoryBurst < 1 {
		return fmt.Errorf("VMAM_DIRECTORY_BURST must be at least 1")
	}
	if c.DiscoveryURL != "" &&
		!strings.HasPrefix(c.DiscoveryURL, "http://") && !strings.HasPrefix(c.DiscoveryURL, "https://") {
		return fmt.Errorf("VMAM_DISCOVERY_URL must start with http:// or https://")
	}
	if c.AcctListenAddr != "" && !c.ValkeyEnabled() {
		return fmt.Errorf("VMAM_ACCT_LISTEN_ADDR requires REDIS_HOST")
	}
	return nil
}

// parseLevel はログレベル文字列を解析する
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("VMAM_LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR")
}
