package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// EnvPrefix is the prefix of environment overrides, e.g. DRUMLEDGER_API_PORT
const EnvPrefix = "DRUMLEDGER"

// Config holds application configuration
// アプリケーション設定を保持
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	API       APIConfig       `mapstructure:"api"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Redis     RedisConfig     `mapstructure:"redis"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StoreConfig selects the file store backend and the blob names
// ファイルストアのバックエンドとファイル名
type StoreConfig struct {
	Backend         string `mapstructure:"backend"` // local, gcs, postgres, memory
	Dir             string `mapstructure:"dir"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	DSN             string `mapstructure:"dsn"`
	LedgerName      string `mapstructure:"ledger_name"`
	LogName         string `mapstructure:"log_name"`
	ProductionName  string `mapstructure:"production_name"`
	ReceiptName     string `mapstructure:"receipt_name"`
	StockName       string `mapstructure:"stock_name"`
	BackupPrefix    string `mapstructure:"backup_prefix"`
}

// APIConfig holds API server configuration
// APIサーバー設定を保持
type APIConfig struct {
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	EnableCORS    bool          `mapstructure:"enable_cors"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
}

// InventoryConfig holds drum ledger configuration
// ドラム台帳固有の設定を保持
type InventoryConfig struct {
	DefaultLocation  string        `mapstructure:"default_location"`
	InitialStatus    string        `mapstructure:"initial_status"`
	CanonicalizeLots bool          `mapstructure:"canonicalize_lots"`
	Floors           []string      `mapstructure:"floors"`
	Zones            []string      `mapstructure:"zones"`
	CacheSize        int           `mapstructure:"cache_size"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	RulesFile        string        `mapstructure:"rules_file"`
}

// RedisConfig enables the cross-process lock
// プロセス間ロック用Redis設定
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PubSubConfig enables event publishing to Pub/Sub
// Pub/Subイベント発行設定
type PubSubConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProjectID       string `mapstructure:"project_id"`
	Topic           string `mapstructure:"topic"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// LoggingConfig holds logging configuration
// ログ設定を保持
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, ファイルパス
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", "local")
	v.SetDefault("store.dir", "./data")
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.prefix", "")
	v.SetDefault("store.credentials_json", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.ledger_name", "bulk_drums.csv")
	v.SetDefault("store.log_name", "bulk_move_log.csv")
	v.SetDefault("store.production_name", "production.xlsx")
	v.SetDefault("store.receipt_name", "receive.xlsx")
	v.SetDefault("store.stock_name", "stock.xlsx")
	v.SetDefault("store.backup_prefix", "backup/bulk_drums")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("api.write_timeout", 30*time.Second)
	v.SetDefault("api.idle_timeout", 60*time.Second)
	v.SetDefault("api.enable_cors", true)
	v.SetDefault("api.enable_metrics", true)

	v.SetDefault("inventory.default_location", inventory.LocationUnassigned)
	v.SetDefault("inventory.initial_status", inventory.StatusAwaitingProduction)
	v.SetDefault("inventory.canonicalize_lots", false)
	v.SetDefault("inventory.floors", inventory.DefaultFloors)
	v.SetDefault("inventory.zones", inventory.DefaultZones)
	v.SetDefault("inventory.cache_size", inventory.DefaultCacheSize)
	v.SetDefault("inventory.lock_ttl", 10*time.Second)
	v.SetDefault("inventory.rules_file", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "drumledger-events")
	v.SetDefault("pubsub.credentials_json", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads the optional YAML file at path (or DRUMLEDGER_CONFIG when path is empty),
// then applies DRUMLEDGER_* environment overrides
// 設定ファイルと環境変数から設定を読み込み
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定の解析に失敗しました: %w", err)
	}
	cfg.Inventory.Floors = splitList(cfg.Inventory.Floors)
	cfg.Inventory.Zones = splitList(cfg.Inventory.Zones)

	// バリデーション
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定バリデーションに失敗しました: %w", err)
	}

	return cfg, nil
}

// splitList accepts both YAML lists and comma separated env values
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate validates the configuration
// 設定をバリデーション
func (c *Config) Validate() error {
	// ストア設定チェック
	switch c.Store.Backend {
	case "local":
		if c.Store.Dir == "" {
			return fmt.Errorf("保存先ディレクトリが指定されていません")
		}
	case "gcs":
		if c.Store.Bucket == "" {
			return fmt.Errorf("GCSバケットが指定されていません")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("データベース接続文字列が指定されていません")
		}
	case "memory":
	default:
		return fmt.Errorf("無効なストア種別: %s", c.Store.Backend)
	}
	if c.Store.LedgerName == "" || c.Store.LogName == "" {
		return fmt.Errorf("台帳・移動履歴のファイル名が指定されていません")
	}
	if c.Store.LedgerName == c.Store.LogName {
		return fmt.Errorf("台帳と移動履歴に同じファイル名は使用できません: %s", c.Store.LedgerName)
	}

	// API設定チェック
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("無効なAPIポート: %d", c.API.Port)
	}

	// 在庫設定チェック
	if c.Inventory.DefaultLocation == "" {
		return fmt.Errorf("デフォルトロケーションが指定されていません")
	}
	if len(c.Inventory.Floors) == 0 || len(c.Inventory.Zones) == 0 {
		return fmt.Errorf("フロアとゾーンは1つ以上指定してください")
	}
	if c.Inventory.CacheSize < 0 {
		return fmt.Errorf("キャッシュサイズは0以上である必要があります")
	}
	if c.Inventory.LockTTL <= 0 {
		return fmt.Errorf("ロック有効期間は正の値である必要があります")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("Redisアドレスが指定されていません")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.Topic == "") {
		return fmt.Errorf("Pub/SubのプロジェクトIDとトピックを指定してください")
	}

	// ログ設定チェック
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("無効なログレベル: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("無効なログフォーマット: %s", c.Logging.Format)
	}

	return nil
}

// ManagerConfig builds the drum manager configuration, reading the rules file when set
// ドラムマネージャー設定を生成
func (c *Config) ManagerConfig() (*inventory.Config, error) {
	mc := inventory.DefaultConfig()
	mc.LedgerName = c.Store.LedgerName
	mc.LogName = c.Store.LogName
	mc.BackupPrefix = c.Store.BackupPrefix
	mc.DefaultLocation = c.Inventory.DefaultLocation
	mc.InitialStatus = c.Inventory.InitialStatus
	mc.CanonicalizeLots = c.Inventory.CanonicalizeLots
	mc.Scheme = inventory.LocationScheme{
		Floors: append([]string(nil), c.Inventory.Floors...),
		Zones:  append([]string(nil), c.Inventory.Zones...),
	}
	mc.LockTTL = c.Inventory.LockTTL
	mc.CacheSize = c.Inventory.CacheSize

	if c.Inventory.RulesFile != "" {
		f, err := os.Open(c.Inventory.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("分類ルールファイルを開けません: %w", err)
		}
		defer f.Close()
		rules, err := inventory.LoadClassificationRules(f)
		if err != nil {
			return nil, err
		}
		mc.Rules = rules
	}
	return mc, nil
}
