// Package config loads cctv-allin settings from file and environment via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view of all settings used by the subcommands.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Export    ExportConfig    `mapstructure:"export"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Probe     ProbeConfig     `mapstructure:"probe"`
}

// ServerConfig holds the notification receiver listen settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
}

// Addr returns the listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig describes the shared Redis instance. DB is used by the
// notification receiver; discovery uses Discovery.CacheDB.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// InventoryConfig points at the device inventory YAML file.
type InventoryConfig struct {
	Path string `mapstructure:"path"`
}

// DiscoveryConfig controls Prometheus file-SD generation.
type DiscoveryConfig struct {
	OutputDir    string        `mapstructure:"output_dir"`
	BlackboxFile string        `mapstructure:"blackbox_file"`
	SNMPFile     string        `mapstructure:"snmp_file"`
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CacheDB      int           `mapstructure:"cache_db"`
}

// ExportConfig controls the Uptime Kuma import file.
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	FileName  string `mapstructure:"file_name"`
}

// NotifyConfig controls the Alertmanager webhook receiver.
type NotifyConfig struct {
	DefaultPlatform string         `mapstructure:"default_platform"`
	Title           string         `mapstructure:"title"`
	Timeout         time.Duration  `mapstructure:"timeout"`
	DedupTTL        time.Duration  `mapstructure:"dedup_ttl"`
	StatusTTL       time.Duration  `mapstructure:"status_ttl"`
	DingTalk        DingTalkConfig `mapstructure:"dingtalk"`
	WeChat          WeChatConfig   `mapstructure:"wechat"`
	Feishu          FeishuConfig   `mapstructure:"feishu"`
}

// DingTalkConfig configures the DingTalk robot webhook.
type DingTalkConfig struct {
	Webhook   string   `mapstructure:"webhook"`
	Secret    string   `mapstructure:"secret"` //nolint:gosec // G101: config field name, not a credential
	AtMobiles []string `mapstructure:"at_mobiles"`
	AtAll     bool     `mapstructure:"at_all"`
}

// WeChatConfig configures the WeChat Work group robot webhook.
type WeChatConfig struct {
	Webhook string `mapstructure:"webhook"`
}

// FeishuConfig configures the Feishu custom bot webhook.
type FeishuConfig struct {
	Webhook string `mapstructure:"webhook"`
	Secret  string `mapstructure:"secret"` //nolint:gosec // G101: config field name, not a credential
}

// ProbeConfig controls the one-shot reachability probe.
type ProbeConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	PingCount int           `mapstructure:"ping_count"`
}

// legacyEnv maps config keys to the environment variable names used by the
// original deployment scripts. They are bound in addition to CCTV_*.
var legacyEnv = map[string]string{
	"notify.dingtalk.webhook": "DINGTALK_WEBHOOK",
	"notify.wechat.webhook":   "WECHAT_WEBHOOK",
	"notify.feishu.webhook":   "FEISHU_WEBHOOK",
	"logging.level":           "LOG_LEVEL",
	"server.port":             "PORT",
	"discovery.output_dir":    "PROMETHEUS_STATIC_CONFIG_DIR",
	"inventory.path":          "DEVICE_INVENTORY_FILE",
	"redis.addr":              "REDIS_ADDR",
}

// legacyKeys maps the flat keys of the old notification_config.yml onto
// their nested equivalents.
var legacyKeys = map[string]string{
	"dingtalk_webhook": "notify.dingtalk.webhook",
	"wechat_webhook":   "notify.wechat.webhook",
	"feishu_webhook":   "notify.feishu.webhook",
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8888)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "redis:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.timeout", "5s")
	v.SetDefault("inventory.path", "/app/config/devices.yml")
	v.SetDefault("discovery.output_dir", "/etc/prometheus/file_sd")
	v.SetDefault("discovery.blackbox_file", "blackbox_targets.yml")
	v.SetDefault("discovery.snmp_file", "snmp_targets.yml")
	v.SetDefault("discovery.cache_enabled", true)
	v.SetDefault("discovery.cache_ttl", "5m")
	v.SetDefault("discovery.cache_db", 1)
	v.SetDefault("export.output_dir", "uptime-kuma-config")
	v.SetDefault("export.file_name", "uptime-kuma-config.json")
	v.SetDefault("notify.default_platform", "dingtalk")
	v.SetDefault("notify.title", "Prometheus Alert")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.dedup_ttl", "5m")
	v.SetDefault("notify.status_ttl", "30s")
	v.SetDefault("notify.dingtalk.webhook", "")
	v.SetDefault("notify.dingtalk.secret", "")
	v.SetDefault("notify.dingtalk.at_mobiles", []string{})
	v.SetDefault("notify.dingtalk.at_all", false)
	v.SetDefault("notify.wechat.webhook", "")
	v.SetDefault("notify.feishu.webhook", "")
	v.SetDefault("notify.feishu.secret", "")
	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.ping_count", 3)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("cctv-allin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cctv-allin")
	}

	// Environment variable support: CCTV_NOTIFY_DINGTALK_WEBHOOK=https://...
	v.SetEnvPrefix("CCTV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "CCTV_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	// Aliases move already-read values, so they go after ReadInConfig.
	for alias, key := range legacyKeys {
		v.RegisterAlias(alias, key)
	}

	return v, nil
}

// Decode unmarshals the Viper settings into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would make a subcommand misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Notify.DedupTTL <= 0 {
		errs = append(errs, errors.New("notify.dedup_ttl must be positive"))
	}
	if c.Notify.Timeout <= 0 || c.Notify.Timeout > 10*time.Second {
		errs = append(errs, fmt.Errorf("notify.timeout %s must be in (0s, 10s]", c.Notify.Timeout))
	}
	switch strings.ToLower(c.Notify.DefaultPlatform) {
	case "dingtalk", "wechat", "feishu":
	default:
		errs = append(errs, fmt.Errorf("notify.default_platform %q must be dingtalk, wechat or feishu", c.Notify.DefaultPlatform))
	}
	if c.Discovery.CacheEnabled && c.Discovery.CacheTTL <= 0 {
		errs = append(errs, errors.New("discovery.cache_ttl must be positive when the cache is enabled"))
	}
	if c.Redis.Timeout <= 0 {
		errs = append(errs, errors.New("redis.timeout must be positive"))
	}
	return errors.Join(errs...)
}
