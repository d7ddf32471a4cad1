package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log          LogConfig          `mapstructure:"log"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Database     DatabaseConfig     `mapstructure:"database"`
	ClickHouse   DatabaseConfig     `mapstructure:"clickhouse"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Webhooks     WebhooksConfig     `mapstructure:"webhooks"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
	Archiver     ArchiverConfig     `mapstructure:"archiver"`
	MockProvider MockProviderConfig `mapstructure:"mock_provider"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | postgres (primary store only)
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type WebhooksConfig struct {
	Token string `mapstructure:"token"` // empty disables webhook auth
}

type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	Delay      time.Duration `mapstructure:"delay"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"` // 0 disables the breaker
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type ProviderConfig struct {
	Name      string        `mapstructure:"name"`
	Endpoint  string        `mapstructure:"endpoint"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	RPS       float64       `mapstructure:"rps"` // 0 = unthrottled
	Burst     int           `mapstructure:"burst"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type ProvidersConfig struct {
	SMS   ProviderConfig `mapstructure:"sms"`
	Email ProviderConfig `mapstructure:"email"`
}

type ArchiverConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

// OutcomeMix weights the simulated responses of one mock endpoint.
type OutcomeMix struct {
	Success      float64 `mapstructure:"success"`
	BadRequest   float64 `mapstructure:"bad_request"`
	Unauthorized float64 `mapstructure:"unauthorized"`
	RateLimited  float64 `mapstructure:"rate_limited"`
	ServerError  float64 `mapstructure:"server_error"`
	ServerStatus int     `mapstructure:"server_status"`
}

type MockProviderConfig struct {
	Addr  string     `mapstructure:"addr"`
	SMS   OutcomeMix `mapstructure:"sms"`
	Email OutcomeMix `mapstructure:"email"`
}

// Load reads embedded defaults, merges user YAML (if provided), loads .env (if present)
// and applies env overrides (MSGGW_*, nested keys joined with "_").
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	_ = godotenv.Load()

	// env override (MSGGW_DATABASE_DSN, MSGGW_PROVIDERS_SMS_ENDPOINT, ...)
	v.SetEnvPrefix("MSGGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
