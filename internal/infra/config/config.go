package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

type AppConfig struct {
	App          AppSettings          `mapstructure:"app"`
	Store        StoreSettings        `mapstructure:"store"`
	Redis        RedisSettings        `mapstructure:"redis"`
	Postgres     PostgresSettings     `mapstructure:"postgres"`
	Kafka        KafkaSettings        `mapstructure:"kafka"`
	SMTP         SMTPSettings         `mapstructure:"smtp"`
	SMS          SMSSettings          `mapstructure:"sms"`
	RateLimit    RateLimitSettings    `mapstructure:"rate_limit"`
	Verification VerificationSettings `mapstructure:"verification"`
	Telemetry    TelemetrySettings    `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// IsDevelopment reports whether the service runs in development mode, which
// logs credentials instead of delivering them and echoes raw tokens in API
// responses.
func (s AppSettings) IsDevelopment() bool {
	return s.Env != "production"
}

// StoreSettings selects the KV backend once at startup.
type StoreSettings struct {
	Backend string `mapstructure:"backend"`
}

type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

type PostgresSettings struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

type SMTPSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// Configured reports whether enough SMTP settings are present to deliver
// mail. Without them the service falls back to logging credentials.
func (s SMTPSettings) Configured() bool {
	return s.Host != "" && s.Port > 0 && s.From != ""
}

type SMSSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
}

// RateLimitSettings configures the renewing fixed window gating issuance.
type RateLimitSettings struct {
	Threshold      int           `mapstructure:"threshold"`
	WindowDuration time.Duration `mapstructure:"window_duration"`
}

// VerificationSettings carries the per-purpose TTLs and OTP policy.
type VerificationSettings struct {
	EmailTokenTTL     time.Duration `mapstructure:"email_token_ttl"`
	OTPTTL            time.Duration `mapstructure:"otp_ttl"`
	ResetTokenTTL     time.Duration `mapstructure:"reset_token_ttl"`
	VerifiedRecordTTL time.Duration `mapstructure:"verified_record_ttl"`
	OTPLength         int           `mapstructure:"otp_length"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BaseURL           string        `mapstructure:"base_url"`
}

type TelemetrySettings struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("PROZ")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"store.backend",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"postgres.enabled",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"smtp.host",
		"smtp.port",
		"smtp.username",
		"smtp.password",
		"smtp.from",
		"smtp.from_name",
		"sms.enabled",
		"sms.region",
		"rate_limit.threshold",
		"rate_limit.window_duration",
		"verification.email_token_ttl",
		"verification.otp_ttl",
		"verification.reset_token_ttl",
		"verification.verified_record_ttl",
		"verification.otp_length",
		"verification.max_attempts",
		"verification.base_url",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "prozlab-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8000)

	v.SetDefault("store.backend", StoreBackendRedis)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "proz")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "proz")
	v.SetDefault("postgres.password", "proz_password")
	v.SetDefault("postgres.database", "prozlab")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "proz")
	v.SetDefault("kafka.async", true)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "ProzLab")

	v.SetDefault("sms.enabled", false)
	v.SetDefault("sms.region", "us-east-1")

	v.SetDefault("rate_limit.threshold", 5)
	v.SetDefault("rate_limit.window_duration", "1h")

	v.SetDefault("verification.email_token_ttl", "24h")
	v.SetDefault("verification.otp_ttl", "10m")
	v.SetDefault("verification.reset_token_ttl", "1h")
	v.SetDefault("verification.verified_record_ttl", "24h")
	v.SetDefault("verification.otp_length", 6)
	v.SetDefault("verification.max_attempts", 5)
	v.SetDefault("verification.base_url", "http://localhost:8000")

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "prozlab-backend")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "PROZ_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
