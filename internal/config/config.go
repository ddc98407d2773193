package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	LogLevel   string          `mapstructure:"log_level"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Topics     TopicsConfig    `mapstructure:"topics"`
	Worker     WorkerConfig    `mapstructure:"worker"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Alerts     AlertsConfig    `mapstructure:"alerts"`
	Simulator  SimulatorConfig `mapstructure:"simulator"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
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
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

// TopicsConfig names every channel of the pipeline. ReplicaQueues is the
// static fan-out target list of the balancer; its order defines the
// round-robin cycle.
type TopicsConfig struct {
	Sync          string   `mapstructure:"sync"`
	Measurements  string   `mapstructure:"measurements"`
	Notifications string   `mapstructure:"notifications"`
	ReplicaQueues []string `mapstructure:"replica_queues"`
}

type WorkerConfig struct {
	Count int `mapstructure:"count"` // processor goroutines per aggregator worker
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"` // per-client limit on the reporting API
}

// AlertsConfig: Cooldown of 0 keeps the naive behavior where every crossing
// measurement re-alerts.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type SimulatorConfig struct {
	DeviceID string        `mapstructure:"device_id"`
	Interval time.Duration `mapstructure:"interval"`
	BaseLoad float64       `mapstructure:"base_load"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (EMON_*).
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

	// env override (EMON_*)
	v.SetEnvPrefix("EMON")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
