package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MySQL         MySQLConfig         `mapstructure:"mysql"`
	Leader        LeaderConfig        `mapstructure:"leader"`
	Instance      InstanceConfig      `mapstructure:"instance"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Settlement    SettlementConfig    `mapstructure:"settlement"`
	WebSocket     WebSocketConfig     `mapstructure:"websocket"`
	Log           LogConfig           `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// IsolationLevel is one of read_committed, repeatable_read, serializable.
	IsolationLevel string `mapstructure:"isolation_level"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type NotificationsConfig struct {
	Channel string `mapstructure:"channel"`
}

type PaymentConfig struct {
	Mode     string `mapstructure:"mode"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Currency string `mapstructure:"currency"`
	// Timeout of zero means a charge call may block indefinitely.
	Timeout time.Duration `mapstructure:"timeout"`
}

type SettlementConfig struct {
	ManagerSplit float64 `mapstructure:"manager_split"`
	ExpertSplit  float64 `mapstructure:"expert_split"`
}

type WebSocketConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var envBindings = map[string]string{
	"server.port":              "SERVER_PORT",
	"server.host":              "SERVER_HOST",
	"redis.address":            "REDIS_ADDRESS",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"mysql.dsn":                "MYSQL_DSN",
	"mysql.max_open_conns":     "MYSQL_MAX_OPEN_CONNS",
	"mysql.max_idle_conns":     "MYSQL_MAX_IDLE_CONNS",
	"mysql.conn_max_lifetime":  "MYSQL_CONN_MAX_LIFETIME",
	"mysql.isolation_level":    "MYSQL_ISOLATION_LEVEL",
	"leader.ttl":               "LEADER_TTL",
	"instance.id":              "INSTANCE_ID",
	"scheduler.interval":       "SCHEDULER_INTERVAL",
	"notifications.channel":    "NOTIFICATIONS_CHANNEL",
	"payment.mode":             "PAYMENT_MODE",
	"payment.endpoint":         "PAYMENT_ENDPOINT",
	"payment.api_key":          "PAYMENT_API_KEY",
	"payment.currency":         "PAYMENT_CURRENCY",
	"payment.timeout":          "PAYMENT_TIMEOUT",
	"settlement.manager_split": "SETTLEMENT_MANAGER_SPLIT",
	"settlement.expert_split":  "SETTLEMENT_EXPERT_SPLIT",
	"websocket.port":           "WEBSOCKET_PORT",
	"log.level":                "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 25)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("mysql.isolation_level", "repeatable_read")
	v.SetDefault("leader.ttl", 30*time.Second)
	v.SetDefault("instance.id", "auction-service-1")
	v.SetDefault("scheduler.interval", 3*time.Second)
	v.SetDefault("notifications.channel", "auction_notifications")
	v.SetDefault("payment.mode", "sandbox")
	v.SetDefault("payment.endpoint", "")
	v.SetDefault("payment.api_key", "")
	v.SetDefault("payment.currency", "gbp")
	v.SetDefault("payment.timeout", time.Duration(0))
	v.SetDefault("settlement.manager_split", 0.05)
	v.SetDefault("settlement.expert_split", 0.01)
	v.SetDefault("websocket.port", 8081)
	v.SetDefault("log.level", "info")
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Configuration file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/auction-marketplace/")

	// Environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval)
	}
	switch c.Payment.Mode {
	case "sandbox":
	case "http":
		if c.Payment.Endpoint == "" {
			return errors.New("payment.endpoint is required when payment.mode is http")
		}
	default:
		return fmt.Errorf("unsupported payment.mode %q", c.Payment.Mode)
	}
	switch c.MySQL.IsolationLevel {
	case "read_committed", "repeatable_read", "serializable":
	default:
		return fmt.Errorf("unsupported mysql.isolation_level %q", c.MySQL.IsolationLevel)
	}
	if c.Settlement.ManagerSplit < 0 || c.Settlement.ExpertSplit < 0 ||
		c.Settlement.ManagerSplit+c.Settlement.ExpertSplit > 1 {
		return errors.New("settlement splits must be non-negative and sum to at most 1")
	}
	return nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d, Redis: %s, Instance: %s, Scheduler: %s, Payment: %s",
		c.Server.Host,
		c.Server.Port,
		c.Redis.Address,
		c.Instance.ID,
		c.Scheduler.Interval,
		c.Payment.Mode,
	)
}
