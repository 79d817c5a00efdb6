package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HAVEN_MYSQL_HOST
const EnvPrefix = "HAVEN"

// Config holds all configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Push      PushConfig      `mapstructure:"push"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MachineId      uint16   `mapstructure:"machine_id"`
}

// IsDebug reports whether the server runs in debug mode
func (c *ServerConfig) IsDebug() bool {
	return c.Mode == "debug"
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// DSN returns the MySQL data source name
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds bearer token verification settings.
// Tokens are issued by the identity service; this process only verifies them.
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	MaxConnNum       int64         `mapstructure:"max_conn_num"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	PushChannelSize  int           `mapstructure:"push_channel_size"`
	PushWorkerNum    int           `mapstructure:"push_worker_num"`
	WriteChannelSize int           `mapstructure:"write_channel_size"`
	OnlineTTL        time.Duration `mapstructure:"online_ttl"`
	TypingRate       float64       `mapstructure:"typing_rate"`
	TypingBurst      int           `mapstructure:"typing_burst"`
}

// ChatConfig holds message ingestion limits
type ChatConfig struct {
	MaxMessageLength int `mapstructure:"max_message_length"`
}

// NotifyConfig selects how notification jobs are executed.
// Mode "local" runs an in-process worker pool, "asynq" goes through Redis.
type NotifyConfig struct {
	Mode        string        `mapstructure:"mode"`
	QueueSize   int           `mapstructure:"queue_size"`
	WorkerNum   int           `mapstructure:"worker_num"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
	AsynqQueue  string        `mapstructure:"asynq_queue"`
	Concurrency int           `mapstructure:"concurrency"`
}

// PushConfig holds the Expo push gateway settings
type PushConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoint    string        `mapstructure:"endpoint"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Global config instance
var GlobalConfig *Config

// Load loads configuration from file, .env and HAVEN_* environment variables
func Load(configPath string) (*Config, error) {
	// .env is optional, real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// PathFromEnv returns the config path, overridable with HAVEN_CONFIG
func PathFromEnv(fallback string) string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return fallback
}

// bindEnv registers keys so AutomaticEnv applies to Unmarshal even without a config file
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"server.http_port", "server.mode", "server.machine_id",
		"mysql.host", "mysql.port", "mysql.user", "mysql.password", "mysql.database", "mysql.auto_migrate",
		"redis.host", "redis.port", "redis.password", "redis.db", "redis.key_prefix",
		"jwt.secret", "jwt.issuer", "jwt.expire_hours",
		"notify.mode", "notify.worker_num", "notify.asynq_queue",
		"push.enabled", "push.endpoint", "push.access_token",
	} {
		_ = v.BindEnv(key)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Server.MachineId == 0 {
		cfg.Server.MachineId = 1
	}
	if cfg.MySQL.Host == "" {
		cfg.MySQL.Host = "127.0.0.1"
	}
	if cfg.MySQL.Port == 0 {
		cfg.MySQL.Port = 3306
	}
	if cfg.MySQL.Charset == "" {
		cfg.MySQL.Charset = "utf8mb4"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "127.0.0.1"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "haven:"
	}
	if cfg.JWT.ExpireHours == 0 {
		cfg.JWT.ExpireHours = 168 // 7 days
	}
	if cfg.WebSocket.MaxConnNum == 0 {
		cfg.WebSocket.MaxConnNum = 10000
	}
	if cfg.WebSocket.MaxMessageSize == 0 {
		cfg.WebSocket.MaxMessageSize = 51200
	}
	if cfg.WebSocket.WriteWait == 0 {
		cfg.WebSocket.WriteWait = 10 * time.Second
	}
	if cfg.WebSocket.PongWait == 0 {
		cfg.WebSocket.PongWait = 30 * time.Second
	}
	if cfg.WebSocket.PingPeriod == 0 {
		cfg.WebSocket.PingPeriod = (cfg.WebSocket.PongWait * 9) / 10
	}
	if cfg.WebSocket.PushChannelSize == 0 {
		cfg.WebSocket.PushChannelSize = 10000
	}
	if cfg.WebSocket.PushWorkerNum == 0 {
		cfg.WebSocket.PushWorkerNum = 10
	}
	if cfg.WebSocket.WriteChannelSize == 0 {
		cfg.WebSocket.WriteChannelSize = 256
	}
	if cfg.WebSocket.OnlineTTL == 0 {
		cfg.WebSocket.OnlineTTL = 60 * time.Second
	}
	if cfg.WebSocket.TypingRate == 0 {
		cfg.WebSocket.TypingRate = 5
	}
	if cfg.WebSocket.TypingBurst == 0 {
		cfg.WebSocket.TypingBurst = 10
	}
	if cfg.Chat.MaxMessageLength == 0 {
		cfg.Chat.MaxMessageLength = 5000
	}
	if cfg.Notify.Mode == "" {
		cfg.Notify.Mode = "local"
	}
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 1024
	}
	if cfg.Notify.WorkerNum == 0 {
		cfg.Notify.WorkerNum = 4
	}
	if cfg.Notify.JobTimeout == 0 {
		cfg.Notify.JobTimeout = 10 * time.Second
	}
	if cfg.Notify.AsynqQueue == "" {
		cfg.Notify.AsynqQueue = "notifications"
	}
	if cfg.Notify.Concurrency == 0 {
		cfg.Notify.Concurrency = 10
	}
	if cfg.Push.Endpoint == "" {
		cfg.Push.Endpoint = "https://exp.host/--/api/v2/push/send"
	}
	if cfg.Push.Timeout == 0 {
		cfg.Push.Timeout = 5 * time.Second
	}
}
